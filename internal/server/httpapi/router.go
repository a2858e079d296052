package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.observe)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/jwks.json", h.JWKS).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.Use(securityHeaders)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(securityHeaders, h.requireInternalKey)
	internal.HandleFunc("/tokens", h.IssueTokens).Methods(http.MethodPost)
	internal.HandleFunc("/tokens/stats", h.TokenStats).Methods(http.MethodGet)
	internal.HandleFunc("/subjects/{subjectID}/revoke", h.RevokeSubject).Methods(http.MethodPost)

	return r
}
