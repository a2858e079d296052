// Package httpapi exposes the token service over HTTP for the CRM web
// front end and for trusted internal services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/logging"
	"github.com/snugkisses/authtokens/internal/server/auth"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// TokenService is the part of auth.Service the handlers use.
type TokenService interface {
	RotateRefreshToken(ctx context.Context, oldToken string) (*auth.TokenPair, error)
	RevokeRefreshToken(ctx context.Context, token, reason string) error
	VerifyAccessToken(token string) *auth.AccessClaims
	IssueTokenPair(ctx context.Context, g auth.Grant) (*auth.TokenPair, error)
	RevokeAllForSubject(ctx context.Context, subjectID, reason string) (int64, error)
	Stats(ctx context.Context) (*models.RefreshTokenStats, error)
	JWKS() auth.JWKSet
	Settings() auth.Settings
}

// Metrics receives per-request counters.
type Metrics interface {
	Request(route string, code int)
	Verification(transport string, ok bool)
	Handler() http.Handler
}

type Options struct {
	// InternalServiceKey guards /internal routes; empty disables them.
	InternalServiceKey string
	// SecureCookies sets the Secure attribute on auth cookies.
	SecureCookies bool
}

type Handler struct {
	svc     TokenService
	log     logging.Logger
	metrics Metrics
	opts    Options
}

func NewHandler(svc TokenService, log logging.Logger, m Metrics, opts Options) *Handler {
	return &Handler{svc: svc, log: log, metrics: m, opts: opts}
}

// maxBodyBytes caps every JSON request body the handlers decode.
const maxBodyBytes = 64 << 10

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// presentedRefreshToken takes the token from the JSON body, falling back to
// the refresh-token cookie. An unreadable or oversized body is treated as
// empty.
func presentedRefreshToken(w http.ResponseWriter, r *http.Request) string {
	var in tokenRequest
	if r.Body != nil {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in)
	}
	if in.RefreshToken != "" {
		return in.RefreshToken
	}
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func presentedAccessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	s := h.svc.Settings()
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     "/api/auth",
		MaxAge:   int(s.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(s.AccessTTL / time.Second),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		common.RefreshTokenCookieName: "/api/auth",
		common.AccessTokenCookieName:  "/",
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.opts.SecureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// Refresh rotates the presented refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := presentedRefreshToken(w, r)
	if token == "" {
		h.log.Info(r.Context(), "refresh rejected", "reason", "missing token")
		writeError(w, http.StatusBadRequest, "Bad Request", "Refresh token is required")
		return
	}

	pair, err := h.svc.RotateRefreshToken(r.Context(), token)
	if err != nil {
		h.log.Error(r.Context(), "token refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Token refresh failed")
		return
	}
	if pair == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid refresh token")
		return
	}

	h.setAuthCookies(w, pair)
	writeSuccess(w, http.StatusOK, "Token refreshed and rotated", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"rotated":      true,
	})
}

// Logout revokes the presented refresh token and clears the auth cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := presentedRefreshToken(w, r)
	if err := h.svc.RevokeRefreshToken(r.Context(), token, common.RevokeReasonLogout); err != nil {
		h.log.Error(r.Context(), "logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Logout failed")
		return
	}
	h.clearAuthCookies(w)
	writeSuccess(w, http.StatusOK, "Logged out", nil)
}

// Me returns the claims of the presented access token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := h.svc.VerifyAccessToken(presentedAccessToken(r))
	h.metrics.Verification("http", claims != nil)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired access token")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"userId":      claims.UserID,
		"role":        claims.Role,
		"permissions": claims.Permissions,
		"expiresAt":   claims.ExpiresAt.Time.UTC(),
	})
}

type issueRequest struct {
	SubjectID   string   `json:"subjectId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// IssueTokens creates a pair for a subject the calling service has already
// authenticated.
func (h *Handler) IssueTokens(w http.ResponseWriter, r *http.Request) {
	var in issueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if in.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "subjectId is required")
		return
	}

	pair, err := h.svc.IssueTokenPair(r.Context(), auth.Grant{
		SubjectID:   in.SubjectID,
		Role:        in.Role,
		Permissions: in.Permissions,
	})
	if err != nil {
		h.log.Error(r.Context(), "issue tokens failed", "error", err, "user_id", in.SubjectID)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Token issue failed")
		return
	}
	writeSuccess(w, http.StatusCreated, "Tokens issued", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// RevokeSubject revokes every refresh token of the subject in the path.
func (h *Handler) RevokeSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subjectID"]

	n, err := h.svc.RevokeAllForSubject(r.Context(), subjectID, common.RevokeReasonAdmin)
	if err != nil {
		h.log.Error(r.Context(), "revoke subject failed", "error", err, "user_id", subjectID)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Revocation failed")
		return
	}
	writeSuccess(w, http.StatusOK, "Tokens revoked", map[string]any{"revoked": n})
}

// TokenStats reports refresh token counts by state.
func (h *Handler) TokenStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "token stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Stats unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, "", st)
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, h.svc.JWKS())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
