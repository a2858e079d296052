// Package metrics exposes token activity as Prometheus counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a registry and the counters the token service reports to.
// It satisfies auth.Recorder.
type Collector struct {
	reg *prometheus.Registry

	issued        *prometheus.CounterVec
	rotations     *prometheus.CounterVec
	revoked       prometheus.Counter
	purged        prometheus.Counter
	verifications *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of issued tokens by kind.",
		}, []string{"kind"}),
		rotations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Total number of refresh token rotation attempts by result.",
		}, []string{"result"}),
		revoked: f.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_tokens_revoked_total",
			Help: "Total number of revoked refresh tokens.",
		}),
		purged: f.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_tokens_purged_total",
			Help: "Total number of expired refresh tokens deleted from the store.",
		}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Total number of access token verification attempts by transport and status.",
		}, []string{"transport", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "Total number of HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

func (c *Collector) TokenIssued(kind string) { c.issued.WithLabelValues(kind).Inc() }
func (c *Collector) Rotation(result string)  { c.rotations.WithLabelValues(result).Inc() }
func (c *Collector) Revoked(n int64)         { c.revoked.Add(float64(n)) }
func (c *Collector) Purged(n int64)          { c.purged.Add(float64(n)) }

// Verification counts an access token check made by a transport.
func (c *Collector) Verification(transport string, ok bool) {
	status := "invalid"
	if ok {
		status = "valid"
	}
	c.verifications.WithLabelValues(transport, status).Inc()
}

// Request counts a served HTTP request.
func (c *Collector) Request(route string, code int) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry is exposed for tests and for registering extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
