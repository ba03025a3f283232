package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/akolanti/filebook/internal/auth"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Middleware runs every request through trace injection, the per-IP limiter
// and, for protected routes, bearer authentication.
type Middleware struct {
	verifier *auth.Verifier
	limiter  *IPRateLimiter
}

func New(verifier *auth.Verifier, limiter *IPRateLimiter) *Middleware {
	if limiter == nil {
		limiter = NewDefaultIPRateLimiter()
	}
	return &Middleware{verifier: verifier, limiter: limiter}
}

// Wrap protects next with authentication.
func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, true)
}

// Public is Wrap without authentication, for liveness probes.
func (m *Middleware) Public(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, false)
}

func (m *Middleware) wrap(next http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := m.processRequest(requestResponseStruct{req: r, writer: rec}, requireAuth)

		if handleBadRequest(re) {
			next(rec, re.req)
		}

		route := routePattern(re.req)
		metrics.HttpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc() //metrics
		metrics.CaptureRequestMetrics(route, strconv.Itoa(rec.Status), time.Since(start))
	}
}

func (m *Middleware) processRequest(re requestResponseStruct, requireAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = m.rateLimiter(re)
	if re.badRequest.isBadRequest || !requireAuth {
		return re
	}
	return m.authenticate(re)
}

// routePattern keeps metric labels bounded by using the chi pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
