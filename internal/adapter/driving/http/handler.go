// Package httphandler is the JSON HTTP driving adapter for the account
// store and the quote test dispatcher.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
	"github.com/signalforge/signalforge/internal/observability"
)

// adminRole is the role claim required for host-level endpoints.
const adminRole = "ADMIN"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	accounts *application.AccountService
	quotes   *application.QuoteDispatcher
	system   driven.SystemProbe
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. system may be
// nil, in which case the system endpoint answers 503.
func NewHandler(
	accounts *application.AccountService,
	quotes *application.QuoteDispatcher,
	system driven.SystemProbe,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts: accounts,
		quotes:   quotes,
		system:   system,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with metrics, logging and recovery middleware. Core routes are served both
// at their bare paths and under /api/v1. gate and metrics may be nil.
func NewServeMux(h *Handler, gate *Gate, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	session := gate.RequireSession
	admin := func(next http.Handler) http.Handler {
		return gate.RequireSession(gate.RequireRole(adminRole, next))
	}

	for _, prefix := range []string{"", "/api/v1"} {
		mux.Handle("GET "+prefix+"/accounts/{class}", session(http.HandlerFunc(h.ListAccounts)))
		mux.Handle("GET "+prefix+"/accounts/{class}/{id}", session(http.HandlerFunc(h.GetAccount)))
		mux.Handle("POST "+prefix+"/accounts/{class}", session(http.HandlerFunc(h.CreateAccount)))
		mux.Handle("PUT "+prefix+"/accounts/{class}", session(http.HandlerFunc(h.UpdateAccount)))
		mux.Handle("DELETE "+prefix+"/accounts/{class}", session(http.HandlerFunc(h.DeleteAccount)))
		mux.Handle("POST "+prefix+"/quote-test", session(http.HandlerFunc(h.TestQuote)))
	}

	mux.Handle("GET /api/v1/system", admin(http.HandlerFunc(h.System)))
	mux.HandleFunc("GET /api/v1/health", h.Health)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, metrics, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// System returns a snapshot of the host running the console.
func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeError(w, http.StatusServiceUnavailable, "system info unavailable")
		return
	}

	snap, err := h.system.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to read system info", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch system info")
		return
	}

	writeJSON(w, http.StatusOK, toSystemResponse(snap))
}
