package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router exposes the same API over plain HTTP for local development.
func (h *Handler) Router(timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get(RouteHealth, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	r.Post(RouteChat, h.httpRoute(RouteChat))
	r.Post(RouteContact, h.httpRoute(RouteContact))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not Found"}, correlationIDFromRequest(req))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method Not Allowed"}, correlationIDFromRequest(req))
	})

	return otelhttp.NewHandler(r, "portfolio-api")
}

func (h *Handler) httpRoute(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corrID := correlationIDFromRequest(r)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			status, payload := h.fail(r.Context(), request{route: route, correlationID: corrID}, failureMessage(route), fmt.Errorf("read request body: %w", err))
			writeJSON(w, status, payload, corrID)
			return
		}

		status, payload := h.serve(r.Context(), request{
			route:         route,
			body:          body,
			clientID:      clientIP(r.RemoteAddr),
			correlationID: corrID,
		})
		writeJSON(w, status, payload, corrID)
	}
}

func correlationIDFromRequest(r *http.Request) string {
	if v := r.Header.Get(correlationHeader); v != "" {
		return v
	}
	if v := middleware.GetReqID(r.Context()); v != "" {
		return v
	}
	return newCorrelationID()
}

// clientIP strips the port from RemoteAddr. RealIP has already replaced it
// with the forwarded address when one was present.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any, corrID string) {
	w.Header().Set("Content-Type", "application/json")
	if corrID != "" {
		w.Header().Set(correlationHeader, corrID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
