package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// APIHandler obsluhuje čtecí REST rozhraní historie barev.
type APIHandler struct {
	svc     *Service
	metrics *Metrics
	logger  *slog.Logger
}

func NewAPIHandler(svc *Service, metrics *Metrics, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, metrics: metrics, logger: logger}
}

// RegisterRoutes mapuje URL cesty na handlery.
// /api/color je bez metody v patternu: 405 s hlavičkou Allow si řeší sám.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/color", h.handleLatest)
	mux.HandleFunc("GET /api/colors", h.handleRecent)
}

// handleLatest: GET /api/color
func (h *APIHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	const route = "/api/color"

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, fmt.Sprintf("Method %s Not Allowed", r.Method), http.StatusMethodNotAllowed)
		h.metrics.observe(route, http.StatusMethodNotAllowed)
		return
	}

	color, err := h.svc.LatestColor(r.Context())
	if err != nil {
		h.logger.Error("Chyba při získávání poslední barvy", "error", err)
		h.writeJSON(w, route, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, route, http.StatusOK, color)
}

// handleRecent: GET /api/colors?limit=20
func (h *APIHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	const route = "/api/colors"

	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			h.writeJSON(w, route, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("limit musí být číslo 1-%d", maxLimit),
			})
			return
		}
		limit = n
	}

	colors, err := h.svc.RecentColors(r.Context(), limit)
	if err != nil {
		h.logger.Error("Chyba při získávání historie", "limit", limit, "error", err)
		h.writeJSON(w, route, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, route, http.StatusOK, colors)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, route string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Chyba při zápisu JSON odpovědi", "error", err)
	}
	h.metrics.observe(route, status)
}

// CorsMiddleware povolí volání API z prohlížeče na jiném originu.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Preflight. Obyčejný OPTIONS jde do routeru (405 s Allow).
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
