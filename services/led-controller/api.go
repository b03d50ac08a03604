package main

import (
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/summmmi/socket.ooo/internal/noise"
)

// Limity náhledu, aby si klient nemohl vyžádat obří obrázek.
const (
	previewDefaultW = 320
	previewDefaultH = 240
	previewMax      = 1024
)

// APIHandler obsluhuje REST rozhraní ovladače.
// Veškerý stav drží Controller, handler jen překládá HTTP na příkazy.
type APIHandler struct {
	ctrl    *Controller
	sampler *noise.Sampler
	logger  *slog.Logger
}

func NewAPIHandler(ctrl *Controller, sampler *noise.Sampler, logger *slog.Logger) *APIHandler {
	return &APIHandler{ctrl: ctrl, sampler: sampler, logger: logger}
}

// RegisterRoutes mapuje URL cesty na handlery (router Go 1.22+).
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("POST /api/pan", h.handlePan)
	mux.HandleFunc("POST /api/pointer/{action}", h.handlePointer)
	mux.HandleFunc("POST /api/transmit", h.handleTransmit)
	mux.HandleFunc("POST /api/transmit/{name}", h.handleTransmitName)
	mux.HandleFunc("GET /api/preview.png", h.handlePreview)
}

// handleState: GET /api/state
func (h *APIHandler) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.State(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePan: POST /api/pan {"dx": .., "dy": ..}
func (h *APIHandler) handlePan(w http.ResponseWriter, r *http.Request) {
	var in PanInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Neplatné JSON tělo", http.StatusBadRequest)
		return
	}
	if err := h.ctrl.Pan(r.Context(), in); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePointer: POST /api/pointer/{down|move|up} {"x": .., "y": ..}
func (h *APIHandler) handlePointer(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var in PointerInput
	if action != "up" {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "Neplatné JSON tělo", http.StatusBadRequest)
			return
		}
	}

	var err error
	switch action {
	case "down":
		err = h.ctrl.PointerDown(r.Context(), in)
	case "move":
		err = h.ctrl.PointerMove(r.Context(), in)
	case "up":
		err = h.ctrl.PointerUp(r.Context())
	default:
		http.Error(w, "Neznámá akce ukazatele", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTransmit: POST /api/transmit
// 202: publish i insert běží na pozadí, odpověď nečeká na jejich výsledek.
func (h *APIHandler) handleTransmit(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ctrl.Transmit(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

// handleTransmitName: POST /api/transmit/{name}
func (h *APIHandler) handleTransmitName(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ctrl.TransmitName(r.Context(), r.PathValue("name"))
	if errors.Is(err, ErrUnknownColor) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

// handlePreview: GET /api/preview.png?w=320&h=240
func (h *APIHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	width, ok := dimension(r.URL.Query().Get("w"), previewDefaultW)
	if !ok {
		http.Error(w, "Neplatná šířka", http.StatusBadRequest)
		return
	}
	height, ok := dimension(r.URL.Query().Get("h"), previewDefaultH)
	if !ok {
		http.Error(w, "Neplatná výška", http.StatusBadRequest)
		return
	}

	st, err := h.ctrl.State(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	img := h.sampler.Render(width, height, st.Offset, st.Time)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		h.logger.Error("Chyba při kódování PNG", "error", err)
	}
}

// fail mapuje chyby smyčky ovladače na HTTP status.
func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrStopped) {
		http.Error(w, "Ovladač se vypíná", http.StatusServiceUnavailable)
		return
	}
	h.logger.Error("Chyba požadavku", "error", err)
	http.Error(w, "Interní chyba serveru", http.StatusInternalServerError)
}

func dimension(s string, fallback int) (int, bool) {
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > previewMax {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CorsMiddleware povolí volání z UI běžícího na jiném originu.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Preflight. Obyčejný OPTIONS jde do routeru (405 s Allow).
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
