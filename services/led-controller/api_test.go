package main

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summmmi/socket.ooo/internal/noise"
)

func newTestMux(t *testing.T) (http.Handler, *controllerFixture) {
	t.Helper()
	f := startController(t)
	mux := http.NewServeMux()
	NewAPIHandler(f.ctrl, f.sampler, discardLogger()).RegisterRoutes(mux)
	mux.Handle("GET /health", NewHealthHandler(f.ctrl, discardLogger()))
	return CorsMiddleware(mux), f
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPIState(t *testing.T) {
	h, f := newTestMux(t)

	rr := do(t, h, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var st State
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&st))
	assert.Equal(t, f.sampler.Blocks(noise.Offset{}, 0), st.Raw)
	assert.Equal(t, "disconnected", st.Connection)
}

func TestAPIPan(t *testing.T) {
	h, f := newTestMux(t)

	rr := do(t, h, http.MethodPost, "/api/pan", `{"dx": 12.5, "dy": -3}`)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, noise.Offset{X: 12.5, Y: -3}, f.state(t).Offset)

	rr = do(t, h, http.MethodPost, "/api/pan", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIPointer(t *testing.T) {
	h, f := newTestMux(t)

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/pointer/down", `{"x":100,"y":100}`).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/pointer/move", `{"x":90,"y":130}`).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/pointer/up", ``).Code)

	assert.Equal(t, noise.Offset{X: -10, Y: 30}, f.state(t).Offset)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/pointer/sideways", `{}`).Code)
}

func TestAPITransmit(t *testing.T) {
	h, _ := newTestMux(t)

	rr := do(t, h, http.MethodPost, "/api/transmit", "")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var tx struct {
		Payload struct {
			Block1    map[string]int `json:"block1"`
			Timestamp string         `json:"timestamp"`
		} `json:"payload"`
		Published bool `json:"published"`
		Recorded  bool `json:"recorded"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tx))
	assert.False(t, tx.Published, "broker is not connected in tests")
	assert.True(t, tx.Recorded)
	assert.Contains(t, tx.Payload.Block1, "r")
	assert.NotEmpty(t, tx.Payload.Timestamp)
}

func TestAPITransmitName(t *testing.T) {
	h, _ := newTestMux(t)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/transmit/green", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/transmit/purple", "").Code)
}

func TestAPIPreview(t *testing.T) {
	h, _ := newTestMux(t)

	rr := do(t, h, http.MethodGet, "/api/preview.png?w=8&h=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/preview.png?w=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/preview.png?h=5000", "").Code)
}

func TestAPIMethodNotAllowed(t *testing.T) {
	h, _ := newTestMux(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/state", "").Code)
}

func TestCorsPreflight(t *testing.T) {
	h, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transmit", nil)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPlainOptionsIsNotPreflight(t *testing.T) {
	h, f := newTestMux(t)

	rr := do(t, h, http.MethodOptions, "/api/transmit", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), http.MethodPost)
	assert.Empty(t, f.rec.records(), "nothing is transmitted")
}

func TestHealth(t *testing.T) {
	h, f := newTestMux(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var out Health
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "disconnected", out.Connection)

	f.cancel()
	<-f.ctrl.stopped
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health", "").Code)
}
