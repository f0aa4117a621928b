package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/bootstrap"
)

// noopLogger returns a slog.Logger that discards all output.
func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStatus is a test double that implements statusService.
type fakeStatus struct {
	state      bootstrap.State
	deepProbes map[string]bootstrap.ProbeResult
}

func (f *fakeStatus) IsReady() bool { return f.state == bootstrap.StateConnected }

func (f *fakeStatus) State() bootstrap.State { return f.state }

func (f *fakeStatus) RunDeepHealth(_ context.Context) map[string]bootstrap.ProbeResult {
	if f.deepProbes != nil {
		return f.deepProbes
	}
	return map[string]bootstrap.ProbeResult{}
}

func newPublicRouter() *Router {
	return NewRouter(Options{
		ServiceName:   "secureapp-backend-test",
		JSONBodyLimit: 1024,
		Logger:        noopLogger(),
	})
}

// newTestEngine builds a minimal Gin engine with only the given handler.
func newTestEngine(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h)
	return r
}

// --- Root handler ---

func TestRoot_ReturnsFixedMessage(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(http.MethodGet, "/", Root)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"message": "Secure Multi-Container Backend Running!"}`, w.Body.String())
}

// --- Public router ---

func TestNewRouter_Routes(t *testing.T) {
	t.Parallel()

	router := newPublicRouter()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodPost, "/foo", http.StatusNotFound},
		{http.MethodPost, "/", http.StatusNotFound},
		{http.MethodDelete, "/", http.StatusNotFound},
		{http.MethodHead, "/", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusNotFound},
		{http.MethodGet, "/ready", http.StatusNotFound},
		{http.MethodGet, "/api-docs/index.html", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		router.Handler().ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "route %s %s", tc.method, tc.path)
	}
}

func TestNewRouter_RootIsIdempotent(t *testing.T) {
	t.Parallel()

	router := newPublicRouter()
	for range 3 {
		w := httptest.NewRecorder()
		router.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body MessageResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, RootMessage, body.Message)
	}
}

// --- JSONBody middleware ---

func TestJSONBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{name: "GET / with valid JSON body", method: http.MethodGet, path: "/", contentType: "application/json", body: `{"a":1}`, want: http.StatusOK},
		{name: "GET / with malformed JSON body", method: http.MethodGet, path: "/", contentType: "application/json", body: `{"a":`, want: http.StatusBadRequest},
		{name: "POST /foo with malformed JSON is rejected before routing", method: http.MethodPost, path: "/foo", contentType: "application/json", body: `nope`, want: http.StatusBadRequest},
		{name: "POST /foo with valid JSON is not found", method: http.MethodPost, path: "/foo", contentType: "application/json", body: `[1,2]`, want: http.StatusNotFound},
		{name: "scalar JSON rejected", method: http.MethodGet, path: "/", contentType: "application/json", body: `"hello"`, want: http.StatusBadRequest},
		{name: "suffix content type parsed", method: http.MethodGet, path: "/", contentType: "application/merge-patch+json", body: `{bad`, want: http.StatusBadRequest},
		{name: "non-JSON content type ignored", method: http.MethodGet, path: "/", contentType: "text/plain", body: `{bad`, want: http.StatusOK},
		{name: "empty JSON body ignored", method: http.MethodGet, path: "/", contentType: "application/json", body: "  ", want: http.StatusOK},
		{name: "oversized body", method: http.MethodPost, path: "/foo", contentType: "application/json", body: `{"pad":"` + strings.Repeat("x", 2048) + `"}`, want: http.StatusRequestEntityTooLarge},
	}

	router := newPublicRouter()

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			router.Handler().ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusBadRequest || tc.want == http.StatusRequestEntityTooLarge {
				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "error", body["status"])
			}
		})
	}
}

func TestJSONBody_StoresAndRewindsBody(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(JSONBody(1024))

	var stored json.RawMessage
	var rebound map[string]int
	engine.POST("/echo", func(c *gin.Context) {
		v, ok := c.Get(JSONBodyKey)
		require.True(t, ok)
		stored = v.(json.RawMessage)
		require.NoError(t, c.ShouldBindJSON(&rebound))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"n":7}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.JSONEq(t, `{"n":7}`, string(stored))
	assert.Equal(t, 7, rebound["n"])
}

// --- Admin handlers ---

func TestHealth_AlwaysReturns200(t *testing.T) {
	t.Parallel()

	handler := &AdminHandler{status: &fakeStatus{state: bootstrap.StateFailed}}
	engine := newTestEngine(http.MethodGet, "/health", handler.Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "shallow", body["mode"])
}

func TestDeepHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		probes     map[string]bootstrap.ProbeResult
		wantCode   int
		wantStatus string
	}{
		{
			name:       "mongo healthy",
			probes:     map[string]bootstrap.ProbeResult{"mongo": {Name: "mongo", OK: true}},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "mongo not connected",
			probes:     map[string]bootstrap.ProbeResult{"mongo": {Name: "mongo", OK: false, Error: "not connected"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:       "circuit open",
			probes:     map[string]bootstrap.ProbeResult{"mongo": {Name: "mongo", OK: false, Error: "circuit open"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := &AdminHandler{status: &fakeStatus{deepProbes: tc.probes}}
			engine := newTestEngine(http.MethodGet, "/health/deep", handler.DeepHealth)

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/deep", nil))

			assert.Equal(t, tc.wantCode, w.Code)

			var body map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantStatus, body["status"])
			deps, ok := body["dependencies"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, deps, "mongo")
		})
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state     bootstrap.State
		wantCode  int
		wantReady bool
	}{
		{bootstrap.StateDisconnected, http.StatusServiceUnavailable, false},
		{bootstrap.StateConnecting, http.StatusServiceUnavailable, false},
		{bootstrap.StateFailed, http.StatusServiceUnavailable, false},
		{bootstrap.StateConnected, http.StatusOK, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.state), func(t *testing.T) {
			t.Parallel()

			handler := &AdminHandler{status: &fakeStatus{state: tc.state}}
			engine := newTestEngine(http.MethodGet, "/ready", handler.Ready)

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tc.wantCode, w.Code)

			var body map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantReady, body["ready"])
			assert.Equal(t, string(tc.state), body["state"])
		})
	}
}

// --- Recovery middleware ---

func TestRecoveryMiddleware_Returns500OnPanic(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(Recovery(noopLogger()))
	engine.GET("/panic", func(c *gin.Context) {
		panic("intentional test panic")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
}

// --- Admin router ---

func TestNewAdminRouter_RoutesRegistered(t *testing.T) {
	t.Parallel()

	router := NewAdminRouter(&fakeStatus{
		state:      bootstrap.StateConnected,
		deepProbes: map[string]bootstrap.ProbeResult{"mongo": {Name: "mongo", OK: true}},
	}, noopLogger())

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/deep", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/api-docs", http.StatusMovedPermanently},
		{http.MethodGet, "/api-docs/doc.json", http.StatusOK},
		{http.MethodGet, "/", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		router.Handler().ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "route %s %s", tc.method, tc.path)
	}
}
