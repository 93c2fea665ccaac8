package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sessiondom "ayyooya/internal/domain/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

type fixed sessiondom.Session

func (f fixed) Current() sessiondom.Session { return sessiondom.Session(f) }

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRequireAdmin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)

	w := serve(RequireAdmin(fixed(sessiondom.Anonymous()))(okHandler), req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(RequireAdmin(fixed(sessiondom.SignedIn("u", "a@x", sessiondom.RoleUser)))(okHandler), req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"admin role required","code":"forbidden"}`, w.Body.String())

	w = serve(RequireAdmin(fixed(sessiondom.SignedIn("u", "a@x", sessiondom.RoleAdmin)))(okHandler), req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(RequireSession(fixed(sessiondom.Anonymous()))(okHandler), req).Code)
	assert.Equal(t, http.StatusOK, serve(RequireSession(fixed(sessiondom.SignedIn("u", "", "")))(okHandler), req).Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000/"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(h, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0.0001, 2)
	h := l.Handler(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, req).Code)

	other := httptest.NewRequest(http.MethodGet, "/products", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, serve(h, other).Code)

	assert.True(t, NewRateLimiter(0, 1).Allow("x"))
}

func TestRecover(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	w := serve(Recover(zap.NewNop())(boom), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
