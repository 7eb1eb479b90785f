package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkahng/gamecore/auth"
)

func TestIdentifyIssuesCookieWhenAbsent(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userIDFromContext(r.Context())
	})
	h := identify(auth.NoopAuthenticator{})(inner)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.NotEmpty(t, seen)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "gamecore_session", cookies[0].Name)
	require.Equal(t, seen, cookies[0].Value)
}

func TestIdentifyReusesExistingCookie(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userIDFromContext(r.Context())
	})
	h := identify(auth.NoopAuthenticator{})(inner)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: "gamecore_session", Value: "existing-id"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, "existing-id", seen)
	require.Empty(t, w.Result().Cookies())
}

type stubAuthenticator struct {
	userID string
	ok     bool
	err    error
}

func (s stubAuthenticator) Authenticate(*http.Request) (string, bool, error) {
	return s.userID, s.ok, s.err
}

func TestIdentifyPrefersAuthenticator(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userIDFromContext(r.Context())
	})
	h := identify(stubAuthenticator{userID: "jwt-user", ok: true})(inner)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, "jwt-user", seen)
}

func TestCorsReflectsAllowedOrigin(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := cors([]string{"http://localhost:3000"})(inner)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsOmitsHeaderForDisallowedOrigin(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := cors([]string{"http://localhost:3000"})(inner)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
