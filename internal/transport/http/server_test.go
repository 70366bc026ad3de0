package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripTrailingSlash(t *testing.T) {
	var seen string
	h := StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	for in, want := range map[string]string{"/users/": "/users", "/users/3//": "/users/3", "/": "/", "/recap/daily": "/recap/daily"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, in, nil))
		require.Equal(t, want, seen, in)
	}
}

func TestCORSAnswersPreflight(t *testing.T) {
	called := false
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }), CORS("http://localhost:5173"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tracks", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))
	require.True(t, called)
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
