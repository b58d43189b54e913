package status

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbusboot/cbusboot-go/internal/logs"
)

const testOrigin = "http://127.0.0.1:21330"

type fakeCore struct {
	location string
	err      error
}

func (f *fakeCore) LastLocation() string { return f.location }
func (f *fakeCore) LastError() error     { return f.err }

func newRouter(t *testing.T, c Core) *mux.Router {
	t.Helper()
	short, err := logs.NewMemoryWriter(20, 5, false, nil)
	require.NoError(t, err)
	long, err := logs.NewMemoryWriter(100, 10, false, nil)
	require.NoError(t, err)
	_, err = long.Write([]byte("enter ok\n"))
	require.NoError(t, err)

	r := mux.NewRouter()
	require.NoError(t, ServeStatus(r.PathPrefix("/status").Subrouter(), c, "1.2.3", testOrigin, short, long))
	ServeStatusRedirect(r.Methods("GET").Path("/").Subrouter())
	return r
}

func get(r http.Handler, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusPage(t *testing.T) {
	r := newRouter(t, &fakeCore{location: "COM4", err: errors.New("exit: adapter busy")})

	w := get(r, "/status/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Version: 1.2.3")
	assert.Contains(t, body, "COM4")
	assert.Contains(t, body, "exit: adapter busy")
	assert.Contains(t, body, "gorilla.csrf.Token")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestStatusPageNotLocated(t *testing.T) {
	w := get(newRouter(t, &fakeCore{}), "/status/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Adapter not located yet")
	assert.NotContains(t, w.Body.String(), "Last error")
}

func TestStatusPageForeignOrigin(t *testing.T) {
	w := get(newRouter(t, &fakeCore{}), "/status/", "https://evil.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRedirect(t *testing.T) {
	w := get(newRouter(t, &fakeCore{}), "/", "")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/status/", w.Header().Get("Location"))
}

func TestLogGzipNeedsToken(t *testing.T) {
	req := httptest.NewRequest("POST", "/status/log.gz", nil)
	req.Header.Set("Origin", testOrigin)
	w := httptest.NewRecorder()
	newRouter(t, &fakeCore{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

var tokenRegex = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func TestLogGzip(t *testing.T) {
	r := newRouter(t, &fakeCore{location: "/dev/ttyUSB0"})

	page := get(r, "/status/", "")
	require.Equal(t, http.StatusOK, page.Code)
	m := tokenRegex.FindStringSubmatch(page.Body.String())
	require.Len(t, m, 2)

	post := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/status/log.gz", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("X-CSRF-Token", m[1])
		for _, c := range page.Result().Cookies() {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, post("http://localhost:8000").Code)

	w := post(testOrigin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))

	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	text, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(text), "1.2.3\nadapter: /dev/ttyUSB0\n")
	assert.Contains(t, string(text), "enter ok")
}
