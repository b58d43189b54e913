package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbusboot/cbusboot-go/internal/logs"
)

type fakeCore struct{}

func (fakeCore) Locate() (string, error) { return "COM9", nil }
func (fakeCore) Enter() error            { return nil }
func (fakeCore) Exit() error             { return nil }
func (fakeCore) LastLocation() string    { return "COM9" }
func (fakeCore) LastError() error        { return nil }

func (fakeCore) Flash(ctx context.Context, firmware string) (string, error) {
	return "COM9", nil
}

func TestServerRoutesAndLogs(t *testing.T) {
	short, err := logs.NewMemoryWriter(20, 5, false, nil)
	require.NoError(t, err)
	long, err := logs.NewMemoryWriter(100, 10, false, nil)
	require.NoError(t, err)
	var stderr bytes.Buffer

	s, err := New(fakeCore{}, "127.0.0.1:21330", &stderr, short, long, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:21330", s.Addr)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/locate", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"location":"COM9"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/status/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "COM9")

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)

	assert.Contains(t, stderr.String(), "POST /locate\n")
	assert.Contains(t, stderr.String(), `"POST /locate HTTP/1.1" 200`)

	log, err := long.String("")
	require.NoError(t, err)
	assert.Contains(t, log, "GET /status/")
}
