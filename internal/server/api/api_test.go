package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/core"
)

func TestOriginValidator(t *testing.T) {
	testcases := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost", true},
		{"http://localhost:8000", true},
		{"https://localhost:5173", true},
		{"http://127.0.0.1:21330", true},
		{"null", false},
		{"http://localhost.evil.com", false},
		{"http://evil.com", false},
		{"http://127.0.0.2", false},
		{"ftp://localhost", false},
	}
	v := corsValidator()
	for _, tc := range testcases {
		assert.Equal(t, tc.allow, v(tc.origin), tc.origin)
	}
}

type fakeCore struct {
	location string
	err      error
	firmware string
}

func (f *fakeCore) Locate() (string, error) { return f.location, f.err }
func (f *fakeCore) Enter() error            { return f.err }
func (f *fakeCore) Exit() error             { return f.err }

func (f *fakeCore) Flash(ctx context.Context, firmware string) (string, error) {
	f.firmware = firmware
	return f.location, f.err
}

func serve(c Core, method, path, origin, body string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	ServeAPI(r.Methods("POST", "OPTIONS").Subrouter(), c, "1.2.3", nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInfo(t *testing.T) {
	w := serve(&fakeCore{}, "POST", "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, w.Body.String())
}

func TestLocate(t *testing.T) {
	w := serve(&fakeCore{location: "COM4"}, "POST", "/locate", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"location":"COM4"}`, w.Body.String())
}

func TestLocateNotFound(t *testing.T) {
	err := &core.PhaseError{Phase: core.PhaseLocate, Err: adapter.ErrDeviceNotFound}
	w := serve(&fakeCore{err: err}, "POST", "/locate", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"locate: device not found"}`, w.Body.String())
}

func TestEnterExit(t *testing.T) {
	for _, path := range []string{"/enter", "/exit"} {
		w := serve(&fakeCore{}, "POST", path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{}`, w.Body.String(), path)
	}
}

func TestFlash(t *testing.T) {
	c := &fakeCore{location: "/dev/ttyUSB0"}
	w := serve(c, "POST", "/flash", "", `{"firmware":"/tmp/fw.bin"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"location":"/dev/ttyUSB0"}`, w.Body.String())
	assert.Equal(t, "/tmp/fw.bin", c.firmware)
}

func TestFlashBadRequest(t *testing.T) {
	for _, body := range []string{"", "{", `{"firmware":""}`} {
		w := serve(&fakeCore{}, "POST", "/flash", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestOtherCallIsConflict(t *testing.T) {
	w := serve(&fakeCore{err: core.ErrOtherCall}, "POST", "/flash", "", `{"firmware":"fw.bin"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"other call in progress"}`, w.Body.String())
}

func TestForeignOriginRejected(t *testing.T) {
	c := &fakeCore{err: errors.New("must not be called")}
	w := serve(c, "POST", "/enter", "https://evil.com", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLocalOriginGetsCORSHeader(t *testing.T) {
	w := serve(&fakeCore{location: "COM4"}, "POST", "/locate", "http://localhost:8000", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:8000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	r := mux.NewRouter()
	ServeAPI(r.Methods("POST", "OPTIONS").Subrouter(), &fakeCore{}, "1.2.3", nil)

	req := httptest.NewRequest("OPTIONS", "/flash", nil)
	req.Header.Set("Origin", "http://localhost:8000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:8000", w.Header().Get("Access-Control-Allow-Origin"))
}
