package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/cbusboot/cbusboot-go/internal/core"
	"github.com/cbusboot/cbusboot-go/internal/logs"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// This package serves the JSON API. The bootloader logic lives in core;
// here we only decode the request, call core and encode the reply.

// Core is implemented by core.Core.
type Core interface {
	Locate() (string, error)
	Enter() error
	Exit() error
	Flash(ctx context.Context, firmware string) (string, error)
}

type VersionInfo struct {
	Version string `json:"version"`
}

type LocationInfo struct {
	Location string `json:"location"`
}

type FlashRequest struct {
	Firmware string `json:"firmware"`
}

type api struct {
	core    Core
	version string
	logger  *logs.Logger
}

func ServeAPI(r *mux.Router, c Core, v string, l *logs.Logger) {
	api := &api{
		core:    c,
		version: v,
		logger:  l,
	}
	r.HandleFunc("/", api.Info)
	r.HandleFunc("/locate", api.Locate)
	r.HandleFunc("/enter", api.Enter)
	r.HandleFunc("/exit", api.Exit)
	r.HandleFunc("/flash", api.Flash)

	validator := corsValidator()
	r.Use(rejectOrigin(validator))
	r.Use(handlers.CORS(
		handlers.AllowedOriginValidator(handlers.OriginValidator(validator)),
		handlers.AllowedMethods([]string{"POST"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	))
}

func (a *api) Info(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("version " + a.version)
	err := json.NewEncoder(w).Encode(VersionInfo{Version: a.version})
	a.checkJSONError(w, err)
}

func (a *api) Locate(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("start")
	location, err := a.core.Locate()
	if err != nil {
		a.respondError(w, err)
		return
	}
	err = json.NewEncoder(w).Encode(LocationInfo{Location: location})
	a.checkJSONError(w, err)
}

func (a *api) Enter(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("start")
	a.respondEmpty(w, a.core.Enter())
}

func (a *api) Exit(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("start")
	a.respondEmpty(w, a.core.Exit())
}

func (a *api) Flash(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("decoding request")

	var req FlashRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	defer func() {
		errClose := r.Body.Close()
		if errClose != nil {
			a.logger.Log("Error on request close: " + errClose.Error())
		}
	}()
	if err != nil {
		a.respondError(w, err)
		return
	}
	if req.Firmware == "" {
		a.respondError(w, errors.New("firmware path missing"))
		return
	}

	location, err := a.core.Flash(r.Context(), req.Firmware)
	if err != nil {
		a.respondError(w, err)
		return
	}
	err = json.NewEncoder(w).Encode(LocationInfo{Location: location})
	a.checkJSONError(w, err)
}

// Only pages served from this machine may drive the adapter.
func corsValidator() func(string) bool {
	lregex := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:[[:digit:]]{1,5})?$`)
	return lregex.MatchString
}

// handlers.CORS only leaves out the CORS headers for a foreign origin; the
// request must not reach core at all.
func rejectOrigin(allowed func(string) bool) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !allowed(origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

func (a *api) respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		a.respondError(w, err)
		return
	}
	err = json.NewEncoder(w).Encode(struct{}{})
	a.checkJSONError(w, err)
}

func (a *api) checkJSONError(w http.ResponseWriter, err error) {
	if err != nil {
		a.respondError(w, err)
	}
}

func (a *api) respondError(w http.ResponseWriter, err error) {
	type jsonError struct {
		Error string `json:"error"`
	}
	a.logger.Log("Returning error: " + err.Error())

	code := http.StatusBadRequest
	if errors.Is(err, core.ErrOtherCall) {
		code = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	// if even the encoder of the error errors, just log the error
	err = json.NewEncoder(w).Encode(jsonError{
		Error: err.Error(),
	})
	if err != nil {
		a.logger.Log("Error while writing error: " + err.Error())
	}
}
