package status

import (
	"crypto/rand"
	"net/http"

	"github.com/cbusboot/cbusboot-go/internal/logs"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

// This package serves the status page on /status/ and the
// detailed log at /status/log.gz

// Core is implemented by core.Core.
type Core interface {
	LastLocation() string
	LastError() error
}

type status struct {
	core                                Core
	version                             string
	shortMemoryWriter, longMemoryWriter *logs.MemoryWriter
	logger                              *logs.Logger
}

func ServeStatusRedirect(r *mux.Router) {
	r.HandleFunc("/", redirect)
	r.Use(OriginCheck(map[string]string{
		"/": "",
	}))
}

func redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/status/", http.StatusMovedPermanently)
}

// ServeStatus registers the status routes. origin is the server's own
// origin, the only one allowed to request the log download.
func ServeStatus(r *mux.Router, c Core, v, origin string, mw, dmw *logs.MemoryWriter) error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return err
	}

	status := &status{
		core:              c,
		version:           v,
		shortMemoryWriter: mw,
		longMemoryWriter:  dmw,
		logger:            logs.New(dmw),
	}
	r.Methods("GET").Path("/").HandlerFunc(status.statusPage)
	r.Methods("POST").Path("/log.gz").HandlerFunc(status.statusGzip)

	r.Use(csrf.Protect(key, csrf.Secure(false), csrf.Path("/status/")))
	r.Use(OriginCheck(map[string]string{
		"/status/":       "",
		"/status/log.gz": origin,
	}))
	return nil
}

func (s *status) header() string {
	location := s.core.LastLocation()
	if location == "" {
		location = "not located yet"
	}
	return s.version + "\nadapter: " + location + "\n"
}

func (s *status) statusGzip(w http.ResponseWriter, r *http.Request) {
	s.logger.Log("building gzip")

	gzip, err := s.longMemoryWriter.Gzip(s.header() + "\nCurrent log:\n")
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/gzip")

	_, err = w.Write(gzip)
	if err != nil {
		respondError(w, err)
		return
	}
}

func (s *status) statusPage(w http.ResponseWriter, r *http.Request) {
	s.logger.Log("building status page")

	log, err := s.shortMemoryWriter.String(s.header())
	if err != nil {
		respondError(w, err)
		return
	}

	lastErr := s.core.LastError()
	strErr := ""
	if lastErr != nil {
		strErr = lastErr.Error()
	}

	data := &statusTemplateData{
		Version:   s.version,
		Location:  s.core.LastLocation(),
		Log:       log,
		IsError:   lastErr != nil,
		Error:     strErr,
		CSRFField: csrf.TemplateField(r),
	}

	err = statusTemplate.Execute(w, data)
	if err != nil {
		respondError(w, err)
		return
	}
}

func respondError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}
