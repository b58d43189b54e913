package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cbusboot/cbusboot-go/internal/logs"
	"github.com/cbusboot/cbusboot-go/internal/server/api"
	"github.com/cbusboot/cbusboot-go/internal/server/status"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Core is what the API and the status page need from core.Core.
type Core interface {
	api.Core
	status.Core
}

type serverPrivate struct {
	*http.Server
}

type Server struct {
	serverPrivate

	writer io.Writer
}

func New(
	c Core,
	listen string,
	stderrWriter io.Writer,
	shortWriter *logs.MemoryWriter,
	longWriter *logs.MemoryWriter,
	version string,
) (*Server, error) {
	logger := logs.New(longWriter)
	logger.Log("starting")

	https := &http.Server{
		Addr:              listen,
		ReadHeaderTimeout: 10 * time.Second,
	}

	allWriter := io.MultiWriter(stderrWriter, shortWriter, longWriter)
	s := &Server{
		serverPrivate: serverPrivate{
			Server: https,
		},
		writer: allWriter,
	}

	r := mux.NewRouter()
	statusRouter := r.PathPrefix("/status").Subrouter()
	postRouter := r.Methods("POST", "OPTIONS").Subrouter()
	redirectRouter := r.Methods("GET").Path("/").Subrouter()

	if err := status.ServeStatus(statusRouter, c, version, "http://"+listen, shortWriter, longWriter); err != nil {
		return nil, err
	}
	api.ServeAPI(postRouter, c, version, logger)

	status.ServeStatusRedirect(redirectRouter)

	var h http.Handler = r

	// Log after the request is done, in the Apache format.
	h = handlers.LoggingHandler(allWriter, h)
	// Log when the request is received.
	h = s.logRequest(h)

	https.Handler = h

	logger.Log("server created")
	return s, nil
}

func (s *Server) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := fmt.Sprintf("%s %s\n", r.Method, r.URL)
		_, err := s.writer.Write([]byte(text))
		if err != nil {
			// give up, just print on stdout
			fmt.Println(err)
		}
		handler.ServeHTTP(w, r)
	})
}

func (s *Server) Run() error {
	return s.ListenAndServe()
}
