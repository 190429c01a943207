// Package web provides an HTTP status server for the lock controller daemon.
package web

import (
	"context"
	"io"
	"net/http"

	"github.com/sweeney/lock-controller/internal/status"
)

// Server serves the status page, JSON status and Prometheus metrics.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	page := render("text/html; charset=utf-8", func(w io.Writer) {
		renderHTML(w, s.tracker.Snapshot())
	})
	mux := http.NewServeMux()
	mux.Handle("/", exact("/", page))
	mux.Handle("/index.html", page)
	mux.Handle("/index.json", render("application/json", func(w io.Writer) {
		w.Write(status.FormatJSON(s.tracker.Snapshot()))
	}))
	mux.Handle("/metrics", render("text/plain; version=0.0.4", s.tracker.WriteMetrics))

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// render serves a body freshly written by fn on every request.
func render(contentType string, fn func(io.Writer)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		fn(w)
	})
}

// exact restricts h to path; the "/" pattern otherwise matches everything.
func exact(path string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
