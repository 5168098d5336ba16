// Package server exposes flowsketch over an HTTP JSON API for browser front
// ends.
//
// The API is stateless: every request carries the conversation and the
// current diagram source. Routes:
//
//	GET  /healthz
//	POST /api/chat        conversation -> diagram or message
//	POST /api/fix         broken source + diagnostic -> fixed source
//	POST /api/clean       model output -> cleaned source
//	POST /api/recolor     source + overrides -> recoloured source
//	POST /api/directive   source + theme variable -> value
//	POST /api/colors      source -> palette
//	POST /api/render      source -> SVG
//	POST /api/export      source + format -> SVG, PNG or PDF download
//	GET  /api/gallery
//	GET  /api/gallery/{id}
//
// Errors are JSON objects {"code", "message"}; render syntax errors respond
// 422 with the renderer's diagnostic.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/gateway"
	"github.com/matzehuels/flowsketch/pkg/pipeline"
)

// DefaultMaxBodyBytes bounds request bodies when Server.MaxBodyBytes is zero.
// Attachments travel base64 encoded, so it sits above gateway.MaxAttachmentSize.
const DefaultMaxBodyBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

// Server serves the API.
type Server struct {
	Gateway *gateway.Gateway
	Runner  *pipeline.Runner
	Patcher *diagram.Patcher
	Logger  *log.Logger

	// Options are the render defaults; requests may override theme,
	// background and scale.
	Options pipeline.Options

	// Locale is used when a request has neither a locale field nor an
	// Accept-Language header.
	Locale string

	MaxBodyBytes int64
}

func (s *Server) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger()))
	r.Use(middleware.Recoverer)
	r.Use(bodyLimit(limit))

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Post("/fix", s.fix)
		r.Post("/clean", s.clean)
		r.Post("/recolor", s.recolor)
		r.Post("/directive", s.directive)
		r.Post("/colors", s.colors)
		r.Post("/render", s.render)
		r.Post("/export", s.export)
		r.Get("/gallery", s.galleryList)
		r.Get("/gallery/{id}", s.galleryGet)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
