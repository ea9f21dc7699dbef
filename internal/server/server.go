// Package server provides the HTTP server for plcmirror, built on Echo
// v4. It hosts the read-only did:plc resolution route and the raw
// operation-log export route; it holds no authority of its own and
// defers every validation decision to internal/plccore.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/primal-host/plcmirror/internal/plccore"
	"github.com/primal-host/plcmirror/internal/store"
)

// dataStore is the subset of *store.Store the HTTP routes need, narrowed
// to an interface so tests can exercise routes.go against a fake.
type dataStore interface {
	OpsForDID(ctx context.Context, did string) ([]plccore.IndexedOperation, error)
	ExportStream(ctx context.Context, after time.Time, count int, did string) ([]store.ExportRow, error)
	Cursor(ctx context.Context) (time.Time, error)
}

// mustMarshal encodes v, falling back to an empty JSON object on the
// encoding errors that cannot occur for the types this package sends
// (plccore.Document, store.ExportRow, map[string]any literals).
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// Server wraps the Echo instance and application dependencies.
type Server struct {
	echo  *echo.Echo
	addr  string
	store dataStore
}

// New creates a configured Echo server with all routes registered.
func New(addr string, st dataStore) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true // We log the listen address ourselves.

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
	}))

	s := &Server{
		echo:  e,
		addr:  addr,
		store: st,
	}

	s.registerRoutes()
	return s
}

// Start begins listening for HTTP requests. It blocks until the context
// is cancelled, then performs a graceful shutdown allowing in-flight
// requests to complete.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", s.addr)
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		return s.echo.Shutdown(context.Background())
	}
}
