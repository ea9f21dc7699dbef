package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/primal-host/plcmirror/internal/plcerr"
	"github.com/primal-host/plcmirror/internal/plccore"
)

// writeError classifies err into an expected failure versus an
// internal one: a plcerr.ValidationError is safe to report verbatim
// (it describes why a DID's log is broken, not an implementation
// detail); anything else is logged server-side and reported to the
// client as a generic failure.
func writeError(c echo.Context, err error) error {
	var ve plcerr.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": ve.Error()})
	}
	log.Printf("server: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
}

// registerRoutes wires the did:plc mirror's read-only HTTP surface.
func (s *Server) registerRoutes() {
	s.echo.GET("/xrpc/_health", s.handleHealth)
	s.echo.GET("/export", s.handleExport)
	s.echo.GET("/:id", s.handleResolve)
}

// handleResolve loads the operation log for the requested DID, folds it
// through plccore.ValidateLog, and returns the resulting document.
// Accepts both "did:plc:<id>" and a bare "<id>" in the path, matching
// the upstream directory's routing.
func (s *Server) handleResolve(c echo.Context) error {
	id := c.Param("id")
	did := id
	if !strings.HasPrefix(did, "did:plc:") {
		did = "did:plc:" + did
	}

	ctx := c.Request().Context()
	ops, err := s.store.OpsForDID(ctx, did)
	if err != nil {
		return writeError(c, err)
	}
	if len(ops) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "DID not found"})
	}

	doc, err := plccore.ValidateLog(did, ops)
	if err != nil {
		return writeError(c, err)
	}
	if doc == nil {
		return c.JSON(http.StatusGone, map[string]string{"message": "DID tombstoned"})
	}

	return c.Blob(http.StatusOK, "application/did+ld+json", mustMarshal(doc))
}

// handleExport streams the raw, unvalidated operation log as newline
// delimited JSON, the wire format importer.Importer itself consumes
// when scraping an upstream directory.
func (s *Server) handleExport(c echo.Context) error {
	ctx := c.Request().Context()

	count := 1000
	if raw := c.QueryParam("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	var after time.Time
	if raw := c.QueryParam("after"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			after = t
		}
	}

	did := c.QueryParam("did")

	rows, err := s.store.ExportStream(ctx, after, count, did)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/jsonlines")
	c.Response().WriteHeader(http.StatusOK)
	for _, row := range rows {
		line := mustMarshal(row)
		if _, err := c.Response().Write(line); err != nil {
			return err
		}
		if _, err := c.Response().Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}

// handleHealth reports mirror freshness: how far the local cursor
// trails real time, the signal an operator watches for import stalls.
func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	after, err := s.store.Cursor(ctx)
	if err != nil {
		return writeError(c, err)
	}

	resp := map[string]any{
		"lastImportedAt": nil,
	}
	if !after.IsZero() {
		resp["lastImportedAt"] = after.Format(time.RFC3339Nano)
		resp["lagSeconds"] = time.Since(after).Seconds()
	}
	return c.JSON(http.StatusOK, resp)
}
