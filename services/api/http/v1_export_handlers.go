package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/rtwqms-watcher/services/api/exports"
)

// handleV1ListExports returns all exports, newest first
// GET /api/v1/exports
func (s *Server) handleV1ListExports(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, err := s.store.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": list,
		"meta": gin.H{
			"count": len(list),
		},
	})
}

// handleV1LatestExport returns the rows of the newest export
// GET /api/v1/exports/latest
func (s *Server) handleV1LatestExport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	latest, err := s.store.Latest(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no exports available"})
		return
	}

	s.respondReadings(ctx, c, *latest)
}

// handleV1GetExport returns the rows of one export
// GET /api/v1/exports/:name
func (s *Server) handleV1GetExport(c *gin.Context) {
	name := c.Param("name")
	if !exports.ValidName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export name"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	s.respondReadings(ctx, c, exports.Export{Name: name})
}

// handleV1DownloadExport streams the raw CSV
// GET /api/v1/exports/:name/download
func (s *Server) handleV1DownloadExport(c *gin.Context) {
	name := c.Param("name")

	path, err := s.store.Path(name)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	s.metrics.downloads.Inc()
	c.FileAttachment(path, name)
}

func (s *Server) respondReadings(ctx context.Context, c *gin.Context, exp exports.Export) {
	readings, err := s.store.Readings(ctx, exp.Name)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	meta := gin.H{
		"name":  exp.Name,
		"count": len(readings),
	}
	if !exp.ExportedAt.IsZero() {
		meta["exported_at"] = exp.ExportedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": readings,
		"meta": meta,
	})
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, exports.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export name"})
	case errors.Is(err, exports.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
