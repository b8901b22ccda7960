package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/rasterpipe/internal/api"
	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/internal/stitch"
	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/tile"
	"github.com/kiesman99/rasterpipe/pkg/tilecache"
)

// Server implements the ServerInterface from the generated API
type Server struct {
	startTime time.Time
	version   string
	catalog   *Catalog
	workers   int
}

// NewServer creates a new server instance serving the images of catalog
func NewServer(version string, catalog *Catalog) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		catalog:   catalog,
		workers:   stitch.DefaultWorkers,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// ListImages lists the images in the catalog root
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	names, err := s.catalog.Names()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ImageList{Images: names})
}

// GetImage returns the published metadata of an image
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request, name api.Name) {
	img, err := s.catalog.Get(name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	m := img.Meta()
	g := m.Grid()
	cols, rows := g.Cols(), g.Rows()

	s.writeJSON(w, http.StatusOK, api.ImageResponse{
		Name:           name,
		Width:          m.Width,
		Height:         m.Height,
		Bands:          m.Bands,
		Format:         m.Format,
		Interpretation: m.Interpretation,
		Xres:           m.XRes,
		Yres:           m.YRes,
		TileWidth:      m.TileWidth,
		TileHeight:     m.TileHeight,
		TileCols:       &cols,
		TileRows:       &rows,
		SourceBands:    m.SourceBands,
		SampleType:     m.SampleType,
		Driver:         m.Driver,
		Partial:        m.Partial,
	})
}

// GetImageStats returns the tile cache counters of an image
func (s *Server) GetImageStats(w http.ResponseWriter, r *http.Request, name api.Name) {
	img, err := s.catalog.Get(name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	st := img.Stats()
	s.writeJSON(w, http.StatusOK, api.CacheStats{
		Hits:      st.Hits,
		Misses:    st.Misses,
		Decodes:   st.Decodes,
		Failures:  st.Failures,
		Evictions: st.Evictions,
		Resident:  st.Resident,
		Pinned:    st.Pinned,
		Capacity:  st.Capacity,
	})
}

// GetTile serves a single tile
func (s *Server) GetTile(w http.ResponseWriter, r *http.Request, name api.Name, col int, row int, params api.GetTileParams) {
	format, err := outputFormat(params.Format)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}

	img, err := s.catalog.Get(name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	v, err := img.FetchTile(r.Context(), tile.Address{Col: col, Row: row})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	defer v.Release()

	var data []byte
	if format == tile.FormatRaw {
		data = v.Bytes()
	} else {
		data, err = tile.Encode(tile.ToRGBA(v.Bytes(), v.Rect.Dx(), v.Rect.Dy()), format, 0)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	w.Header().Set("X-Tile-Width", strconv.Itoa(v.Rect.Dx()))
	w.Header().Set("X-Tile-Height", strconv.Itoa(v.Rect.Dy()))
	s.writeImage(w, r, format, data)
}

// GetRegion assembles and serves an arbitrary region
func (s *Server) GetRegion(w http.ResponseWriter, r *http.Request, name api.Name, params api.GetRegionParams) {
	if err := validateRegion(&params); err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}
	format, err := outputFormat(params.Format)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}

	img, err := s.catalog.Get(name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	opts := &stitch.Options{
		Region:       image.Rect(params.X, params.Y, params.X+params.W, params.Y+params.H),
		OutputFormat: format,
		Workers:      s.workers,
	}
	if params.Scale != nil {
		opts.Scale = *params.Scale
	}

	result, err := stitch.New(img).Stitch(r.Context(), opts)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("X-Region", fmt.Sprintf("%d,%d,%d,%d",
		result.Region.Min.X, result.Region.Min.Y, result.Region.Dx(), result.Region.Dy()))
	w.Header().Set("X-Image-Width", strconv.Itoa(result.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(result.Height))
	s.writeImage(w, r, format, result.ImageData)
}

// ParamErrorHandler reports parameter binding failures of the generated
// wrapper as JSON.
func (s *Server) ParamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
}

// validateRegion validates the region query parameters
func validateRegion(p *api.GetRegionParams) error {
	if p.W <= 0 || p.H <= 0 {
		return fmt.Errorf("w and h must be positive")
	}
	if p.Scale != nil && (*p.Scale <= 0 || *p.Scale > 1) {
		return fmt.Errorf("scale must be in (0, 1]")
	}
	return nil
}

// outputFormat maps the API format parameter to a tile output format
func outputFormat(f *api.Format) (int, error) {
	if f == nil {
		return tile.FormatPNG, nil
	}
	switch *f {
	case api.Png:
		return tile.FormatPNG, nil
	case api.Jpeg:
		return tile.FormatJPEG, nil
	case api.Raw:
		return tile.FormatRaw, nil
	}
	return 0, fmt.Errorf("unknown format %q", *f)
}

// handleError maps pipeline errors to HTTP responses
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var tileErr *stitch.TileError

	switch {
	case errors.Is(err, ErrNotFound):
		s.writeErrorResponse(w, r, http.StatusNotFound, "IMAGE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, raster.ErrUnsupportedPixelDepth):
		s.writeErrorResponse(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_PIXEL_DEPTH", err.Error(), nil)
	case errors.Is(err, raster.ErrUnsupportedFormat):
		s.writeErrorResponse(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", err.Error(), nil)
	case errors.Is(err, raster.ErrMissingBand):
		s.writeErrorResponse(w, r, http.StatusUnprocessableEntity, "MISSING_BAND", err.Error(), nil)
	case errors.Is(err, tile.ErrOutOfBounds), errors.Is(err, tile.ErrMisaligned), errors.Is(err, stitch.ErrEmptyRegion):
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_REGION", err.Error(), nil)
	case errors.As(err, &tileErr):
		failed := make([]map[string]interface{}, len(tileErr.FailedTiles))
		for i, ft := range tileErr.FailedTiles {
			failed[i] = map[string]interface{}{
				"tile":  ft.Address.String(),
				"error": ft.Err.Error(),
			}
		}
		s.writeErrorResponse(w, r, http.StatusBadGateway, "TILE_DECODE_ERROR", tileErr.Message, map[string]interface{}{
			"failed_tiles":     failed,
			"successful_tiles": tileErr.SuccessfulTiles,
			"total_tiles":      tileErr.TotalTiles,
		})
	case errors.Is(err, raster.ErrIORead):
		s.writeErrorResponse(w, r, http.StatusBadGateway, "READ_ERROR", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil)
	case errors.Is(err, tilecache.ErrClosed):
		s.writeErrorResponse(w, r, http.StatusServiceUnavailable, "SHUTTING_DOWN", err.Error(), nil)
	default:
		logging.Logger().Error("request failed", "path", r.URL.Path, "error", err)
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// writeImage writes encoded image data
func (s *Server) writeImage(w http.ResponseWriter, r *http.Request, format int, data []byte) {
	w.Header().Set("Content-Type", tile.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Request-ID", requestID(r))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Logger().Warn("error writing response", "path", r.URL.Path, "error", err)
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger().Warn("error encoding response", "error", err)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string, details map[string]interface{}) {
	id := requestID(r)
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: &id,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

// requestID returns the id assigned by the RequestID middleware, or a new one
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
