// Package http exposes interpolated region series over HTTP.
package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/observability"
	"go.ngs.io/precip-regions/internal/usecase"
)

// Handler handles HTTP requests for region series.
type Handler struct {
	seriesUC *usecase.SeriesUseCase
	metrics  *observability.Metrics
	clock    clockwork.Clock
	log      zerolog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(seriesUC *usecase.SeriesUseCase, metrics *observability.Metrics, clock clockwork.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		seriesUC: seriesUC,
		metrics:  metrics,
		clock:    clock,
		log:      log,
	}
}

// RegionInfo is one registry entry. Missing coordinates are null.
type RegionInfo struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// RegionListResponse is the response for listing regions.
type RegionListResponse struct {
	IDColumn string       `json:"id_column"`
	Count    int          `json:"count"`
	Regions  []RegionInfo `json:"regions"`
}

// PeriodValue is one labelled step; Value is null when no data was available.
type PeriodValue struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// SeriesResponse is the response for a series lookup.
type SeriesResponse struct {
	RegionID string        `json:"region_id"`
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
	Values   []PeriodValue `json:"values"`
}

// ListRegions handles GET /v1/regions.
func (h *Handler) ListRegions(c *gin.Context) {
	regions := h.seriesUC.Regions()
	response := RegionListResponse{
		IDColumn: h.seriesUC.IDColumn(),
		Count:    len(regions),
		Regions:  make([]RegionInfo, len(regions)),
	}
	for i, r := range regions {
		response.Regions[i] = RegionInfo{ID: r.ID, Lat: nullable(r.Lat), Lon: nullable(r.Lon)}
	}
	c.JSON(http.StatusOK, response)
}

// GetRegionSeries handles GET /v1/regions/:id/precipitation.
func (h *Handler) GetRegionSeries(c *gin.Context) {
	res, err := h.seriesUC.ForRegion(c.Param("id"))
	h.respond(c, res, err)
}

// GetPointSeries handles GET /v1/precipitation?lat=&lon=.
func (h *Handler) GetPointSeries(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon parameters are required"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %v", err)})
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %v", err)})
		return
	}

	res, err := h.seriesUC.ForPoint(lat, lon)
	h.respond(c, res, err)
}

func (h *Handler) respond(c *gin.Context, res *usecase.SeriesResult, err error) {
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrRegionNotFound):
		h.count("not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrInvalidCoordinate), errors.Is(err, interp.ErrNoCoordinate):
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.count("error")
		h.log.Error().Err(err).Msg("series lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := SeriesResponse{
		RegionID: res.RegionID,
		Lat:      res.Lat,
		Lon:      res.Lon,
		Values:   make([]PeriodValue, len(res.Values)),
	}
	for i, v := range res.Values {
		response.Values[i] = PeriodValue{Label: res.Labels[i], Value: nullable(v)}
	}
	h.count("ok")
	c.JSON(http.StatusOK, response)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    h.clock.Now().UTC().Format(time.RFC3339),
		"regions": len(h.seriesUC.Regions()),
	})
}

func (h *Handler) count(outcome string) {
	h.metrics.SeriesRequests.WithLabelValues(outcome).Inc()
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
