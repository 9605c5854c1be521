package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pidash/internal/collector"
	"pidash/internal/containers"
	"pidash/internal/health"
	"pidash/internal/history"
	"pidash/internal/models"
)

// API serves the dashboard's JSON endpoints. Live requests hit the collector
// directly for freshness; history requests go through the query engine and
// never trigger a collection.
type API struct {
	collector collector.Collector
	engine    *history.Engine
	checker   *health.Checker
	source    containers.Source
	log       *zap.Logger
}

// NewAPI wires the handler set. source may be nil when container inspection
// is disabled.
func NewAPI(c collector.Collector, engine *history.Engine, checker *health.Checker, source containers.Source, log *zap.Logger) *API {
	return &API{
		collector: c,
		engine:    engine,
		checker:   checker,
		source:    source,
		log:       log,
	}
}

// Root answers the landing route with a liveness body.
func (a *API) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Pi Dashboard API"})
}

// Metrics returns a fresh snapshot of every metric type, bypassing the
// buffer. Types that fail this instant are omitted rather than failing the
// whole response.
func (a *API) Metrics(c *gin.Context) {
	out := gin.H{}
	for _, t := range models.AllMetricTypes() {
		snap, err := a.collector.Collect(c.Request.Context(), t)
		if err != nil {
			a.log.Warn("live collection failed", zap.String("metric_type", string(t)), zap.Error(err))
			continue
		}
		out[string(t)] = snap.Payload
	}
	if len(out) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no metrics available"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Metric returns a fresh snapshot of a single metric type.
func (a *API) Metric(c *gin.Context) {
	t, err := models.ParseMetricType(c.Param("metric_type"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Metric type not found"})
		return
	}
	snap, err := a.collector.Collect(c.Request.Context(), t)
	if err != nil {
		a.log.Warn("live collection failed", zap.String("metric_type", string(t)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metric unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap.Payload)
}

// History returns the buffered+persisted samples for one metric type over a
// selectable range of minutes. An unsupported range is rejected, not clamped.
func (a *API) History(c *gin.Context) {
	t, err := models.ParseMetricType(c.Param("metric_type"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Metric type not found"})
		return
	}

	rangeMinutes, err := strconv.Atoi(c.DefaultQuery("range", "15"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "range must be an integer number of minutes"})
		return
	}

	points, err := a.engine.Query(c.Request.Context(), t, rangeMinutes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points})
}

// ServicesHealth returns the last completed probe result per service. It
// never waits on an in-flight probe.
func (a *API) ServicesHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": a.checker.GetAll()})
}

// ServiceHealth returns the last result for one service by name.
func (a *API) ServiceHealth(c *gin.Context) {
	result, ok := a.checker.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Containers returns the local container inventory when a source is wired.
func (a *API) Containers(c *gin.Context) {
	if a.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "container inspection disabled"})
		return
	}
	inv, err := a.source.List(c.Request.Context())
	if err != nil {
		a.log.Warn("container listing failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}
