package api

import (
	"github.com/labstack/echo/v4"
)

// Routes composes all API handlers behind a single registration point so the
// HTTP server only needs one handler.
type Routes struct {
	pipeline   *PipelineHandler
	monitoring *MonitoringHandler
}

func NewRoutes(pipeline *PipelineHandler, monitoring *MonitoringHandler) *Routes {
	return &Routes{pipeline: pipeline, monitoring: monitoring}
}

// RegisterRoutes mounts every handler on the Echo instance.
func (r *Routes) RegisterRoutes(e *echo.Echo) {
	r.pipeline.RegisterRoutes(e)
	r.monitoring.RegisterRoutes(e)
}
