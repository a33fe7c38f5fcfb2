package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/labstack/echo/v4"
)

var durationBuckets = metrics.ExponentialBuckets(1e-3, 5, 6)

// Metrics holds the request counters and latency histograms served on /metrics.
type Metrics struct {
	set *metrics.Set
}

func NewMetrics() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// Middleware counts every request by method, route and final status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			labels := fmt.Sprintf(`{method=%q,path=%q,status="%d"}`, c.Request().Method, path, responseStatus(c, err))
			m.set.GetOrCreatePrometheusHistogramExt("http_request_duration_seconds"+labels, durationBuckets).UpdateDuration(start)
			m.set.GetOrCreateCounter("http_requests_total" + labels).Inc()
			return err
		}
	}
}

// WritePrometheus writes request metrics followed by process metrics.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

func (s *Server) RegisterMetricsRoutes() {
	s.Router.GET("/metrics", s.serveMetrics)
}

func (s *Server) serveMetrics(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	s.Metrics.WritePrometheus(c.Response())
	return nil
}

// responseStatus predicts the status the error handler will write for err.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	status, _ := newErrorResponse(err)
	return status
}
