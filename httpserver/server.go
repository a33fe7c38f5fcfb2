package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agenda/contact"
	"agenda/errs"
	"agenda/pkg/config"
	"agenda/pkg/logger"
	"agenda/pkg/sentry"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultRateLimit = 20

type Server struct {
	// Router is the Echo router instance
	Router *echo.Echo

	// Addr represents the address the server will listen on
	Addr string

	// Allowed origins for CORS
	AllowOrigins []string

	// RateLimit is the number of requests per second allowed per client
	RateLimit float64

	ContactService contact.Service

	Logger *zap.SugaredLogger

	Metrics *Metrics
}

func Default(cfg *config.Config) *Server {
	s := &Server{
		Router:       echo.New(),
		Addr:         ":8080",
		AllowOrigins: []string{"*"},
		RateLimit:    defaultRateLimit,
		Logger:       logger.NOOPLogger,
		Metrics:      NewMetrics(),
	}

	if cfg.Port != 0 {
		s.Addr = fmt.Sprintf(":%d", cfg.Port)
	}
	if origins := splitOrigins(cfg.AllowOrigins); len(origins) > 0 {
		s.AllowOrigins = origins
	}
	if cfg.RateLimit > 0 {
		s.RateLimit = cfg.RateLimit
	}

	s.Router.HideBanner = true
	s.Router.HidePort = true
	s.Router.Validator = NewValidator()
	s.Router.HTTPErrorHandler = s.customHTTPErrorHandler
	s.RegisterGlobalMiddlewares()

	s.RegisterHealthRoutes()
	s.RegisterMetricsRoutes()
	s.RegisterContactRoutes()
	return s
}

func (s *Server) RegisterGlobalMiddlewares() {
	s.Router.Use(middleware.Recover())
	s.Router.Use(middleware.Secure())
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Gzip())
	s.Router.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	s.Router.Use(s.requestLogger())
	s.Router.Use(s.Metrics.Middleware())
	s.Router.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.RateLimit))))

	// CORS
	if len(s.AllowOrigins) > 0 {
		s.Router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.AllowOrigins,
		}))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	return s.Router.Start(s.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Router.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Logger.Infow("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond).String(),
				"request_id", v.RequestID,
			)
			return nil
		},
	})
}

// customHTTPErrorHandler writes the error envelope. Internal failures are
// reported to sentry; their cause only reaches the caller through Details.
func (s *Server) customHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, resp := newErrorResponse(err)

	var he *echo.HTTPError
	switch {
	case errs.ErrorCode(err) != errs.EINTERNAL:
		s.Logger.Infow("request rejected", "request_id", requestID(c), "code", resp.Code, "message", resp.Message)
	case errors.As(err, &he):
		s.Logger.Infow("request rejected", "request_id", requestID(c), "status", he.Code)
	default:
		s.Logger.Errorw(err.Error(), "request_id", requestID(c), "path", c.Path())
		sentry.WithContext(c).
			WithTags(map[string]string{"request_id": requestID(c), "code": resp.Code}).
			Error(err)
	}

	if err := c.JSON(status, resp); err != nil {
		s.Logger.Errorw("failed to write error response", "error", err)
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
