package sentry

import (
	"fmt"
	"os"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

// FlushTime bounds how long shutdown waits for buffered events to be delivered.
var FlushTime = 2 * time.Second

// Init configures the global client. It is a no-op for the local environment
// or when no DSN is configured.
func Init(dsn, env, release string) error {
	if !enabled(env, dsn) {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	return nil
}

// Sentry collects the scope of a single report.
type Sentry struct {
	context echo.Context
	error   error
	level   sentrygo.Level
	tags    map[string]string
}

func (s *Sentry) WithContext(c echo.Context) *Sentry {
	s.context = c
	return s
}

func (s *Sentry) WithError(err error) *Sentry {
	s.error = err
	return s
}

func (s *Sentry) WithLevel(level sentrygo.Level) *Sentry {
	s.level = level
	return s
}

func (s *Sentry) WithTags(tags map[string]string) *Sentry {
	s.tags = tags
	return s
}

func (s *Sentry) Error(err error) {
	s.WithError(err).WithLevel(sentrygo.LevelError).sendError()
}

func (s *Sentry) sendError() {
	if !enabled(os.Getenv("APP_ENV"), os.Getenv("SENTRY_DSN")) || s.error == nil {
		return
	}

	hub := s.getHub()
	hub.WithScope(func(scope *sentrygo.Scope) {
		s.configScope(scope)
		hub.CaptureException(s.error)
	})
}

// getHub prefers the request scoped hub installed by the echo middleware.
func (s *Sentry) getHub() *sentrygo.Hub {
	if s.context != nil {
		if hub := sentryecho.GetHubFromContext(s.context); hub != nil {
			return hub
		}
	}

	return sentrygo.CurrentHub()
}

func (s *Sentry) configScope(scope *sentrygo.Scope) {
	scope.SetLevel(s.level)

	if s.tags != nil {
		scope.SetTags(s.tags)
	}
	if s.context != nil && s.context.Request() != nil {
		scope.SetRequest(s.context.Request())
		scope.SetTag("path", s.context.Path())
	}
}

func enabled(env, dsn string) bool {
	return env != "local" && dsn != ""
}

func WithContext(c echo.Context) *Sentry {
	return new(Sentry).WithContext(c)
}
