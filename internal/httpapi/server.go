package httpapi

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"IntelBrief/internal/collector"
	"IntelBrief/internal/domain"
	"IntelBrief/internal/usecase"
)

// Runner is the slice of the pipeline the API drives.
type Runner interface {
	Status() domain.PipelineRun
	Start(ctx context.Context, settings domain.RunSettings) (domain.PipelineRun, error)
	ValidateSources(ctx context.Context, settings domain.RunSettings) []collector.SourceCheck
	LatestBrief() (domain.Brief, bool)
	Review(ctx context.Context, decision, reviewer string) (domain.Brief, error)
}

// BriefStore lists and reads stored brief artifacts.
type BriefStore interface {
	ListBriefs(ctx context.Context) ([]string, error)
	LoadBrief(ctx context.Context, name string) (domain.Brief, error)
}

// Deps wires the API to the application.
type Deps struct {
	Runner   Runner
	Briefs   BriefStore
	Defaults func() domain.RunSettings
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server exposes run control and status over HTTP.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

type conflictBody struct {
	Error string             `json:"error"`
	Run   domain.PipelineRun `json:"run"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
}

// New builds the echo instance and mounts all routes.
func New(deps Deps) *Server {
	if deps.Defaults == nil {
		deps.Defaults = func() domain.RunSettings { return domain.RunSettings{} }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, deps: deps, logger: deps.Logger}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/status", s.status)
	api.POST("/run", s.startRun)
	api.POST("/sources/validate", s.validateSources)
	api.GET("/briefs", s.listBriefs)
	api.GET("/briefs/latest", s.latestBrief)
	api.GET("/briefs/:name", s.getBrief)
	api.POST("/review", s.review)
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Runner.Status())
}

func (s *Server) startRun(c echo.Context) error {
	settings, err := s.bindSettings(c)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	run, err := s.deps.Runner.Start(c.Request().Context(), settings)
	if errors.Is(err, domain.ErrConcurrentRun) {
		return c.JSON(http.StatusConflict, conflictBody{Error: err.Error(), Run: run})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, run)
}

func (s *Server) validateSources(c echo.Context) error {
	settings, err := s.bindSettings(c)
	if err != nil {
		return err
	}
	checks := s.deps.Runner.ValidateSources(c.Request().Context(), settings)
	if checks == nil {
		checks = []collector.SourceCheck{}
	}
	return c.JSON(http.StatusOK, checks)
}

func (s *Server) listBriefs(c echo.Context) error {
	if s.deps.Briefs == nil {
		return c.JSON(http.StatusOK, []string{})
	}
	names, err := s.deps.Briefs.ListBriefs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, names)
}

func (s *Server) getBrief(c echo.Context) error {
	if s.deps.Briefs == nil {
		return echo.NewHTTPError(http.StatusNotFound, "brief not found")
	}
	brief, err := s.deps.Briefs.LoadBrief(c.Request().Context(), c.Param("name"))
	switch {
	case errors.Is(err, domain.ErrInvalidBriefName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		return echo.NewHTTPError(http.StatusNotFound, "brief not found")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, brief)
}

func (s *Server) latestBrief(c echo.Context) error {
	brief, ok := s.deps.Runner.LatestBrief()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, usecase.ErrNoBrief.Error())
	}
	return c.JSON(http.StatusOK, brief)
}

func (s *Server) review(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review payload")
	}
	if strings.TrimSpace(req.Reviewer) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reviewer is required")
	}

	brief, err := s.deps.Runner.Review(c.Request().Context(), req.Decision, req.Reviewer)
	switch {
	case errors.Is(err, usecase.ErrNoBrief):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrUnknownDecision):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyDecided), errors.Is(err, domain.ErrNotPending):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, brief)
}

// bindSettings decodes the request body over the configured defaults, so a
// partial payload only overrides what it names.
func (s *Server) bindSettings(c echo.Context) (domain.RunSettings, error) {
	settings := s.deps.Defaults()
	if err := c.Bind(&settings); err != nil {
		return settings, echo.NewHTTPError(http.StatusBadRequest, "invalid settings payload")
	}
	return settings, nil
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= http.StatusInternalServerError {
		s.logErr("request failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Error: msg})
}

func (s *Server) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Server) logErr(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
