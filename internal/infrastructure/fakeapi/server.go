// Package fakeapi exposes any ports.ItemsAPI over the items REST contract so the
// simulated backend can be used by other processes.
package fakeapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"nudge/internal/apperr"
	"nudge/internal/domain"
	"nudge/internal/ports"
)

type detailMsg struct {
	Msg string `json:"msg"`
}

// Server serves the items contract.
type Server struct {
	api    ports.ItemsAPI
	echo   *echo.Echo
	logger *slog.Logger
}

// New builds the echo router.
func New(api ports.ItemsAPI, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{api: api, echo: e, logger: logger}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"user", c.Request().Header.Get("X-User-Id"),
			}
			if v.Error != nil {
				logger.Warn("request failed", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			logger.Debug("request completed", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/items", s.createItem)
	e.GET("/items", s.listItems)
	e.GET("/items/:id", s.getItem)
	e.PATCH("/items/:id", s.patchItem)
	e.PATCH("/items/:id/text", s.patchItem)

	return s
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("fake items server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) createItem(c echo.Context) error {
	var req domain.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []detailMsg{{Msg: "body: invalid JSON"}},
		})
	}

	created, err := s.api.CreateItem(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) listItems(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"detail": []detailMsg{{Msg: "limit: must be an integer"}},
			})
		}
		limit = n
	}

	page, err := s.api.ListItems(c.Request().Context(), limit, c.QueryParam("cursor"))
	if err != nil {
		return err
	}
	if page.Items == nil {
		page.Items = []domain.Item{}
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getItem(c echo.Context) error {
	include, _ := strconv.ParseBool(c.QueryParam("include_content"))
	detail, err := s.api.GetItem(c.Request().Context(), c.Param("id"), include)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) patchItem(c echo.Context) error {
	var req domain.PatchTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []detailMsg{{Msg: "body: invalid JSON"}},
		})
	}

	detail, err := s.api.PatchItemText(c.Request().Context(), c.Param("id"), req.PastedText)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// errorHandler renders every failure as {"detail": "..."}.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := "internal error"

		var httpErr *apperr.HTTPError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			status = httpErr.StatusCode
			detail = apperr.Message(httpErr)
		case errors.As(err, &echoErr):
			status = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				detail = msg
			} else {
				detail = strings.ToLower(http.StatusText(status))
			}
		default:
			logger.Error("unhandled error", "error", err)
		}

		if err := c.JSON(status, map[string]string{"detail": detail}); err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}
