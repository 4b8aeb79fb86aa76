package router

import (
	"fmt"
	"lecturealarm/internal/interfaces/api/handler"
	"lecturealarm/internal/pkg/logger"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the dependencies for the router.
type Config struct {
	LineHandler    *handler.LineHandler
	LectureHandler *handler.LectureHandler
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
	Logger         logger.Logger
}

// NewRouter creates and configures a new Echo router.
func NewRouter(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	// Use custom logger that integrates with our logger interface
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogHost:      true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.Info(fmt.Sprintf("REQUEST: method=%s, uri=%s, status=%d, latency=%s, req_id=%s",
				v.Method, v.URI, v.Status, v.Latency, v.RequestID,
			))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Line-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// LINE Webhook Endpoint
	// Note: LINE Platform requires POST for webhook
	if cfg.LineHandler != nil {
		e.POST("/callback", cfg.LineHandler.HandleWebhook)
	}

	if h := cfg.LectureHandler; h != nil {
		users := e.Group("/users/:userID")
		users.DELETE("", h.DeleteUser)

		users.GET("/lectures", h.ListLectures)
		users.POST("/lectures", h.CreateLecture)
		users.POST("/lectures/batch", h.AddBatch)
		users.POST("/lectures/check", h.CheckConflict)
		users.GET("/lectures/:id", h.GetLecture)
		users.PUT("/lectures/:id", h.UpdateLecture)
		users.DELETE("/lectures/:id", h.DeleteLecture)

		users.GET("/agenda", h.Agenda)

		users.GET("/alarms", h.ListAlarms)
		users.POST("/alarms/reschedule", h.Reschedule)
		users.POST("/alarms/test", h.TestAlarm)

		users.GET("/settings", h.GetSettings)
		users.PUT("/settings", h.UpdateSettings)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(cfg.MetricsHandler))
	}

	cfg.Logger.Info("Router initialized with routes.")
	return e
}
