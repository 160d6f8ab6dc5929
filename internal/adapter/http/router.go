package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"credhealth/internal/adapter/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RouterConfig wires the handlers and the cross-cutting middleware.
type RouterConfig struct {
	Health    *Handler
	Loans     *LoanHandler
	Hospitals *HospitalHandler
	Users     *UserHandler
	Stream    *StreamHandler

	Tokens middleware.TokenParser
	// Redis enables Idempotency-Key handling on mutating routes when set.
	Redis          *redis.Client
	IdempotencyTTL time.Duration

	// Metrics is optional; when nil /metrics is not served.
	Metrics MetricsProvider
	Logger  *zap.Logger
}

type MetricsProvider interface {
	Middleware() echo.MiddlewareFunc
	Handler() http.Handler
}

// NewRouter builds the echo instance with every route mounted.
func NewRouter(cfg RouterConfig) *echo.Echo {
	logger := nopIfNil(cfg.Logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	e.GET("/health", cfg.Health.Health)

	auth := middleware.RequireAuth(cfg.Tokens, logger)
	idem := passThrough
	if cfg.Redis != nil {
		idem = middleware.Idempotency(cfg.Redis, cfg.IdempotencyTTL, logger)
	}

	v1 := e.Group("/v1")

	v1.POST("/users", cfg.Users.Register, idem)
	v1.GET("/users/:user_id", cfg.Users.GetUser, auth)
	v1.GET("/me", cfg.Users.Me, auth)
	v1.PATCH("/me", cfg.Users.UpdateMe, auth, idem)
	v1.GET("/me/loans", cfg.Loans.MyLoans, auth)

	v1.POST("/hospitals", cfg.Hospitals.AddHospital, auth, idem)
	v1.GET("/hospitals", cfg.Hospitals.ListHospitals, auth)
	v1.GET("/hospitals/:hospital_id", cfg.Hospitals.GetHospital, auth)
	v1.GET("/hospitals/:hospital_id/loans", cfg.Loans.HospitalLoans, auth)

	v1.POST("/loans", cfg.Loans.RequestLoan, auth, idem)
	v1.GET("/loans/events", cfg.Stream.LoanEvents, auth)
	v1.GET("/loans/:loan_id", cfg.Loans.GetLoan, auth)
	v1.POST("/loans/:loan_id/approve", cfg.Loans.ApproveLoan, auth, idem)
	v1.POST("/loans/:loan_id/reject", cfg.Loans.RejectLoan, auth, idem)
	v1.POST("/loans/:loan_id/disburse", cfg.Loans.DisburseLoan, auth, idem)
	v1.POST("/loans/:loan_id/repay", cfg.Loans.RepayLoan, auth, idem)

	return e
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("http request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("http request", fields...)
			return nil
		},
	})
}

// errorHandler renders echo's own errors (unknown route, bad method) as ErrorResponse.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := http.StatusInternalServerError, "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code, msg = he.Code, fmt.Sprint(he.Message)
		} else {
			logger.Error("unhandled error", zap.String("route", c.Path()), zap.Error(err))
		}
		if err := c.JSON(code, ErrorResponse{Error: msg}); err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}
