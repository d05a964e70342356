package main

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/config"
	"github.com/radpa/radpa/internal/domain/businessoffice"
	"github.com/radpa/radpa/internal/domain/dynamics"
	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pafiling"
	"github.com/radpa/radpa/internal/platform/db"
	"github.com/radpa/radpa/internal/platform/kvstore"
	"github.com/radpa/radpa/internal/platform/middleware"
	"github.com/radpa/radpa/pkg/validation"
)

const version = "0.1.0"

type server struct {
	echo    *echo.Echo
	filings *pafiling.Manager
}

func newServer(cfg *config.Config, logger zerolog.Logger, dataset order.Dataset, backend *kvstore.Opened) *server {
	validate := validation.New()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.NewEchoValidator(validate)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.CORSOrigins))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(backend.Backend, backend.Store, backend.Pool))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version})
	})
	if cfg.DocumentsDir != "" {
		e.Static(strings.TrimSuffix(middleware.DocumentsPrefix, "/"), cfg.DocumentsDir)
	}

	store := orderstate.NewStore(orderstate.NewKVRepository(backend.Store), orderstate.WithLogger(logger))
	orders := order.NewService(dataset, store)
	filings := pafiling.NewManager(orders, store, validate, logger, pafiling.WithLoadingScale(cfg.LoadingScale))

	rl := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(rl))
	api.Use(middleware.BodyLimit(cfg.BodyLimit))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	order.NewHandler(orders).RegisterRoutes(api)
	dynamics.NewHandler(dynamics.NewService(orders, store, logger)).RegisterRoutes(api)
	businessoffice.NewHandler(businessoffice.NewService(orders, store, logger)).RegisterRoutes(api)
	pafiling.NewHandler(filings).RegisterRoutes(api)

	return &server{echo: e, filings: filings}
}
