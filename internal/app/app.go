// Package app wires configuration, storage, gateways and HTTP routing into a
// runnable application.
package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
	"github.com/GlideMe/commerce/internal/shared/cache"
	"github.com/GlideMe/commerce/internal/shared/config"
	"github.com/GlideMe/commerce/internal/shared/database"
	"github.com/GlideMe/commerce/internal/shared/lock"
	"github.com/GlideMe/commerce/internal/shared/logger"
	"github.com/GlideMe/commerce/internal/shared/metrics"
	"github.com/GlideMe/commerce/internal/shared/middleware"
)

// App holds the assembled application.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
}

// New builds the application from configuration.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&order.Order{}, &order.OrderItem{}, &payment.Transaction{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
		db:     db,
		redis:  redisClient,
	}

	m := metrics.New("commerce")

	registry, err := buildGatewayRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("init gateways: %w", err)
	}

	txRepo := payment.NewRepository(db)
	orderRepo := order.NewRepository(db)
	orderService := order.NewService(orderRepo, txRepo, log)

	orchestrator := payment.NewOrchestrator(
		registry,
		txRepo,
		orderService,
		lock.NewRedisLocker(redisClient),
		m,
		log,
		cfg.Payment,
		nil,
	)

	app.router = app.setupRouter(m)
	payment.NewHandler(orchestrator, log).RegisterRoutes(app.router)
	order.NewHandler(orderService, log).RegisterRoutes(app.router)

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter(m *metrics.Metrics) *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Metrics(m))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases held resources.
func (a *App) Stop() {
	if err := cache.Close(a.redis); err != nil {
		a.logger.Warn("close redis", zap.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// buildGatewayRegistry registers the gateways enabled in configuration.
func buildGatewayRegistry(cfg *config.Config) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()

	if cfg.Gateways.Stripe.Enabled {
		registry.Register(gateway.NewStripeGateway(&gateway.StripeConfig{
			APIKey:      cfg.Gateways.Stripe.APIKey,
			PaymentType: gateway.PaymentType(cfg.Gateways.Stripe.PaymentType),
		}))
	}

	if cfg.Gateways.Alipay.Enabled {
		g, err := gateway.NewAlipayGateway(&gateway.AlipayConfig{
			AppID:           cfg.Gateways.Alipay.AppID,
			PrivateKey:      cfg.Gateways.Alipay.PrivateKey,
			AlipayPublicKey: cfg.Gateways.Alipay.AlipayPublicKey,
			IsProd:          cfg.Gateways.Alipay.IsProd,
		})
		if err != nil {
			return nil, fmt.Errorf("alipay: %w", err)
		}
		registry.Register(g)
	}

	return registry, nil
}
