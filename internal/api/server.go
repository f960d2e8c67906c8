package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ticketing/internal/cache"
	"ticketing/internal/clock"
	"ticketing/internal/config"
	"ticketing/internal/database"
	"ticketing/internal/handlers"
	"ticketing/internal/logger"
	"ticketing/internal/messaging"
	"ticketing/internal/metrics"
	"ticketing/internal/middleware"
	"ticketing/internal/repository"
	"ticketing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const poolCheckInterval = 30 * time.Second

// Server представляет HTTP сервер API
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *database.DB
	publisher messaging.Publisher
	registry  *prometheus.Registry
	services  *service.Services
	stop      context.CancelFunc
}

// NewServer подключает зависимости и настраивает роутер
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	publisher, err := messaging.New(cfg.NATS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, cfg.Database.DBName),
	)
	m := metrics.New(registry)
	clk := clock.NewSystem()

	repos := repository.NewRepositories(db)
	locations := cache.NewLocationCache(repos.States,
		cache.WithTTL(cfg.Cache.LocationTTL),
		cache.WithClock(clk),
		cache.WithMetrics(m),
		cache.WithLogger(logger.Get()),
	)

	services := service.NewServices(service.Dependencies{
		Tx:                 repos,
		TicketTypes:        repos.TicketTypes,
		Tickets:            repos.Tickets,
		Events:             repos.Events,
		States:             repos.States,
		Countries:          repos.Countries,
		Users:              repos.Users,
		Locations:          locations,
		Publisher:          publisher,
		Clock:              clk,
		Metrics:            m,
		MaxPurchaseRetries: cfg.Purchase.MaxRetries,
	})

	monitorCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		router:    gin.New(),
		config:    cfg,
		db:        db,
		publisher: publisher,
		registry:  registry,
		services:  services,
		stop:      stop,
	}
	s.setupRoutes()
	go s.monitorPool(monitorCtx)

	return s, nil
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))

	h := handlers.NewHandlers(s.services, s.db.HealthCheck)
	h.RegisterRoutes(s.router)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

func (s *Server) monitorPool(ctx context.Context) {
	ticker := time.NewTicker(poolCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.db.WarnOnPoolPressure()
		}
	}
}

// Handler возвращает роутер для http.Server и тестов
func (s *Server) Handler() http.Handler {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	s.stop()

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
