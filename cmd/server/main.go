package main // Entry point package

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/raffle-ticketing/internal/config"
	"github.com/iliyamo/raffle-ticketing/internal/database"
	"github.com/iliyamo/raffle-ticketing/internal/draw"
	"github.com/iliyamo/raffle-ticketing/internal/handler"
	"github.com/iliyamo/raffle-ticketing/internal/inventory"
	"github.com/iliyamo/raffle-ticketing/internal/middleware"
	"github.com/iliyamo/raffle-ticketing/internal/queue"
	"github.com/iliyamo/raffle-ticketing/internal/repository"
	"github.com/iliyamo/raffle-ticketing/internal/router"
	"github.com/iliyamo/raffle-ticketing/internal/scheduler"
	"github.com/iliyamo/raffle-ticketing/internal/service"
)

// store is what every driver provides: raffle documents plus tickets.
type store interface {
	service.RaffleStore
	inventory.Store
}

func main() {
	cfg := config.Load()
	defer logger.Init("raffle-ticketing", cfg.Env != "prod", false, io.Discard).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional unless it is the store.
	var rdb *redis.Client
	if c, err := config.NewRedisClient(config.LoadRedisConfig()); err == nil {
		rdb = c
		defer rdb.Close()
	} else if cfg.StoreDriver == config.StoreRedis {
		logger.Fatalf("redis store: %v", err)
	} else {
		logger.Warningf("redis unavailable, cache and rate limit disabled: %v", err)
	}

	st, closeStore := openStore(ctx, cfg, rdb)
	defer closeStore()

	var events service.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitMQURL, cfg.EventDialTimeout)
		go func() {
			if err := queue.StartEventConsumer(ctx, cfg.RabbitMQURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("event consumer: %v", err)
			}
		}()
	}

	inv := inventory.New(st)
	svc := service.NewRaffleService(st, inv, draw.NewEngine(), service.WithPublisher(events))

	go func() { _ = scheduler.New(svc, cfg.DrawCheckInterval, cfg.DrawWorkers).Run(ctx) }()

	auth, err := handler.NewAuthHandler(cfg)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, limit)
	router.RegisterPublic(e, handler.NewPublicHandler(svc), cache, limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(svc), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// openStore returns the configured store and its cleanup.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (store, func()) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logger.Fatalf("mysql: %v", err)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatalf("mysql: %v", err)
		}
		return repository.NewMySQLStore(db), func() { _ = db.Close() }
	case config.StoreRedis:
		return repository.NewRedisStore(rdb, config.LoadRedisConfig().KeyPrefix), func() {}
	}
	return repository.NewMemoryStore(), func() {}
}
