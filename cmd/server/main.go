package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/config"
	"github.com/iliyamo/ticket-sale/internal/database"
	"github.com/iliyamo/ticket-sale/internal/handler"
	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/logger"
	"github.com/iliyamo/ticket-sale/internal/middleware"
	"github.com/iliyamo/ticket-sale/internal/queue"
	"github.com/iliyamo/ticket-sale/internal/repository"
	"github.com/iliyamo/ticket-sale/internal/router"
	"github.com/iliyamo/ticket-sale/internal/sale"
	"github.com/iliyamo/ticket-sale/internal/seed"
	"github.com/iliyamo/ticket-sale/internal/session"
)

// store is what the engine and the seeder need from persistence.
type store interface {
	sale.Store
	seed.Creator
}

func main() {
	cfg := config.Load() // Load environment config
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	var st store
	var db *sql.DB
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err = database.Open(cfg)
		if err != nil {
			zl.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("database migration failed", zap.Error(err))
		}
		st = repository.NewMySQLStore(db)
	default:
		zl.Warn("using in-memory store; data is lost on restart")
		st = repository.NewMemoryStore()
	}

	// Redis backs the inventory ledger and the purchase rate limiter.
	rlCfg := config.LoadRateLimitConfig()
	redisCfg := config.LoadRedisConfig()
	var rdb *redis.Client
	if cfg.InventoryBackend == config.InventoryRedis || rlCfg.Enabled {
		rdb, err = config.NewRedisClient(redisCfg)
		if err != nil {
			zl.Warn("redis unavailable; using in-process inventory and no rate limiting", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	var ledger inventory.Ledger = inventory.NewMemoryLedger()
	if cfg.InventoryBackend == config.InventoryRedis && rdb != nil {
		ledger = inventory.NewRedisLedger(rdb, redisCfg.Prefix)
	}

	// Domain events
	var pub sale.Publisher
	if cfg.AMQPURL != "" && cfg.EventsPublish {
		p := queue.NewPublisher(cfg.AMQPURL, zl)
		defer p.Close()
		pub = p
	}
	if cfg.AMQPURL != "" && cfg.AuditConsumer {
		consumer := queue.NewConsumer(cfg.AMQPURL, queue.NewAuditLog("logs"), zl)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	engine := sale.NewEngine(st, inventory.NewModel(ledger), sale.Options{
		Publisher: pub,
		Logger:    zl,
		Retry: sale.RetryPolicy{
			MaxAttempts: uint(cfg.PersistMaxAttempts),
			Initial:     cfg.PersistBackoffInitial,
			Max:         cfg.PersistBackoffMax,
		},
	})
	defer engine.Close()

	if cfg.SeedOnStart {
		events, err := seed.Load(cfg.SeedFile)
		if err != nil {
			zl.Fatal("load seed", zap.Error(err))
		}
		n, err := seed.Apply(ctx, st, events, zl)
		if err != nil {
			zl.Fatal("apply seed", zap.Error(err))
		}
		zl.Info("seed applied", zap.Int("created", n), zap.Int("total", len(events)))
	}
	if err := engine.Recover(ctx); err != nil {
		zl.Warn("some interrupted sales could not be reset", zap.Error(err))
	}

	// HTTP
	signer := session.NewSigner(cfg.JWTSecret)
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(zl))
	router.RegisterRoutes(e) // Register application routes
	router.RegisterPublic(e, handler.NewEventHandler(engine))
	router.RegisterOperator(e, handler.NewOperatorHandler(engine), signer)
	router.RegisterBuyer(e, handler.NewBuyerHandler(engine, session.ContextProvider{}), signer,
		middleware.NewTokenBucket(rlCfg, rdb, zl))

	addr := ":" + cfg.Port // Address string with port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver), zap.String("inventory", cfg.InventoryBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
}
