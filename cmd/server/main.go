package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/inventory_api/internal/config"
	"github.com/Skotchmaster/inventory_api/internal/db"
	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/httpserver"
	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/inventory_api/internal/middleware/logging"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(ctx, gdb, cfg.DBDriver); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}

	var (
		publisher mykafka.Publisher = mykafka.Nop{}
		producer  *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
		publisher = producer
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	var (
		indexer  service.ProductIndexer
		searcher httpserver.ProductSearcher
	)
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Options{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		if err != nil {
			cancel()
			log.Fatalf("elasticsearch: %v", err)
		}
		index := &es.ProductIndex{Client: client, Index: cfg.ESIndex}
		if err := index.EnsureIndex(ctx); err != nil {
			cancel()
			log.Fatalf("elasticsearch index: %v", err)
		}
		indexer, searcher = index, index
	}

	var (
		store    images.Store
		imageDir string
	)
	switch cfg.ImageStorage {
	case "s3":
		store, err = images.NewS3Store(ctx, images.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			cancel()
			log.Fatalf("s3 store: %v", err)
		}
	default:
		fsStore, err := images.NewFSStore(cfg.ImageRoot)
		if err != nil {
			cancel()
			log.Fatalf("image store: %v", err)
		}
		store = fsStore
		imageDir = filepath.Join(cfg.ImageRoot, "images")
	}
	cancel()

	factory := repo.Factory{DB: gdb}
	authSvc := &service.AuthService{
		UoW: factory,
		Tokens: &tokens.Issuer{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.AccessTokenTTL(),
		},
		RefreshTTL: cfg.RefreshTokenTTL,
		Events:     publisher,
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpserver.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("12M"))

	httpserver.Register(e, &httpserver.Deps{
		UoW:             factory,
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc},
		CategoryHandler: &httpserver.CategoryHTTP{Svc: &service.CategoryService{UoW: factory, Events: publisher}},
		ProductHandler: &httpserver.ProductHTTP{Svc: &service.ProductService{
			UoW:    factory,
			Images: store,
			Events: publisher,
			Index:  indexer,
		}},
		SearchHandler: &httpserver.SearchHTTP{Index: searcher},
		Bearer:        auth.NewBearerAuth(authSvc),
		ImageDir:      imageDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_started", "addr", srv.Addr, "db_driver", cfg.DBDriver, "image_storage", cfg.ImageStorage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("shutdown_complete")
}
