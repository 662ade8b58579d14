package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"todo-app/internal/auth"
	"todo-app/internal/backup"
	"todo-app/internal/config"
	apphttp "todo-app/internal/http"
	"todo-app/internal/repository"
	"todo-app/internal/repository/memory"
	"todo-app/internal/repository/sqlite"
	"todo-app/internal/service"
	"todo-app/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accountRepo, todoRepo, closeDB, err := buildRepositories(cfg)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer closeDB()

	if err := accountRepo.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}
	if err := todoRepo.Init(ctx); err != nil {
		logger.Fatalf("init todo repository: %v", err)
	}
	logger.Infof("using %s store", cfg.Database.Driver)

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup password hasher: %v", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup token manager: %v", err)
	}
	if cfg.TokenTTL() == 0 {
		logger.Warn("access tokens never expire; set TODO_AUTH_TOKENTTLMINUTES to bound them")
	}

	accountService := service.NewAccountService(accountRepo, hasher)
	todoService := service.NewTodoService(todoRepo)

	var scheduler backup.Scheduler
	if cfg.Backup.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		scheduler = backup.NewScheduler(backup.Config{
			Bucket:    cfg.Backup.Bucket,
			KeyPrefix: cfg.Backup.KeyPrefix,
			Interval:  cfg.Backup.Interval,
			Retain:    cfg.Backup.Retain,
			Logger:    logger,
		}, accountRepo, todoRepo, storageSvc)
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatalf("start backup scheduler: %v", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		accountService,
		todoService,
		tokens,
		logger,
		cfg.CORS.AllowedOrigins,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}

	logger.Info("bye")
}

func buildRepositories(cfg config.Config) (repository.AccountRepository, repository.TodoRepository, func(), error) {
	ids := repository.NewIDSequence()
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewAccountRepository(db, ids), sqlite.NewTodoRepository(db, ids), closer(db), nil
	default:
		return memory.NewAccountRepository(ids), memory.NewTodoRepository(ids), func() {}, nil
	}
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Backup.Bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Backup.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
