package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/alert"
	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/config"
	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/service"
	"github.com/digkill/magicpic/internal/storage"
	"github.com/digkill/magicpic/pkg/logger"
)

const alertCooldown = 5 * time.Minute

// app holds what every subcommand shares: config, logger, database and storage.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	db    *sql.DB
	store *storage.Gateway

	users        *repository.UserRepository
	categories   *repository.CategoryRepository
	styles       *repository.StyleRepository
	creations    *repository.CreationRepository
	guests       *repository.GuestRepository
	transactions *repository.TransactionRepository
	ledger       *ledger.Ledger
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migrate: %w", err)
	}

	store, err := storage.NewGateway(storage.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		UsePathStyle: cfg.S3UsePathStyle,
		PresignTTL:   cfg.S3PresignTTL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage gateway: %w", err)
	}

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		store:        store,
		users:        repository.NewUserRepository(db),
		categories:   repository.NewCategoryRepository(db),
		styles:       repository.NewStyleRepository(db),
		creations:    repository.NewCreationRepository(db),
		guests:       repository.NewGuestRepository(db),
		transactions: repository.NewTransactionRepository(db),
		ledger:       ledger.New(db),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.log.Sync()
}

func (a *app) catalog() *service.CatalogService {
	return service.NewCatalogService(a.categories, a.styles, a.store, a.log.Named("catalog"))
}

func (a *app) creationService() *service.CreationService {
	return service.NewCreationService(a.creations, a.users, a.store, a.log.Named("creations"))
}

// authService connects to Redis; the caller owns the returned client.
func (a *app) authService(ctx context.Context) (*service.AuthService, *auth.Issuer, *redis.Client, error) {
	rdb, err := auth.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, nil, nil, err
	}
	issuer := auth.NewIssuer(a.cfg.JWTSecret, a.cfg.AccessTokenTTL, a.cfg.RefreshTokenTTL)
	svc := service.NewAuthService(a.users, issuer, auth.NewRefreshStore(rdb), a.cfg.SignupCredits, a.log.Named("auth"))
	return svc, issuer, rdb, nil
}

func (a *app) alerts() alert.Notifier {
	if a.cfg.TelegramBotToken == "" {
		return alert.Nop{}
	}
	tg, err := alert.NewTelegram(a.cfg.TelegramBotToken, a.cfg.TelegramAlertChatID, alertCooldown, a.log.Named("alert"))
	if err != nil {
		a.log.Warn("telegram alerts disabled", zap.Error(err))
		return alert.Nop{}
	}
	return tg
}
