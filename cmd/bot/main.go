// Package main is the entry point for the MLBB top-up bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/bot"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/config"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pkg/db"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pkg/restrict"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pricing"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Int64("owner_id", cfg.Owner.ID).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	orderRepo := repository.NewOrderRepository(dbPool.Pool)
	topupRepo := repository.NewTopupRepository(dbPool.Pool)
	settingsRepo := repository.NewSettingsRepository(dbPool.Pool)
	cloneRepo := repository.NewCloneRepository(dbPool.Pool)

	// Authorization registry: owner comes from config and is implicit
	// in every admin check, admins and authorized users come from the
	// store.
	authzService := service.NewAuthzService(settingsRepo, cfg.Owner.ID)
	if err := authzService.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load authorization registry")
	}

	// Per-account interaction gate. The restriction flags are process
	// local, so rebuild them from persisted pending top-ups on boot.
	gate := restrict.NewGate()
	pendingIDs, err := topupRepo.AccountIDsWithPending(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pending top-ups")
	}
	for _, id := range pendingIDs {
		gate.Restrict(id)
	}
	log.Info().Int("restricted", len(pendingIDs)).Msg("Interaction gate rebuilt")

	// Initialize services
	resolver := pricing.NewResolver(settingsRepo, cfg.Pricing.WeeklyPassRate)
	accountService := service.NewAccountService(accountRepo, orderRepo, topupRepo)
	orderService := service.NewOrderService(accountRepo, orderRepo, topupRepo, resolver, authzService, gate)
	topupService := service.NewTopupService(accountRepo, topupRepo, settingsRepo, authzService, gate, cfg.Topup.MinAmount)
	reportService := service.NewReportService(orderRepo, topupRepo)
	cloneService := service.NewCloneService(cloneRepo, authzService)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		OrderService:   orderService,
		TopupService:   topupService,
		ReportService:  reportService,
		CloneService:   cloneService,
		AuthzService:   authzService,
		Settings:       settingsRepo,
	}

	// Initialize bot
	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create accounts table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			username VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: Create orders table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			order_id VARCHAR(64) PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			game_id VARCHAR(16) NOT NULL,
			server_id VARCHAR(16) NOT NULL,
			item_code VARCHAR(32) NOT NULL,
			price BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_by BIGINT,
			resolved_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_orders_account_time ON orders(account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_orders_status_resolved ON orders(status, resolved_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: orders table created")

	// Migration 3: Create topups table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS topups (
			topup_id VARCHAR(64) PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			channel VARCHAR(32) NOT NULL,
			proof_file_id TEXT,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_by BIGINT,
			resolved_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_topups_account_time ON topups(account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_topups_status_resolved ON topups(status, resolved_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: topups table created")

	// Migration 4: Create registry tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS admins (
			user_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS authorized_users (
			user_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: registry tables created")

	// Migration 5: Create settings tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_overrides (
			item_code VARCHAR(32) PRIMARY KEY,
			price BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS payment_channels (
			name VARCHAR(32) PRIMARY KEY,
			account_number VARCHAR(64) NOT NULL,
			account_name VARCHAR(255) NOT NULL,
			qr_file_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: settings tables created")

	// Migration 6: Create clones table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS clones (
			id BIGINT PRIMARY KEY,
			owner_admin_id BIGINT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_clones_owner ON clones(owner_admin_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: clones table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
