package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/miraucorp/trade-service/internal/api"
	"github.com/miraucorp/trade-service/internal/clients"
	"github.com/miraucorp/trade-service/internal/coin"
	"github.com/miraucorp/trade-service/internal/crm"
	"github.com/miraucorp/trade-service/internal/httpclient"
	"github.com/miraucorp/trade-service/internal/pricing"
	"github.com/miraucorp/trade-service/internal/publisher"
	"github.com/miraucorp/trade-service/internal/rate"
	internalsecrets "github.com/miraucorp/trade-service/internal/secrets"
	"github.com/miraucorp/trade-service/internal/store"
	"github.com/miraucorp/trade-service/internal/trade"
	"github.com/miraucorp/trade-service/pkg/apperr"
	"github.com/miraucorp/trade-service/pkg/config"
	"github.com/miraucorp/trade-service/pkg/logger"
	"github.com/miraucorp/trade-service/pkg/model"
	"github.com/miraucorp/trade-service/pkg/secrets"
	"github.com/miraucorp/trade-service/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [trade-service]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider ---
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
	}

	// --- Downstream credential resolver (secrets cached in-memory) ---
	credCache := secrets.NewCache[secrets.ServiceCredentials](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go credCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	resolver := internalsecrets.NewAWSResolver(
		logger.L(),
		cfg.Env,
		awsProvider,
		credCache,
	)

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Worker command publisher ---
	pub, err := publisher.New(nc, publisher.Subjects{
		Fulfill:      cfg.FulfillSubject,
		LimitProcess: cfg.LimitProcessSubject,
		LimitCancel:  cfg.LimitCancelSubject,
		StatusUpdate: cfg.StatusUpdateSubject,
	}, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- CRM notifier (RabbitMQ) ---
	notifier, err := crm.NewNotifier(cfg.RabbitURL, cfg.CRMQueue, logger.L())
	if err != nil {
		logg.Fatalw("failed to init CRM notifier", "error", err)
	}

	// --- Rate limiter for downstream services ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Cooldown:          cfg.RateLimitCooldown,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Downstream service clients ---
	exec := httpclient.New(
		logg.Desugar(),
		rateMgr,
		&http.Client{Timeout: 10 * time.Second},
		2,
		"platform",
		func(status int, body []byte) error {
			return apperr.New(status, string(body))
		},
	)

	feeCache := secrets.NewCache[[]model.FeeRecord](cfg.CacheTTL)
	go feeCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	fxClient := clients.NewFXClient(logg.Desugar(), exec, resolver, cfg.FXServiceURL)
	accountClient := clients.NewAccountClient(logg.Desugar(), exec, resolver, cfg.AccountServiceURL)
	walletClient := clients.NewWalletClient(logg.Desugar(), exec, resolver, cfg.WalletServiceURL)
	feeClient := clients.NewFeeClient(logg.Desugar(), exec, resolver, cfg.FeeServiceURL, feeCache)

	// --- Pricing engine ---
	coins := coin.NewRegistry(cfg.Testnet)
	mapper := pricing.NewMapper(coins, cfg.LimitTradeExpirationDays)
	calc := pricing.NewCalculator(coins)

	// --- Trade service ---
	tradeSvc := trade.NewService(
		logg.Desugar(),
		mapper,
		calc,
		st,
		fxClient,
		accountClient,
		walletClient,
		feeClient,
		pub,
		notifier,
		trade.Policy{
			Testnet:            cfg.Testnet,
			MaxOpenLimitTrades: cfg.MaxOpenLimitTrades,
			QuoteTTL:           cfg.QuoteTTL,
		},
	)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	tradeHandler := api.NewTradeHandler(logg.Desugar(), tradeSvc)
	api.RegisterRoutes(app, nc, st, tradeHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[trade-service] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"testnet", cfg.Testnet)

	<-ctx.Done()
	logg.Info("shutting down [trade-service]...")

	close(stopCleaner)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := notifier.Close(); err != nil {
		logg.Warnw("crm.close_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
