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

	"github.com/Checker-Finance/swap-broker/internal/api"
	"github.com/Checker-Finance/swap-broker/internal/chain"
	"github.com/Checker-Finance/swap-broker/internal/httpclient"
	"github.com/Checker-Finance/swap-broker/internal/jobs"
	"github.com/Checker-Finance/swap-broker/internal/monitor"
	"github.com/Checker-Finance/swap-broker/internal/publisher"
	"github.com/Checker-Finance/swap-broker/internal/quote"
	"github.com/Checker-Finance/swap-broker/internal/rate"
	"github.com/Checker-Finance/swap-broker/internal/registry"
	internalsecrets "github.com/Checker-Finance/swap-broker/internal/secrets"
	"github.com/Checker-Finance/swap-broker/internal/store"
	"github.com/Checker-Finance/swap-broker/internal/swapper"
	"github.com/Checker-Finance/swap-broker/internal/wallet"
	"github.com/Checker-Finance/swap-broker/pkg/config"
	"github.com/Checker-Finance/swap-broker/pkg/logger"
	"github.com/Checker-Finance/swap-broker/pkg/model"
	"github.com/Checker-Finance/swap-broker/pkg/secrets"
	"github.com/Checker-Finance/swap-broker/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [swap-broker]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider ---
	// Optional: without AWS the resolver falls back to env vars, which is
	// how dev instances run.
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Warnw("failed to create AWS Secrets Manager provider; env-only credentials", "error", err)
		awsProvider = nil
	}

	// --- Per-provider credential resolver (secrets cached in-memory) ---
	credsCache := secrets.NewCache[internalsecrets.ProviderCredentials](cfg.SecretCacheTTL)
	stopCleaner := make(chan struct{})
	go credsCache.StartCleaner(cfg.SecretCleanupFreq, stopCleaner)

	resolver := internalsecrets.NewResolver(
		logg.Desugar(),
		cfg.ProviderSecretPrefix,
		awsProvider,
		credsCache,
	)

	// --- Discover configured providers ---
	configured, err := resolver.DiscoverConfigured(ctx)
	if err != nil {
		logg.Warnw("failed to discover provider credentials", "error", err)
	} else {
		logg.Infow("discovered provider credentials", "count", len(configured), "providers", configured)
	}

	// --- Service wallet ---
	seedHex, err := resolver.WalletSeed(ctx, cfg.WalletSeedSecretID, cfg.WalletSeedHex)
	if err != nil {
		logg.Fatalw("failed to resolve wallet seed", "error", err)
	}
	walletProvider, err := wallet.NewProvider(seedHex)
	if err != nil {
		logg.Fatalw("failed to init wallet provider", "error", err)
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.StatusSubject, "SWAP_EVENTS")
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 10,
		Burst:             20,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, cfg.QuoteCacheTTL, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Shared upstream HTTP executor ---
	exec := httpclient.New(
		logg.Desugar(),
		rateMgr,
		&http.Client{Timeout: cfg.ExternalCallTimeout},
		2,
		"upstream",
		nil,
	)

	// --- Chain tx-index client ---
	indexClient := chain.NewIndexClient(cfg.ChainIndexBaseURL, exec)

	// --- EVM signer for SERVICE_WALLET settlement ---
	evmSigner, err := wallet.NewEVMSigner(cfg.EVMRPCURL, cfg.EVMChainID, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init evm signer", "error", err)
	}

	// --- Strategy registry ---
	chainflipCreds := resolver.Credentials(ctx, model.ChainflipProvider)
	chainflipURL := cfg.ChainflipStatusURL
	if chainflipCreds.BaseURL != "" {
		chainflipURL = chainflipCreds.BaseURL
	}
	nearCreds := resolver.Credentials(ctx, model.NearIntentsProvider)

	reg := registry.New()
	reg.MustRegister(swapper.NewChainflip(chainflipURL, exec, logg.Desugar()))
	reg.MustRegister(swapper.NewNearIntents(nearCreds.BaseURL, nearCreds.JWT, logg.Desugar()))
	reg.MustRegister(swapper.NewThorchain(cfg.ThornodeURL, exec, walletProvider, evmSigner, logg.Desugar()))
	reg.MustRegister(swapper.NewMayachain(cfg.MayanodeURL, exec, walletProvider, evmSigner, logg.Desugar()))
	reg.MustRegister(swapper.NewJupiter())
	reg.MustRegister(swapper.NewRelay())
	reg.MustRegister(swapper.NewButterSwap())
	reg.MustRegister(swapper.NewBebop())
	logg.Infow("strategies registered", "swappers", reg.Names())

	swapExecutor := swapper.NewExecutor(reg, logg.Desugar())

	// --- Quote service ---
	gasOverheads := map[model.ChainFamily]string{
		model.ChainFamilyEVM:    cfg.GasOverheadEVM,
		model.ChainFamilyUTXO:   cfg.GasOverheadUTXO,
		model.ChainFamilyCosmos: cfg.GasOverheadCosmos,
		model.ChainFamilySolana: cfg.GasOverheadSolana,
	}
	quoteSvc := quote.NewService(
		st,
		walletProvider,
		quote.NewStaticEstimator(),
		pub,
		cfg.QuoteTTL,
		gasOverheads,
		logg.Desugar(),
	)

	// --- Deposit monitor ---
	mon := monitor.New(st, indexClient, quoteSvc, swapExecutor, monitor.Config{
		Interval:       cfg.MonitorInterval,
		CallTimeout:    cfg.ExternalCallTimeout,
		MaxConcurrency: cfg.MonitorMaxConcurrency,
	}, logg.Desugar())
	mon.Start(ctx)

	// --- Quote summary refresher ---
	refresher := jobs.NewSummaryRefresher(
		logg.Desugar(),
		st.(*store.HybridStore).PG,
		pub,
		cfg.SummaryRefreshInterval,
	)
	go refresher.Start(ctx)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	quoteHandler := api.NewQuoteHandler(logg.Desugar(), quoteSvc)
	resolveHandler := api.NewQuoteResolveHandler(logg.Desugar(), quoteSvc, mon, swapExecutor)

	api.RegisterRoutes(app, nc, st, quoteHandler, resolveHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[swap-broker] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"quote_ttl", cfg.QuoteTTL,
		"monitor_interval", cfg.MonitorInterval,
		"swappers", reg.Names())

	<-ctx.Done()
	logg.Info("shutting down [swap-broker]...")

	close(stopCleaner)
	mon.Stop()
	refresher.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
