package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/internal/config"
	"github.com/arnac-io/auctionescrow/pkg/api"
	"github.com/arnac-io/auctionescrow/pkg/app"
	"github.com/arnac-io/auctionescrow/pkg/cache"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

func openStore(ctx context.Context, log *zap.Logger, cfg config.Config) (ledger.Store, func(), error) {
	if cfg.Ledger.Store != "postgres" {
		return ledger.NewMemoryStore(), func() {}, nil
	}
	store, err := ledger.NewPostgresStore(ctx, log, cfg.Ledger.PostgresDSN, cfg.Ledger.PostgresMaxConns)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func fundFaucet(ctx context.Context, runtime *ledger.Runtime, accounts []core.Address, lamports uint64) error {
	p := pool.New().WithErrors().WithContext(ctx)
	for _, a := range accounts {
		a := a
		p.Go(func(ctx context.Context) error {
			return runtime.Airdrop(ctx, a, lamports)
		})
	}
	return p.Wait()
}

func main() {
	cfg := config.Load()
	log := app.Logger(cfg.App.LogLevel)
	ctx, stop := app.SignalContext(context.Background())
	defer stop()

	store, closeStore, err := openStore(ctx, log, cfg)
	if err != nil {
		log.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer closeStore()

	runtime := ledger.NewRuntime(log, store)
	runtime.RegisterProgram(token.ProgramID, token.NewProgram())
	runtime.RegisterProgram(cfg.Ledger.EscrowProgramID, escrow.NewProcessor(log, token.Service{}))

	if err := fundFaucet(ctx, runtime, cfg.Ledger.Faucet, cfg.Ledger.FaucetLamports); err != nil {
		log.Fatal("failed to fund faucet accounts", zap.Error(err))
	}

	receipts, err := cache.NewInMemoryStore[ledger.Receipt](100_000)
	if err != nil {
		log.Fatal("failed to create receipt store", zap.Error(err))
	}
	limits := api.DefaultLimits()
	limits.BulkLimits = cfg.API.BulkLimits
	h, err := api.NewHandler(log, runtime,
		api.WithProgramIDs(cfg.Ledger.EscrowProgramID, token.ProgramID),
		api.WithReceiptStore(receipts, cfg.App.ReceiptTTL),
		api.WithAuctionCacheSize(cfg.App.AuctionCacheSize),
		api.WithLimits(limits))
	if err != nil {
		log.Fatal("failed to create api handler", zap.Error(err))
	}
	runtime.Subscribe(h.Observe)

	dispatcher := sources.NewReceiptDispatcher(log, cfg.App.StreamQueueSize)
	go dispatcher.Run(ctx)
	runtime.Subscribe(dispatcher.Observe)

	server, err := api.NewServer(log, h, fmt.Sprintf(":%v", cfg.API.Port),
		api.WithReceiptSource(dispatcher),
		api.WithSubmitLimit(cfg.API.SubmitRateLimit),
		api.WithAPIKeys(cfg.API.APIKeys))
	if err != nil {
		log.Fatal("failed to create api server", zap.Error(err))
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", cfg.App.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	log.Info("auctiond started",
		zap.Int("port", cfg.API.Port),
		zap.String("store", cfg.Ledger.Store),
		zap.String("escrow_program", cfg.Ledger.EscrowProgramID.Hex()),
		zap.String("escrow_authority", escrow.AuthorityAddress(cfg.Ledger.EscrowProgramID).Hex()))
	go server.Run()

	if err := app.Shutdown(ctx, log, server.Shutdown, metricsServer.Shutdown); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
