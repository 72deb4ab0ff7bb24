package main

import (
	"context"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoVaultGate/vaultgate/internal/chain"
	"github.com/GoVaultGate/vaultgate/internal/config"
	"github.com/GoVaultGate/vaultgate/internal/handler"
	"github.com/GoVaultGate/vaultgate/internal/middleware"
	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/oracle"
	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/GoVaultGate/vaultgate/internal/repository"
	"github.com/GoVaultGate/vaultgate/internal/service"
	"github.com/GoVaultGate/vaultgate/internal/stream"
	"github.com/GoVaultGate/vaultgate/internal/swap"
	"github.com/GoVaultGate/vaultgate/internal/vault"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Chain Connectivity
	ctx := context.Background()
	backend, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.DialRetries)
	if err != nil {
		log.Fatalf("Failed to dial chain RPC: %v", err)
	}
	signer, err := chain.NewTxSigner(cfg.Chain.PrivateKey, cfg.Chain.ChainID)
	if err != nil {
		log.Fatalf("Failed to load operator key: %v", err)
	}
	sender := chain.NewSender(backend, signer)
	transferer, err := chain.NewTokenTransferer(sender)
	if err != nil {
		log.Fatalf("Failed to initialize token transferer: %v", err)
	}

	// 3. Swap Adapter
	routerAddr := common.HexToAddress(cfg.Swap.RouterAddress)
	relayAddr := common.HexToAddress(cfg.Swap.RelayAddress)
	settlement := common.HexToAddress(cfg.Vault.SettlementAsset)

	exchange, err := swap.NewEVMExchange(sender, routerAddr)
	if err != nil {
		log.Fatalf("Failed to initialize exchange: %v", err)
	}
	relay, err := swap.NewEVMApprovalRelay(sender, relayAddr)
	if err != nil {
		log.Fatalf("Failed to initialize approval relay: %v", err)
	}
	balances, err := swap.NewEVMBalanceReader(backend)
	if err != nil {
		log.Fatalf("Failed to initialize balance reader: %v", err)
	}
	adapter, err := swap.NewAdapter(exchange, relay, balances, settlement, routerAddr, sender.Operator())
	if err != nil {
		log.Fatalf("Failed to initialize swap adapter: %v", err)
	}

	// 4. Vault Engine
	engine, err := vault.New(vault.Params{
		Settlement:    settlement,
		WithdrawLimit: mustAmount(cfg.Vault.WithdrawLimit, "withdraw_limit"),
		PerUserCap:    mustAmount(cfg.Vault.PerUserCap, "per_user_cap"),
		BankCap:       mustAmount(cfg.Vault.BankCap, "bank_cap"),
		SlippageBps:   cfg.Vault.SlippageBps,
		SwapDeadline:  time.Duration(cfg.Vault.SwapDeadlineS) * time.Second,
	}, adapter, transferer)
	if err != nil {
		log.Fatalf("Failed to initialize vault: %v", err)
	}

	hub := stream.NewHub()
	go hub.Run()
	engine.SetEmitter(hub)

	// 5. Persistence (Postgres > none, Redis > memory)
	var accountRepo service.AccountRepo
	var auditRepo service.AuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			accountRepo = repository.NewPostgresAccountRepo(db)
			auditRepo = repository.NewPostgresAuditRepo(db)
		} else {
			logger.Error("Failed to connect to DB, running without account/audit persistence", "error", err)
		}
	}

	var statsSink service.StatsSink
	var idemStore middleware.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			statsSink = repository.NewRedisStatsRepo(redisClient)
			idemStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if idemStore == nil {
		idemStore = middleware.NewInMemIdempotencyStore()
	}

	// 6. Oracle Registry
	registry := oracle.NewRegistry()
	staleAfter := time.Duration(cfg.Oracle.StaleAfterS) * time.Second
	for assetHex, aggregatorHex := range cfg.Oracle.Feeds {
		feed, err := oracle.NewFeed(backend, common.HexToAddress(aggregatorHex), staleAfter)
		if err != nil {
			log.Fatalf("Failed to initialize price feed for %s: %v", assetHex, err)
		}
		registry.Register(common.HexToAddress(assetHex), feed)
	}

	// 7. Core Services
	accountManager := service.NewAccountManager(cfg, accountRepo)
	auditSvc, err := service.NewAuditService(cfg.Audit.LogDir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}
	vaultSvc := service.NewVaultService(engine, statsSink)
	valuationSvc := service.NewValuationService(registry)

	// 8. Handlers
	vaultHandler := handler.NewVaultHandler(vaultSvc, valuationSvc)
	adminHandler := handler.NewAdminHandler(vaultSvc, auditSvc)

	// 9. Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "vaultgate"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/v1/vault/events", hub.ServeWS)

	v1 := r.Group("/v1/vault")
	v1.Use(middleware.AuthMiddleware(cfg, accountManager))
	v1.Use(middleware.RateLimitMiddleware(accountManager))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	v1.Use(middleware.IdempotencyMiddleware(idemStore))
	{
		v1.POST("/deposit", vaultHandler.Deposit)
		v1.POST("/deposit/asset", vaultHandler.DepositAsset)
		v1.POST("/deposit/native", vaultHandler.DepositNative)
		v1.POST("/withdraw", vaultHandler.Withdraw)
		v1.POST("/withdraw/asset", vaultHandler.WithdrawAsset)
		v1.GET("/balance", vaultHandler.Balance)
		v1.GET("/capacity", vaultHandler.Capacity)
		v1.GET("/stats", vaultHandler.Stats)
		v1.GET("/valuation/:asset", vaultHandler.Valuation)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/slippage", adminHandler.GetSlippage)
		admin.PUT("/slippage", adminHandler.SetSlippage)
		admin.POST("/approve/:asset", adminHandler.GrantApproval)
		admin.GET("/audit", adminHandler.ListAuditLogs)
		// Sweep additionally requires the second admin secret.
		admin.POST("/sweep", middleware.AdminSecretMiddleware(cfg), adminHandler.Sweep)
	}

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("VaultGate started", "port", cfg.Server.Port, "settlement", settlement.Hex())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auditSvc.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}

func mustAmount(s, name string) *big.Int {
	amount, err := model.ParseAmount(s)
	if err != nil {
		log.Fatalf("Invalid %s %q: %v", name, s, err)
	}
	return amount
}
