package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mstclabs/mstc-miniapp/internal/api"
	"github.com/mstclabs/mstc-miniapp/internal/auth"
	"github.com/mstclabs/mstc-miniapp/internal/commission"
	"github.com/mstclabs/mstc-miniapp/internal/config"
	"github.com/mstclabs/mstc-miniapp/internal/service"
	"github.com/mstclabs/mstc-miniapp/internal/storage/sqlite"
	"github.com/mstclabs/mstc-miniapp/pkg/logging"
)

// initDataMaxAge bounds how old Telegram WebApp init data may be before the
// auth endpoint rejects it.
const initDataMaxAge = 24 * time.Hour

func main() {
	logging.Setup()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	policy := commission.DefaultPolicy()
	if cfg.MinDeposit > 0 {
		policy.MinDeposit = decimal.NewFromFloat(cfg.MinDeposit)
	}
	if cfg.DepositStep > 0 {
		policy.DepositStep = decimal.NewFromFloat(cfg.DepositStep)
	}
	if cfg.ActivationThreshold > 0 {
		policy.ActivationThreshold = decimal.NewFromFloat(cfg.ActivationThreshold)
	}

	svc := service.NewDepositService(store, policy)
	verifier := auth.NewInitDataVerifier(cfg.BotToken, initDataMaxAge)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	router := api.NewRouter(api.NewHandler(svc, verifier, jwtManager, cfg))

	// h2c allows HTTP/2 without TLS behind the reverse proxy.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := ":" + cfg.ServerPort
	slog.Info("Server starting", "address", addr, "env", cfg.Env)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
