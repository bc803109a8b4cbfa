package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/bot"
	"github.com/satriacloudx/FinanceBotMe/internal/config"
	"github.com/satriacloudx/FinanceBotMe/internal/db"
	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/logger"
	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/render"
	"github.com/satriacloudx/FinanceBotMe/internal/repo"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

func main() {
	cfg := config.MustLoad()

	lg, err := logger.New(cfg.LogDevelopment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := domain.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = domain.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			lg.Fatal("load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		}
	}

	pool := db.MustConnect(ctx, cfg.DatabaseURL)
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		lg.Fatal("migrations", zap.Error(err))
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		lg.Fatal("bot init", zap.Error(err))
	}
	botAPI.Debug = false

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tg := bot.NewTelegram(botAPI, lg)
	h := bot.NewHandler(cfg, bot.Deps{
		Messenger:    tg,
		Users:        repo.NewUsers(pool),
		Transactions: repo.NewTransactions(pool),
		Debts:        repo.NewDebts(pool),
		Sessions:     session.NewStore(),
		Charts:       render.NewCharts(),
		Exporter:     render.NewExporter(),
		Catalog:      catalog,
		Metrics:      m,
		Log:          lg,
	})

	if cfg.AdminID == 0 {
		lg.Warn("ADMIN_ID is not set, admin features are disabled")
	}
	lg.Info("bot started", zap.String("username", botAPI.Self.UserName), zap.Int("tiers", len(catalog.Tiers)))

	tg.Run(ctx, h)
	lg.Info("shutdown")
}

func metricsMux(m *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
