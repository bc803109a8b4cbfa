package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken        string `validate:"required"`
	DatabaseURL     string `validate:"required"`
	AdminID         int64  `validate:"gte=0"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogDevelopment  bool
	MetricsAddr     string
	CatalogPath     string
	DefaultPlanDays int `validate:"gte=1,lte=3660"`
	PaymentInfo     string
	AdminContactURL string `validate:"omitempty,url"`
}

// MustLoad reads the environment (and .env, if present) and exits on invalid
// configuration.
func MustLoad() Config {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		BotToken:        strings.TrimSpace(getenv("BOT_TOKEN")),
		DatabaseURL:     strings.TrimSpace(getenv("DATABASE_URL")),
		LogLevel:        strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL"))),
		LogDevelopment:  getenv("LOG_DEVELOPMENT") == "true",
		MetricsAddr:     strings.TrimSpace(getenv("METRICS_ADDR")),
		CatalogPath:     strings.TrimSpace(getenv("CATALOG_PATH")),
		DefaultPlanDays: 30,
		PaymentInfo:     getenv("PAYMENT_INFO"),
		AdminContactURL: strings.TrimSpace(getenv("ADMIN_CONTACT_URL")),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PaymentInfo == "" {
		cfg.PaymentInfo = "Transfer to the account shown by the admin, then send the receipt to the admin."
	}

	if v := strings.TrimSpace(getenv("ADMIN_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("ADMIN_ID: %w", err)
		}
		cfg.AdminID = id
	}
	if v := strings.TrimSpace(getenv("DEFAULT_PLAN_DAYS")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DEFAULT_PLAN_DAYS: %w", err)
		}
		cfg.DefaultPlanDays = days
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
