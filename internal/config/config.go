package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissing is returned when a command needs a variable that is not set
var ErrMissing = errors.New("missing required configuration")

// Config holds all configuration for the toolkit
type Config struct {
	// Mode
	DryRun bool
	Debug  bool

	// Storage
	DatabasePath string
	RedisURL     string
	CacheTTL     time.Duration

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Third-party APIs
	TwitterAPIKey    string
	TwelveDataAPIKey string
	HTTPRPS          float64

	// Wallet (BSC)
	BSCRPCURL        string
	WalletPrivateKey string
	AGCTokenAddress  string
	MinBNBThreshold  decimal.Decimal
	MinBNBFloor      decimal.Decimal
	GasPriceGwei     decimal.Decimal
	MiningInterval   time.Duration
	LowBalanceWait   time.Duration

	// Dashboard
	DashboardAddr string

	// Scanner profiles (built-ins merged with LOBSTER_PROFILES)
	ProfilesPath string
	Profiles     map[string]Profile
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		DatabasePath: getEnv("DATABASE_PATH", "data/lobster.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		TwitterAPIKey:    os.Getenv("TWITTERAPI_IO_KEY"),
		TwelveDataAPIKey: os.Getenv("TWELVEDATA_API_KEY"),
		HTTPRPS:          getEnvFloat("HTTP_RPS", 2),

		BSCRPCURL:        getEnv("BSC_RPC_URL", "https://bsc-dataseed.binance.org/"),
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		AGCTokenAddress:  os.Getenv("AGC_TOKEN_ADDRESS"),
		MinBNBThreshold:  getEnvDecimal("MIN_BNB_THRESHOLD", decimal.NewFromFloat(0.01)),
		MinBNBFloor:      getEnvDecimal("MIN_BNB_FLOOR", decimal.NewFromFloat(0.001)),
		GasPriceGwei:     getEnvDecimal("GAS_PRICE_GWEI", decimal.NewFromInt(5)),
		MiningInterval:   getEnvDuration("MINING_INTERVAL", 60*time.Second),
		LowBalanceWait:   getEnvDuration("LOW_BALANCE_WAIT", 5*time.Minute),

		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),

		ProfilesPath: os.Getenv("LOBSTER_PROFILES"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.MinBNBFloor.GreaterThan(cfg.MinBNBThreshold) {
		return nil, fmt.Errorf("MIN_BNB_FLOOR (%s) must not exceed MIN_BNB_THRESHOLD (%s)",
			cfg.MinBNBFloor, cfg.MinBNBThreshold)
	}

	profiles, err := LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		return nil, err
	}
	cfg.Profiles = profiles

	return cfg, nil
}

// TelegramEnabled reports whether push credentials are present
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// RequireTwitter checks the twitter monitor's credentials
func (c *Config) RequireTwitter() error {
	return require(map[string]string{"TWITTERAPI_IO_KEY": c.TwitterAPIKey})
}

// RequireTwelveData checks the stock quote credentials
func (c *Config) RequireTwelveData() error {
	return require(map[string]string{"TWELVEDATA_API_KEY": c.TwelveDataAPIKey})
}

// RequireWallet checks what the miner needs to sign transactions
func (c *Config) RequireWallet() error {
	return require(map[string]string{
		"WALLET_PRIVATE_KEY": c.WalletPrivateKey,
		"BSC_RPC_URL":        c.BSCRPCURL,
	})
}

func require(vars map[string]string) error {
	var missing []string
	for name, value := range vars {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
