package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "WALLETWATCH"

// Config holds configuration values loaded from flags, env, .env or config file.
type Config struct {
	Listen          string
	LogLevel        string
	PGDSN           string
	WalletsFile     string
	TelegramToken   string
	DryRun          bool
	CoinGeckoURL    string
	CoinGeckoAPIKey string
	PriceTTL        time.Duration
	PriceCacheSize  int
	FetchTimeout    time.Duration
	SendTimeout     time.Duration
	Registry        string
	KafkaBrokers    []string
	KafkaTopic      string
}

// Load merges defaults, a .env file in the working directory, environment
// variables, the config file and flags into Config. Later sources win, except
// that .env never overrides variables already set in the environment.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("wallets-file", "./data/wallets.jsonl")
	v.SetDefault("dry-run", false)
	v.SetDefault("coingecko-url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price-ttl", 5*time.Minute)
	v.SetDefault("price-cache-size", 500)
	v.SetDefault("fetch-timeout", 30*time.Second)
	v.SetDefault("send-timeout", 30*time.Second)
	v.SetDefault("kafka-topic", "walletwatch.events")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Listen:          v.GetString("listen"),
		LogLevel:        v.GetString("log-level"),
		PGDSN:           v.GetString("pg-dsn"),
		WalletsFile:     v.GetString("wallets-file"),
		TelegramToken:   v.GetString("telegram-token"),
		DryRun:          v.GetBool("dry-run"),
		CoinGeckoURL:    v.GetString("coingecko-url"),
		CoinGeckoAPIKey: v.GetString("coingecko-api-key"),
		PriceTTL:        v.GetDuration("price-ttl"),
		PriceCacheSize:  v.GetInt("price-cache-size"),
		FetchTimeout:    v.GetDuration("fetch-timeout"),
		SendTimeout:     v.GetDuration("send-timeout"),
		Registry:        v.GetString("registry"),
		KafkaBrokers:    getStringSlice(v, "kafka-brokers"),
		KafkaTopic:      v.GetString("kafka-topic"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.PriceTTL <= 0 {
		return fmt.Errorf("price-ttl must be positive")
	}
	if c.PriceCacheSize <= 0 {
		return fmt.Errorf("price-cache-size must be positive")
	}
	if c.FetchTimeout <= 0 || c.SendTimeout <= 0 {
		return fmt.Errorf("fetch-timeout and send-timeout must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("kafka-topic is required when kafka-brokers is set")
	}
	return nil
}

// UseTelegram reports whether notifications go to Telegram rather than the log.
func (c Config) UseTelegram() bool {
	return c.TelegramToken != "" && !c.DryRun
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
