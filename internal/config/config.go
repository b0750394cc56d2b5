package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"oi-volume-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Market   MarketConfig   `mapstructure:"market"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Alerting AlertingConfig `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// MonitorConfig governs polling cadence and history retention.
type MonitorConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	MinSleep         time.Duration `mapstructure:"min_sleep"`
	RequestGap       time.Duration `mapstructure:"request_gap"`
	StartupDelay     time.Duration `mapstructure:"startup_delay"`
	SymbolsLimit     int           `mapstructure:"symbols_limit"`
	HistoryRetention int           `mapstructure:"history_retention"`
	UniverseRefresh  time.Duration `mapstructure:"universe_refresh"`
}

// MarketConfig covers upstream market data access.
type MarketConfig struct {
	Venues         []string      `mapstructure:"venues"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	BybitBaseURL   string        `mapstructure:"bybit_base_url"`
	OKXBaseURL     string        `mapstructure:"okx_base_url"`
}

// SignalsConfig defines rule thresholds.
type SignalsConfig struct {
	OIThresholdPct    float64       `mapstructure:"oi_threshold_pct"`
	PriceThresholdPct float64       `mapstructure:"price_threshold_pct"`
	MinMinuteVolume   float64       `mapstructure:"min_minute_volume"`
	Scoring           ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig toggles the composite strength scorecard.
type ScoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AlertingConfig defines alert gating and delivery channels.
type AlertingConfig struct {
	Cooldown      time.Duration  `mapstructure:"cooldown"`
	NotifyTimeout time.Duration  `mapstructure:"notify_timeout"`
	WeCom         WeComConfig    `mapstructure:"wecom"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// WeComConfig 描述企业微信机器人 Webhook 参数。
type WeComConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRYPTOSPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cryptospy")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.min_sleep", "1s")
	v.SetDefault("monitor.request_gap", "150ms")
	v.SetDefault("monitor.startup_delay", "0s")
	v.SetDefault("monitor.symbols_limit", 0)
	v.SetDefault("monitor.history_retention", 60)
	v.SetDefault("monitor.universe_refresh", "1h")

	v.SetDefault("market.venues", []string{"binance"})
	v.SetDefault("market.request_timeout", "15s")
	v.SetDefault("market.bybit_base_url", "https://api.bybit.com")
	v.SetDefault("market.okx_base_url", "https://www.okx.com")

	v.SetDefault("signals.oi_threshold_pct", 5.0)
	v.SetDefault("signals.price_threshold_pct", 2.0)
	v.SetDefault("signals.min_minute_volume", 50000.0)
	v.SetDefault("signals.scoring.enabled", false)

	v.SetDefault("alerting.cooldown", "300s")
	v.SetDefault("alerting.notify_timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than zero")
	}
	if c.Monitor.MinSleep <= 0 {
		return fmt.Errorf("monitor.min_sleep must be greater than zero")
	}
	if c.Monitor.HistoryRetention <= 0 {
		return fmt.Errorf("monitor.history_retention must be greater than zero")
	}
	if c.Monitor.SymbolsLimit < 0 {
		return fmt.Errorf("monitor.symbols_limit cannot be negative")
	}
	if len(c.Market.Venues) == 0 {
		return fmt.Errorf("market.venues must name at least one venue")
	}
	if c.Signals.OIThresholdPct < 0 {
		return fmt.Errorf("signals.oi_threshold_pct cannot be negative")
	}
	if c.Signals.PriceThresholdPct < 0 {
		return fmt.Errorf("signals.price_threshold_pct cannot be negative")
	}
	if c.Signals.MinMinuteVolume < 0 {
		return fmt.Errorf("signals.min_minute_volume cannot be negative")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}
