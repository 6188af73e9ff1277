package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration object, assembled from .env + environment
// variables by Load and validated once on startup.
type Config struct {
	Environment string         `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string         `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Vendor      VendorConfig     `mapstructure:"vendor"`
	LLM         LLMConfig        `mapstructure:"llm"`
	News        NewsConfig       `mapstructure:"news"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Server      ServerConfig     `mapstructure:"server"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
}

// TelegramConfig holds the two-bot credential split BroadcastSink's two
// modes need: a single fixed chat for single-channel delivery, and a
// separate bot token for the broadcast-to-all-active-subscribers mode
// (mirroring the teacher stack's TELEGRAM_BOT_TOKEN/ANALYSIS_TELEGRAM_BOT_TOKEN
// split).
type TelegramConfig struct {
	BotToken         string `mapstructure:"bot_token"`
	ChatID           string `mapstructure:"chat_id"`
	BroadcastToken   string `mapstructure:"broadcast_bot_token"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	User            string `mapstructure:"user" validate:"required"`
	Password        string `mapstructure:"password" validate:"required"`
	Name            string `mapstructure:"name" validate:"required"`
	SSLMode         string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxConnections  int    `mapstructure:"max_connections" validate:"min=1,max=100"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"min=1"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" validate:"min=60"`
}

// VendorConfig holds the market-data vendor's credentials and the polite
// rate limit MarketDataClient applies to every request.
type VendorConfig struct {
	APIKey           string `mapstructure:"api_key" validate:"required"`
	SecretKey        string `mapstructure:"secret_key"`
	BaseURL          string `mapstructure:"base_url" validate:"required,url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	UseMock          bool   `mapstructure:"use_mock"`
}

// LLMConfig holds credentials for both supported sentiment providers;
// SentimentEnricher auto-detects which one to use from whichever key is set.
type LLMConfig struct {
	Provider        string `mapstructure:"provider" validate:"oneof=openai anthropic auto"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	Model           string `mapstructure:"model"`
	RequestInterval int    `mapstructure:"request_interval_seconds" validate:"min=0"`
}

// NewsConfig holds the optional news-feed collaborator's credentials.
type NewsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	HTTPPort     int    `mapstructure:"http_port" validate:"min=1024,max=65535"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout" validate:"min=1"`
	WriteTimeout int    `mapstructure:"write_timeout" validate:"min=1"`
	EnableCORS   bool   `mapstructure:"enable_cors"`
}

// PipelineConfig is the set of operator-tunable knobs spec.md §6 names.
type PipelineConfig struct {
	Timeframe        string  `mapstructure:"timeframe" validate:"oneof=1m 5m 15m 30m 1h 75m 1d 1w"`
	Period           string  `mapstructure:"period" validate:"oneof=7d 60d 2y 5y max"`
	MinConfidence    float64 `mapstructure:"min_confidence" validate:"min=0,max=100"`
	LookbackCandles  int     `mapstructure:"lookback_candles" validate:"min=1"`
	WorkerCap        int     `mapstructure:"worker_cap" validate:"min=1,max=64"`
	SyncMode         string  `mapstructure:"sync_mode" validate:"oneof=full incremental force"`
	SentimentEnabled bool    `mapstructure:"sentiment_enabled"`
	BroadcastMode    string  `mapstructure:"broadcast_mode" validate:"oneof=single broadcast"`
	MinRiskReward    float64 `mapstructure:"min_rr" validate:"min=0"`
}

// Load loads .env then environment variables into a validated Config,
// mirroring the teacher's explicit per-field BindEnv + SetDefault shape.
func Load() (*Config, error) {
	if err := godotenv.Load("config/.env"); err != nil {
		if os.Getenv("ENVIRONMENT") == "" {
			fmt.Printf("Warning: No .env file found, using environment variables only\n")
		}
	}

	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.max_connections", "DATABASE_MAX_CONNECTIONS")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")

	viper.BindEnv("vendor.api_key", "VENDOR_API_KEY")
	viper.BindEnv("vendor.secret_key", "VENDOR_SECRET_KEY")
	viper.BindEnv("vendor.base_url", "VENDOR_BASE_URL")
	viper.BindEnv("vendor.requests_per_second", "VENDOR_REQUESTS_PER_SECOND")
	viper.BindEnv("vendor.use_mock", "VENDOR_USE_MOCK")

	viper.BindEnv("llm.provider", "LLM_PROVIDER")
	viper.BindEnv("llm.openai_api_key", "LLM_OPENAI_API_KEY")
	viper.BindEnv("llm.anthropic_api_key", "LLM_ANTHROPIC_API_KEY")
	viper.BindEnv("llm.model", "LLM_MODEL")
	viper.BindEnv("llm.request_interval_seconds", "LLM_REQUEST_INTERVAL_SECONDS")

	viper.BindEnv("news.api_key", "NEWS_API_KEY")
	viper.BindEnv("news.base_url", "NEWS_BASE_URL")

	viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	viper.BindEnv("telegram.broadcast_bot_token", "ANALYSIS_TELEGRAM_BOT_TOKEN")

	viper.BindEnv("server.http_port", "SERVER_HTTP_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("pipeline.timeframe", "PIPELINE_TIMEFRAME")
	viper.BindEnv("pipeline.period", "PIPELINE_PERIOD")
	viper.BindEnv("pipeline.min_confidence", "PIPELINE_MIN_CONFIDENCE")
	viper.BindEnv("pipeline.lookback_candles", "PIPELINE_LOOKBACK_CANDLES")
	viper.BindEnv("pipeline.worker_cap", "PIPELINE_WORKER_CAP")
	viper.BindEnv("pipeline.sync_mode", "PIPELINE_SYNC_MODE")
	viper.BindEnv("pipeline.sentiment_enabled", "PIPELINE_SENTIMENT_ENABLED")
	viper.BindEnv("pipeline.broadcast_mode", "PIPELINE_BROADCAST_MODE")
	viper.BindEnv("pipeline.min_rr", "PIPELINE_MIN_RR")

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the handful of fields that have no safe default.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Database.Port == 0 {
		return errors.New("database port is required")
	}
	if c.Vendor.APIKey == "" && !c.Vendor.UseMock {
		return errors.New("vendor API key is required unless vendor.use_mock is set")
	}
	if c.Vendor.BaseURL == "" {
		return errors.New("vendor base URL is required")
	}
	if c.Server.HTTPPort == 0 {
		return errors.New("HTTP port is required")
	}
	if c.Pipeline.SentimentEnabled && c.LLM.OpenAIAPIKey == "" && c.LLM.AnthropicAPIKey == "" {
		return errors.New("pipeline.sentiment_enabled requires an LLM API key")
	}
	if c.Pipeline.BroadcastMode == "single" && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return errors.New("pipeline.broadcast_mode=single requires telegram.bot_token and telegram.chat_id")
	}
	if c.Pipeline.BroadcastMode == "broadcast" && c.Telegram.BroadcastToken == "" {
		return errors.New("pipeline.broadcast_mode=broadcast requires telegram.broadcast_bot_token")
	}
	return nil
}

// String renders the config with secrets masked, for startup logging.
func (c *Config) String() string {
	masked := *c
	masked.Database.Password = "***"
	masked.Vendor.APIKey = "***"
	masked.Vendor.SecretKey = "***"
	masked.LLM.OpenAIAPIKey = "***"
	masked.LLM.AnthropicAPIKey = "***"
	masked.News.APIKey = "***"
	masked.Telegram.BotToken = "***"
	masked.Telegram.BroadcastToken = "***"
	return fmt.Sprintf("%+v", masked)
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.name", "signalengine")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("vendor.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("vendor.requests_per_second", 0.66)
	viper.SetDefault("vendor.use_mock", false)

	viper.SetDefault("llm.provider", "auto")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.request_interval_seconds", 7)

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("server.enable_cors", true)

	viper.SetDefault("news.base_url", "https://news.google.com/rss")

	viper.SetDefault("pipeline.timeframe", "1d")
	viper.SetDefault("pipeline.period", "max")
	viper.SetDefault("pipeline.min_confidence", 65.0)
	viper.SetDefault("pipeline.lookback_candles", 365)
	viper.SetDefault("pipeline.worker_cap", 5)
	viper.SetDefault("pipeline.sync_mode", "incremental")
	viper.SetDefault("pipeline.sentiment_enabled", false)
	viper.SetDefault("pipeline.broadcast_mode", "single")
	viper.SetDefault("pipeline.min_rr", 1.5)
}
