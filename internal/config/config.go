package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable the dashboard reads
const EnvPrefix = "KOI"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Bridge    BridgeConfig    `yaml:"bridge" envconfig:"BRIDGE"`
	Polling   PollingConfig   `yaml:"polling" envconfig:"POLLING"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	// StaticDir, when set, is served at / for the browser dashboard
	StaticDir string `yaml:"static_dir" envconfig:"STATIC_DIR"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// BridgeConfig configures the connection to the trading process
type BridgeConfig struct {
	URL               string        `yaml:"url" envconfig:"URL"`
	DialTimeout       time.Duration `yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT"`
	CallTimeout       time.Duration `yaml:"call_timeout" envconfig:"CALL_TIMEOUT"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" envconfig:"RECONNECT_INTERVAL"`
	CommandRPS        float64       `yaml:"command_rps" envconfig:"COMMAND_RPS"`
	CommandBurst      int           `yaml:"command_burst" envconfig:"COMMAND_BURST"`
}

// PollingConfig holds the refresh cadence of every snapshot
type PollingConfig struct {
	Koi          time.Duration `yaml:"koi" envconfig:"KOI"`
	Heartbeat    time.Duration `yaml:"heartbeat" envconfig:"HEARTBEAT"`
	Ticks        time.Duration `yaml:"ticks" envconfig:"TICKS"`
	TraderBars   time.Duration `yaml:"trader_bars" envconfig:"TRADER_BARS"`
	Backtests    time.Duration `yaml:"backtests" envconfig:"BACKTESTS"`
	BacktestBars time.Duration `yaml:"backtest_bars" envconfig:"BACKTEST_BARS"`
	Analyses     time.Duration `yaml:"analyses" envconfig:"ANALYSES"`
}

// DashboardConfig holds view behaviour switches
type DashboardConfig struct {
	// OpenOnFirstBuy lets any Buy open a position when pairing transactions.
	// When false only symbols the backtest reports buys for are tracked.
	OpenOnFirstBuy bool `yaml:"open_on_first_buy" envconfig:"OPEN_ON_FIRST_BUY"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`

	// RuntimeInterval is how often goroutine and memory gauges are sampled
	RuntimeInterval time.Duration `yaml:"runtime_interval" envconfig:"RUNTIME_INTERVAL"`
}

// Load builds the configuration from defaults, an optional config.yaml and
// KOI_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if !strings.HasPrefix(c.Bridge.URL, "ws://") && !strings.HasPrefix(c.Bridge.URL, "wss://") {
		return fmt.Errorf("bridge url must be a ws:// or wss:// url: %q", c.Bridge.URL)
	}

	if c.Bridge.CallTimeout <= 0 || c.Bridge.DialTimeout <= 0 {
		return fmt.Errorf("bridge timeouts must be positive")
	}

	if c.Bridge.CommandRPS <= 0 || c.Bridge.CommandBurst <= 0 {
		return fmt.Errorf("bridge command rate limit must be positive")
	}

	intervals := map[string]time.Duration{
		"koi":           c.Polling.Koi,
		"heartbeat":     c.Polling.Heartbeat,
		"ticks":         c.Polling.Ticks,
		"trader_bars":   c.Polling.TraderBars,
		"backtests":     c.Polling.Backtests,
		"backtest_bars": c.Polling.BacktestBars,
		"analyses":      c.Polling.Analyses,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("polling interval %s must be positive", name)
		}
	}

	// JSON is the only supported format
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/dashboard.log"
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Telemetry.RuntimeInterval <= 0 {
		c.Telemetry.RuntimeInterval = 15 * time.Second
	}

	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/dashboard.log",
		},
		Bridge: BridgeConfig{
			URL:               "ws://localhost:8000/eel",
			DialTimeout:       5 * time.Second,
			CallTimeout:       5 * time.Second,
			ReconnectInterval: 2 * time.Second,
			CommandRPS:        5,
			CommandBurst:      10,
		},
		Polling: PollingConfig{
			Koi:          1000 * time.Millisecond,
			Heartbeat:    5000 * time.Millisecond,
			Ticks:        1000 * time.Millisecond,
			TraderBars:   1000 * time.Millisecond,
			Backtests:    500 * time.Millisecond,
			BacktestBars: 1000 * time.Millisecond,
			Analyses:     5000 * time.Millisecond,
		},
		Dashboard: DashboardConfig{
			OpenOnFirstBuy: false,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  512,
		},
		Telemetry: TelemetryConfig{
			Environment:     "development",
			TraceExporter:   "none",
			MetricExporter:  "prometheus",
			SampleRatio:     1.0,
			RuntimeInterval: 15 * time.Second,
		},
	}
}
