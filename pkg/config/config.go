package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Backend   BackendConfig
	Redis     RedisConfig
	Scanner   ScannerConfig
	Search    SearchConfig
	Receipt   ReceiptConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Receipt.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"POS_APP_ENV" required:"true"`
	Port          string `envconfig:"POS_APP_PORT" default:"8085"`
	LogLevel      string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`
	CounterNumber string `envconfig:"POS_COUNTER_NUMBER" default:"1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the terminal at the remote sales/inventory API.
type BackendConfig struct {
	BaseURL string        `envconfig:"POS_BACKEND_URL" required:"true"`
	Token   string        `envconfig:"POS_BACKEND_TOKEN"`
	Timeout time.Duration `envconfig:"POS_BACKEND_TIMEOUT" default:"10s"`
}

func (b BackendConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(b.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvBackendURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvBackendURL)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvBackendTimeout)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"POS_REDIS_URL"`
	Address      string        `envconfig:"POS_REDIS_ADDR"`
	Password     string        `envconfig:"POS_REDIS_PASSWORD"`
	DB           int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POS_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"2s"`
	SnapshotTTL  time.Duration `envconfig:"POS_REDIS_SNAPSHOT_TTL" default:"12h"`
	LeaseTTL     time.Duration `envconfig:"POS_REDIS_LEASE_TTL" default:"30s"`
}

// Enabled reports whether a redis endpoint was configured. The terminal runs without one.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type ScannerConfig struct {
	// Devices is a comma separated list of path[:label] entries, e.g. "/dev/ttyACM0:back,/dev/ttyACM1:front".
	Devices       string        `envconfig:"POS_SCANNER_DEVICES"`
	RetryInterval time.Duration `envconfig:"POS_SCANNER_RETRY_INTERVAL" default:"100ms"`
	SettleDelay   time.Duration `envconfig:"POS_SCANNER_SETTLE_DELAY" default:"300ms"`
	EventBuffer   int           `envconfig:"POS_SCANNER_EVENT_BUFFER" default:"8"`
}

// DeviceSpec is one configured scanner device.
type DeviceSpec struct {
	Path  string
	Label string
}

// DeviceSpecs parses Devices into ordered specs. Entries without a label use the path.
func (s ScannerConfig) DeviceSpecs() []DeviceSpec {
	var specs []DeviceSpec
	for _, raw := range strings.Split(s.Devices, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		path, label, found := strings.Cut(raw, ":")
		path = strings.TrimSpace(path)
		label = strings.TrimSpace(label)
		if !found || label == "" {
			label = path
		}
		specs = append(specs, DeviceSpec{Path: path, Label: label})
	}
	return specs
}

type SearchConfig struct {
	Debounce time.Duration `envconfig:"POS_SEARCH_DEBOUNCE" default:"300ms"`
}

type ReceiptConfig struct {
	StoreName      string `envconfig:"POS_RECEIPT_STORE_NAME" default:"POS Store"`
	Address        string `envconfig:"POS_RECEIPT_ADDRESS"`
	Phone          string `envconfig:"POS_RECEIPT_PHONE"`
	TaxID          string `envconfig:"POS_RECEIPT_TAX_ID"`
	PrinterKind    string `envconfig:"POS_PRINTER_KIND" default:"none"`
	PrinterAddress string `envconfig:"POS_PRINTER_ADDRESS"`
	PrinterWidth   int    `envconfig:"POS_PRINTER_WIDTH" default:"32"`
}

func (r ReceiptConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.PrinterKind)) {
	case PrinterKindNone, "":
		return nil
	case PrinterKindNetwork, PrinterKindDevice:
		if strings.TrimSpace(r.PrinterAddress) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvPrinterAddress, EnvPrinterKind, r.PrinterKind)
		}
		return nil
	default:
		return fmt.Errorf("%s must be one of none, network, device", EnvPrinterKind)
	}
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"POS_CORS_ORIGINS" default:"http://localhost:3000"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"POS_METRICS_ENABLED" default:"true"`
}

// RateLimitConfig throttles the local API per client. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"POS_RATE_LIMIT_RPS" default:"20"`
	Burst             int     `envconfig:"POS_RATE_LIMIT_BURST" default:"40"`
}

func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0 && r.Burst > 0
}
