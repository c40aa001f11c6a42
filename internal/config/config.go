package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Log       LogConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Server    ServerConfig
	Vault     VaultConfig
	Slack     SlackConfig
	OAuth     OAuthConfig
	Reasoning ReasoningConfig
	Signals   SignalsConfig
	Chat      ChatConfig
	Alerts    AlertsConfig
	RateLimit RateLimitConfig
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Pretty bool
}

// StoreConfig selects the datastore backend. The memory backend writes a
// JSON snapshot to DataFile when one is set.
type StoreConfig struct {
	Driver   string
	DataFile string
	Seed     bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr selects the
// in-process bus and OAuth state store.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds actor token settings. An empty Secret disables
// authentication.
type JWTConfig struct {
	Secret   string //nolint:gosec // G117: JWT signing secret config
	TokenTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	PublicURL    string
	FrontendURL  string
}

// VaultConfig holds the passphrase integration credentials are sealed with.
type VaultConfig struct {
	Passphrase string //nolint:gosec // G117: vault passphrase config
}

// SlackConfig holds the workspace-independent Slack bot settings.
type SlackConfig struct {
	BotToken string
	APIURL   string
}

// OAuthClient is one provider's OAuth application.
type OAuthClient struct {
	ClientID     string
	ClientSecret string //nolint:gosec // G117: OAuth client secret config
}

// Enabled reports whether the client is configured.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuthConfig holds the OAuth applications for integration providers.
type OAuthConfig struct {
	GitHub OAuthClient
	Slack  OAuthClient
	Stripe OAuthClient
	Notion OAuthClient
}

// ReasoningConfig points at the optional plan-generation service. An empty
// URL uses the built-in fallback plan.
type ReasoningConfig struct {
	URL        string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// SignalsConfig drives the background metric ticker.
type SignalsConfig struct {
	Interval   time.Duration
	Workspaces []string
}

// ChatConfig tunes chat streaming.
type ChatConfig struct {
	PersistOnAbandon bool
	KeepAlive        time.Duration
}

// AlertsConfig routes anomaly alerts to Slack. An empty channel disables
// alerting.
type AlertsConfig struct {
	Channel     string
	MinSeverity string
}

// RateLimitConfig is the per-workspace token bucket.
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. The vault passphrase has no
// default.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("OPSPILOT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("OPSPILOT_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("OPSPILOT_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("OPSPILOT_JWT_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("OPSPILOT_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("OPSPILOT_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reasoningTimeout, err := getEnvDuration("OPSPILOT_REASONING_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reasoningRetries, err := getEnvInt("OPSPILOT_REASONING_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	signalsInterval, err := getEnvDuration("OPSPILOT_SIGNALS_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	persistOnAbandon, err := getEnvBool("OPSPILOT_CHAT_PERSIST_ON_DISCONNECT", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	keepAlive, err := getEnvDuration("OPSPILOT_CHAT_KEEPALIVE", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvInt("OPSPILOT_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("OPSPILOT_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	seed, err := getEnvBool("OPSPILOT_SEED", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pretty, err := getEnvBool("OPSPILOT_LOG_PRETTY", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	publicURL := strings.TrimRight(getEnv("OPSPILOT_PUBLIC_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("OPSPILOT_LOG_LEVEL", "info"),
			Pretty: pretty,
		},
		Store: StoreConfig{
			Driver:   getEnv("OPSPILOT_STORE", StoreMemory),
			DataFile: getEnv("OPSPILOT_DATA_FILE", ""),
			Seed:     seed,
		},
		Database: DatabaseConfig{
			Host:     getEnv("OPSPILOT_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("OPSPILOT_DB_USER", "opspilot"),
			Password: getEnv("OPSPILOT_DB_PASSWORD", ""),
			DBName:   getEnv("OPSPILOT_DB_NAME", "opspilot_dev"),
			SSLMode:  getEnv("OPSPILOT_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("OPSPILOT_REDIS_ADDR", ""),
			Password: getEnv("OPSPILOT_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:   getEnv("OPSPILOT_JWT_SECRET", ""),
			TokenTTL: tokenTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("OPSPILOT_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("OPSPILOT_CORS_ORIGINS", []string{"http://localhost:5173"}),
			PublicURL:    publicURL,
			FrontendURL:  strings.TrimRight(getEnv("OPSPILOT_FRONTEND_URL", "http://localhost:5173"), "/"),
		},
		Vault: VaultConfig{
			Passphrase: getEnv("OPSPILOT_SECRET_PASSPHRASE", ""),
		},
		Slack: SlackConfig{
			BotToken: getEnv("OPSPILOT_SLACK_BOT_TOKEN", ""),
			APIURL:   getEnv("OPSPILOT_SLACK_API_URL", ""),
		},
		OAuth: OAuthConfig{
			GitHub: oauthClient("GITHUB"),
			Slack:  oauthClient("SLACK"),
			Stripe: oauthClient("STRIPE"),
			Notion: oauthClient("NOTION"),
		},
		Reasoning: ReasoningConfig{
			URL:        getEnv("OPSPILOT_REASONING_URL", ""),
			APIKey:     getEnv("OPSPILOT_REASONING_API_KEY", ""),
			Model:      getEnv("OPSPILOT_REASONING_MODEL", "gpt-4o-mini"),
			Timeout:    reasoningTimeout,
			MaxRetries: reasoningRetries,
		},
		Signals: SignalsConfig{
			Interval:   signalsInterval,
			Workspaces: getEnvList("OPSPILOT_SIGNALS_WORKSPACES", []string{"ws-demo"}),
		},
		Chat: ChatConfig{
			PersistOnAbandon: persistOnAbandon,
			KeepAlive:        keepAlive,
		},
		Alerts: AlertsConfig{
			Channel:     getEnv("OPSPILOT_ALERTS_CHANNEL", ""),
			MinSeverity: getEnv("OPSPILOT_ALERTS_MIN_SEVERITY", "high"),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// OAuthRedirectURL is the callback registered with a provider.
func (c *Config) OAuthRedirectURL(provider string) string {
	return c.Server.PublicURL + "/api/v1/integrations/oauth/" + provider + "/callback"
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// Integration credentials are sealed with this; there is no safe default.
	if c.Vault.Passphrase == "" {
		return errors.New("OPSPILOT_SECRET_PASSPHRASE is required")
	}
	if len(c.Vault.Passphrase) < 16 {
		return errors.New("OPSPILOT_SECRET_PASSPHRASE must be at least 16 characters")
	}

	if c.JWT.Secret == "" {
		log.Warn().Msg("OPSPILOT_JWT_SECRET is unset; API requests are not authenticated")
	} else if len(c.JWT.Secret) < 32 {
		return errors.New("OPSPILOT_JWT_SECRET must be at least 32 characters")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("OPSPILOT_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("OPSPILOT_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("OPSPILOT_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
	default:
		return fmt.Errorf("OPSPILOT_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store.Driver)
	}

	// Bounds checks.
	if c.JWT.TokenTTL <= 0 {
		return fmt.Errorf("OPSPILOT_JWT_TOKEN_TTL must be positive, got %s", c.JWT.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("OPSPILOT_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("OPSPILOT_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Reasoning.Timeout <= 0 {
		return fmt.Errorf("OPSPILOT_REASONING_TIMEOUT must be positive, got %s", c.Reasoning.Timeout)
	}
	if c.Reasoning.MaxRetries < 0 {
		return fmt.Errorf("OPSPILOT_REASONING_MAX_RETRIES must be >= 0, got %d", c.Reasoning.MaxRetries)
	}
	if c.Signals.Interval <= 0 {
		return fmt.Errorf("OPSPILOT_SIGNALS_INTERVAL must be positive, got %s", c.Signals.Interval)
	}
	if c.Chat.KeepAlive <= 0 {
		return fmt.Errorf("OPSPILOT_CHAT_KEEPALIVE must be positive, got %s", c.Chat.KeepAlive)
	}
	switch c.Alerts.MinSeverity {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("OPSPILOT_ALERTS_MIN_SEVERITY must be low, medium or high, got %q", c.Alerts.MinSeverity)
	}
	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("OPSPILOT_RATE_LIMIT_RPS must be >= 1, got %d", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("OPSPILOT_RATE_LIMIT_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func oauthClient(provider string) OAuthClient {
	return OAuthClient{
		ClientID:     getEnv("OPSPILOT_"+provider+"_CLIENT_ID", ""),
		ClientSecret: getEnv("OPSPILOT_"+provider+"_CLIENT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
