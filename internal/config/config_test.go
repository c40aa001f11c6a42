package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "OPSPILOT_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "OPSPILOT_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "OPSPILOT_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "OPSPILOT_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "OPSPILOT_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "OPSPILOT_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "OPSPILOT_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "parses zero", key: "OPSPILOT_TEST_INT_ZERO", setVal: strPtr("0"), fallback: 99, want: 0},
		{name: "returns fallback for empty string", key: "OPSPILOT_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "OPSPILOT_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "OPSPILOT_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
		{name: "errors on hex", key: "OPSPILOT_TEST_INT_HEX", setVal: strPtr("0xFF"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "OPSPILOT_TEST_BOOL_UNSET", setVal: nil, fallback: false, want: false},
		{name: "fallback true when unset", key: "OPSPILOT_TEST_BOOL_UNSETTRUE", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "OPSPILOT_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses false", key: "OPSPILOT_TEST_BOOL_FALSE", setVal: strPtr("false"), fallback: true, want: false},
		{name: "parses 1", key: "OPSPILOT_TEST_BOOL_ONE", setVal: strPtr("1"), fallback: false, want: true},
		{name: "parses 0", key: "OPSPILOT_TEST_BOOL_ZERO", setVal: strPtr("0"), fallback: true, want: false},
		{name: "parses TRUE uppercase", key: "OPSPILOT_TEST_BOOL_UPPER", setVal: strPtr("TRUE"), fallback: false, want: true},
		{name: "parses t", key: "OPSPILOT_TEST_BOOL_T", setVal: strPtr("t"), fallback: false, want: true},
		{name: "errors on invalid", key: "OPSPILOT_TEST_BOOL_INV", setVal: strPtr("yes"), fallback: false, wantErr: true},
		{name: "errors on numeric non-bool", key: "OPSPILOT_TEST_BOOL_NUM", setVal: strPtr("2"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "OPSPILOT_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "OPSPILOT_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses minutes", key: "OPSPILOT_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses hours", key: "OPSPILOT_TEST_DUR_HR", setVal: strPtr("2h"), fallback: 0, want: 2 * time.Hour},
		{name: "parses composite", key: "OPSPILOT_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "parses nanosecond", key: "OPSPILOT_TEST_DUR_NS", setVal: strPtr("1ns"), fallback: 0, want: time.Nanosecond},
		{name: "parses zero", key: "OPSPILOT_TEST_DUR_ZERO", setVal: strPtr("0s"), fallback: 5 * time.Second, want: 0},
		{name: "errors on invalid", key: "OPSPILOT_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "OPSPILOT_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name     string
		setVal   *string
		fallback []string
		want     []string
	}{
		{name: "returns fallback when unset", setVal: nil, fallback: []string{"a"}, want: []string{"a"}},
		{name: "splits and trims", setVal: strPtr(" ws-a , ws-b "), fallback: nil, want: []string{"ws-a", "ws-b"}},
		{name: "drops empty items", setVal: strPtr("ws-a,,ws-b,"), fallback: nil, want: []string{"ws-a", "ws-b"}},
		{name: "only separators", setVal: strPtr(",,"), fallback: []string{"x"}, want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv("OPSPILOT_TEST_LIST", *tc.setVal)
			}

			assert.Equal(t, tc.want, getEnvList("OPSPILOT_TEST_LIST", tc.fallback))
		})
	}
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

const testPassphrase = "correct horse battery staple"

func TestLoad_MissingPassphrase(t *testing.T) {
	// All defaults apply; the vault passphrase is empty => must fail.
	t.Setenv("OPSPILOT_SECRET_PASSPHRASE", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "OPSPILOT_SECRET_PASSPHRASE")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envs   map[string]string
		errMsg string
	}{
		{name: "passphrase too short", envs: map[string]string{"OPSPILOT_SECRET_PASSPHRASE": "short"}, errMsg: "OPSPILOT_SECRET_PASSPHRASE"},
		{name: "JWT secret too short", envs: map[string]string{"OPSPILOT_JWT_SECRET": "not-long-enough"}, errMsg: "OPSPILOT_JWT_SECRET"},
		{name: "unknown store", envs: map[string]string{"OPSPILOT_STORE": "sqlite"}, errMsg: "OPSPILOT_STORE"},

		// Database bounds only apply to the postgres store.
		{name: "DB_PORT not a number", envs: map[string]string{"OPSPILOT_DB_PORT": "abc"}, errMsg: "OPSPILOT_DB_PORT"},
		{name: "DB_PORT zero", envs: map[string]string{"OPSPILOT_STORE": "postgres", "OPSPILOT_DB_PORT": "0"}, errMsg: "OPSPILOT_DB_PORT"},
		{name: "DB_PORT too high", envs: map[string]string{"OPSPILOT_STORE": "postgres", "OPSPILOT_DB_PORT": "65536"}, errMsg: "OPSPILOT_DB_PORT"},
		{name: "DB_MAX_CONNS zero", envs: map[string]string{"OPSPILOT_STORE": "postgres", "OPSPILOT_DB_MAX_CONNS": "0"}, errMsg: "OPSPILOT_DB_MAX_CONNS"},

		{name: "REDIS_DB not a number", envs: map[string]string{"OPSPILOT_REDIS_DB": "abc"}, errMsg: "OPSPILOT_REDIS_DB"},
		{name: "JWT_TOKEN_TTL zero", envs: map[string]string{"OPSPILOT_JWT_TOKEN_TTL": "0s"}, errMsg: "OPSPILOT_JWT_TOKEN_TTL"},
		{name: "SERVER_READ_TIMEOUT invalid", envs: map[string]string{"OPSPILOT_SERVER_READ_TIMEOUT": "notduration"}, errMsg: "OPSPILOT_SERVER_READ_TIMEOUT"},
		{name: "SERVER_WRITE_TIMEOUT zero", envs: map[string]string{"OPSPILOT_SERVER_WRITE_TIMEOUT": "0s"}, errMsg: "OPSPILOT_SERVER_WRITE_TIMEOUT"},
		{name: "REASONING_TIMEOUT negative", envs: map[string]string{"OPSPILOT_REASONING_TIMEOUT": "-1s"}, errMsg: "OPSPILOT_REASONING_TIMEOUT"},
		{name: "REASONING_MAX_RETRIES negative", envs: map[string]string{"OPSPILOT_REASONING_MAX_RETRIES": "-1"}, errMsg: "OPSPILOT_REASONING_MAX_RETRIES"},
		{name: "SIGNALS_INTERVAL zero", envs: map[string]string{"OPSPILOT_SIGNALS_INTERVAL": "0s"}, errMsg: "OPSPILOT_SIGNALS_INTERVAL"},
		{name: "CHAT_PERSIST not a bool", envs: map[string]string{"OPSPILOT_CHAT_PERSIST_ON_DISCONNECT": "maybe"}, errMsg: "OPSPILOT_CHAT_PERSIST_ON_DISCONNECT"},
		{name: "CHAT_KEEPALIVE zero", envs: map[string]string{"OPSPILOT_CHAT_KEEPALIVE": "0s"}, errMsg: "OPSPILOT_CHAT_KEEPALIVE"},
		{name: "RATE_LIMIT_RPS zero", envs: map[string]string{"OPSPILOT_RATE_LIMIT_RPS": "0"}, errMsg: "OPSPILOT_RATE_LIMIT_RPS"},
		{name: "RATE_LIMIT_BURST zero", envs: map[string]string{"OPSPILOT_RATE_LIMIT_BURST": "0"}, errMsg: "OPSPILOT_RATE_LIMIT_BURST"},
		{name: "SEED not a bool", envs: map[string]string{"OPSPILOT_SEED": "yes"}, errMsg: "OPSPILOT_SEED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Always set the passphrase so failures are from the vars under test.
			t.Setenv("OPSPILOT_SECRET_PASSPHRASE", testPassphrase)
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	// Only the required passphrase is set; everything else uses defaults.
	t.Setenv("OPSPILOT_SECRET_PASSPHRASE", testPassphrase)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DataFile)
	assert.True(t, cfg.Store.Seed)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "opspilot", cfg.Database.User)
	assert.Equal(t, "opspilot_dev", cfg.Database.DBName)
	assert.Equal(t, 10, cfg.Database.MaxConns)

	// No Redis address selects the in-process bus.
	assert.Empty(t, cfg.Redis.Addr)

	// No JWT secret disables authentication.
	assert.Empty(t, cfg.JWT.Secret)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TokenTTL)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Equal(t, "http://localhost:5173", cfg.Server.FrontendURL)

	assert.False(t, cfg.OAuth.GitHub.Enabled())
	assert.False(t, cfg.OAuth.Slack.Enabled())

	assert.Empty(t, cfg.Reasoning.URL)
	assert.Equal(t, "gpt-4o-mini", cfg.Reasoning.Model)
	assert.Equal(t, 15*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, 2, cfg.Reasoning.MaxRetries)

	assert.Equal(t, 60*time.Second, cfg.Signals.Interval)
	assert.Equal(t, []string{"ws-demo"}, cfg.Signals.Workspaces)

	assert.True(t, cfg.Chat.PersistOnAbandon)
	assert.Equal(t, 30*time.Second, cfg.Chat.KeepAlive)

	assert.Empty(t, cfg.Alerts.Channel)
	assert.Equal(t, "high", cfg.Alerts.MinSeverity)

	assert.Equal(t, 20, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		"OPSPILOT_SECRET_PASSPHRASE":          testPassphrase,
		"OPSPILOT_LOG_LEVEL":                  "debug",
		"OPSPILOT_LOG_PRETTY":                 "true",
		"OPSPILOT_STORE":                      "postgres",
		"OPSPILOT_DATA_FILE":                  "/var/lib/opspilot/data.json",
		"OPSPILOT_SEED":                       "false",
		"OPSPILOT_DB_HOST":                    "db.prod.internal",
		"OPSPILOT_DB_PORT":                    "5433",
		"OPSPILOT_DB_USER":                    "prod_user",
		"OPSPILOT_DB_PASSWORD":                "s3cret!",
		"OPSPILOT_DB_NAME":                    "opspilot_prod",
		"OPSPILOT_DB_SSLMODE":                 "require",
		"OPSPILOT_DB_MAX_CONNS":               "50",
		"OPSPILOT_REDIS_ADDR":                 "redis.prod:6380",
		"OPSPILOT_REDIS_PASSWORD":             "redis-pass",
		"OPSPILOT_REDIS_DB":                   "3",
		"OPSPILOT_JWT_SECRET":                 "production-secret-that-is-very-long-and-secure",
		"OPSPILOT_JWT_TOKEN_TTL":              "1h",
		"OPSPILOT_SERVER_ADDR":                ":9090",
		"OPSPILOT_SERVER_READ_TIMEOUT":        "5s",
		"OPSPILOT_SERVER_WRITE_TIMEOUT":       "1m",
		"OPSPILOT_CORS_ORIGINS":               "https://console.example.com, https://admin.example.com",
		"OPSPILOT_PUBLIC_URL":                 "https://api.example.com/",
		"OPSPILOT_FRONTEND_URL":               "https://console.example.com",
		"OPSPILOT_SLACK_BOT_TOKEN":            "xoxb-test",
		"OPSPILOT_GITHUB_CLIENT_ID":           "gh-id",
		"OPSPILOT_GITHUB_CLIENT_SECRET":       "gh-secret",
		"OPSPILOT_NOTION_CLIENT_ID":           "notion-id",
		"OPSPILOT_REASONING_URL":              "https://reasoning.internal/v1",
		"OPSPILOT_REASONING_API_KEY":          "sk-test",
		"OPSPILOT_REASONING_MODEL":            "planner-large",
		"OPSPILOT_REASONING_TIMEOUT":          "20s",
		"OPSPILOT_REASONING_MAX_RETRIES":      "0",
		"OPSPILOT_SIGNALS_INTERVAL":           "5m",
		"OPSPILOT_SIGNALS_WORKSPACES":         "ws-a,ws-b",
		"OPSPILOT_CHAT_PERSIST_ON_DISCONNECT": "false",
		"OPSPILOT_CHAT_KEEPALIVE":             "10s",
		"OPSPILOT_ALERTS_CHANNEL":             "#incidents",
		"OPSPILOT_ALERTS_MIN_SEVERITY":        "medium",
		"OPSPILOT_RATE_LIMIT_RPS":             "5",
		"OPSPILOT_RATE_LIMIT_BURST":           "10",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/opspilot/data.json", cfg.Store.DataFile)
	assert.False(t, cfg.Store.Seed)

	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "prod_user", cfg.Database.User)
	assert.Equal(t, "s3cret!", cfg.Database.Password)
	assert.Equal(t, "opspilot_prod", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxConns)

	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)

	assert.Equal(t, "production-secret-that-is-very-long-and-secure", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TokenTTL)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"https://console.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://api.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "https://console.example.com", cfg.Server.FrontendURL)

	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)

	assert.True(t, cfg.OAuth.GitHub.Enabled())
	assert.Equal(t, "gh-id", cfg.OAuth.GitHub.ClientID)
	assert.False(t, cfg.OAuth.Notion.Enabled(), "client id without secret is not enabled")

	assert.Equal(t, "https://reasoning.internal/v1", cfg.Reasoning.URL)
	assert.Equal(t, "sk-test", cfg.Reasoning.APIKey)
	assert.Equal(t, "planner-large", cfg.Reasoning.Model)
	assert.Equal(t, 20*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, 0, cfg.Reasoning.MaxRetries)

	assert.Equal(t, 5*time.Minute, cfg.Signals.Interval)
	assert.Equal(t, []string{"ws-a", "ws-b"}, cfg.Signals.Workspaces)

	assert.False(t, cfg.Chat.PersistOnAbandon)
	assert.Equal(t, 10*time.Second, cfg.Chat.KeepAlive)

	assert.Equal(t, "#incidents", cfg.Alerts.Channel)
	assert.Equal(t, "medium", cfg.Alerts.MinSeverity)

	assert.Equal(t, 5, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)

	assert.Equal(t, "https://api.example.com/api/v1/integrations/oauth/github/callback", cfg.OAuthRedirectURL("github"))
}

// ---------------------------------------------------------------------------
// DSN() output format
// ---------------------------------------------------------------------------

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "default dev values",
			cfg: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "opspilot",
				Password: "", DBName: "opspilot_dev", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=opspilot password= dbname=opspilot_dev sslmode=disable",
		},
		{
			name: "special characters in password",
			cfg: DatabaseConfig{
				Host: "h", Port: 1, User: "u",
				Password: "p=a&b c", DBName: "d", SSLMode: "s",
			},
			want: "host=h port=1 user=u password=p=a&b c dbname=d sslmode=s",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.cfg.DSN())
		})
	}
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	// validBase returns a Config that passes validation.
	validBase := func() *Config {
		return &Config{
			Store:     StoreConfig{Driver: StoreMemory},
			Database:  DatabaseConfig{Port: 5432, MaxConns: 10, SSLMode: "require"},
			JWT:       JWTConfig{TokenTTL: time.Hour},
			Vault:     VaultConfig{Passphrase: testPassphrase},
			Reasoning: ReasoningConfig{Timeout: time.Second},
			Signals:   SignalsConfig{Interval: time.Minute},
			Chat:      ChatConfig{KeepAlive: time.Second},
			Alerts:    AlertsConfig{MinSeverity: "high"},
			RateLimit: RateLimitConfig{RPS: 1, Burst: 1},
			Server: ServerConfig{
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config passes", mutate: func(*Config) {}},
		{name: "passphrase exactly 16 chars passes", mutate: func(c *Config) { c.Vault.Passphrase = "0123456789abcdef" }},
		{name: "passphrase 15 chars fails", mutate: func(c *Config) { c.Vault.Passphrase = "0123456789abcde" }, wantErr: "OPSPILOT_SECRET_PASSPHRASE"},
		{name: "JWT secret exactly 32 chars passes", mutate: func(c *Config) { c.JWT.Secret = "0123456789abcdef0123456789abcdef" }},
		{name: "JWT secret 31 chars fails", mutate: func(c *Config) { c.JWT.Secret = "0123456789abcdef0123456789abcde" }, wantErr: "OPSPILOT_JWT_SECRET"},
		{name: "memory store ignores DB port", mutate: func(c *Config) { c.Database.Port = 0 }},
		{name: "postgres port 0 fails", mutate: func(c *Config) { c.Store.Driver = StorePostgres; c.Database.Port = 0 }, wantErr: "OPSPILOT_DB_PORT"},
		{name: "postgres port 65535 passes", mutate: func(c *Config) { c.Store.Driver = StorePostgres; c.Database.Port = 65535 }},
		{name: "postgres MaxConns 0 fails", mutate: func(c *Config) { c.Store.Driver = StorePostgres; c.Database.MaxConns = 0 }, wantErr: "OPSPILOT_DB_MAX_CONNS"},
		{name: "TokenTTL 0 fails", mutate: func(c *Config) { c.JWT.TokenTTL = 0 }, wantErr: "OPSPILOT_JWT_TOKEN_TTL"},
		{name: "ReadTimeout negative fails", mutate: func(c *Config) { c.Server.ReadTimeout = -time.Second }, wantErr: "OPSPILOT_SERVER_READ_TIMEOUT"},
		{name: "WriteTimeout 0 fails", mutate: func(c *Config) { c.Server.WriteTimeout = 0 }, wantErr: "OPSPILOT_SERVER_WRITE_TIMEOUT"},
		{name: "unknown alert severity fails", mutate: func(c *Config) { c.Alerts.MinSeverity = "critical" }, wantErr: "OPSPILOT_ALERTS_MIN_SEVERITY"},
		{name: "Burst 0 fails", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "OPSPILOT_RATE_LIMIT_BURST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tc.mutate(c)

			err := c.validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func strPtr(s string) *string {
	return &s
}
