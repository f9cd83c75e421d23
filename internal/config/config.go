// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage backends, authentication, the language-model provider,
// personalization windows, rate limiting and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "mindmate-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LogFileConfig enables a rotating file sink next to stderr.
type LogFileConfig struct {
	Path       string // LOG_FILE; empty disables the file sink
	MaxSizeMB  int    // LOG_FILE_MAX_SIZE_MB
	MaxBackups int    // LOG_FILE_MAX_BACKUPS
	MaxAgeDays int    // LOG_FILE_MAX_AGE_DAYS
	Compress   bool   // LOG_FILE_COMPRESS
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string // sql|json
	Driver   string // sqlite|postgres|mysql (sql backend only)
	DSN      string // postgres/mysql DSN
	DBPath   string // SQLite path
	JSONPath string // flat JSON document path
}

// AuthConfig holds session token and password policy settings.
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	PasswordMinLen int
	BcryptCost     int
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	Provider    string // openai|hunyuan
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	HunyuanSecretID  string
	HunyuanSecretKey string
	HunyuanModel     string
	HunyuanRegion    string
	HunyuanEndpoint  string
}

// Configured reports whether credentials for the selected provider are present.
func (l LLMConfig) Configured() bool {
	switch l.Provider {
	case "hunyuan":
		return l.HunyuanSecretID != "" && l.HunyuanSecretKey != ""
	default:
		return l.OpenAIKey != ""
	}
}

// PersonalizationConfig controls the context block injected before each chat turn.
type PersonalizationConfig struct {
	JournalDays    int  // lookback for journal entries
	HabitQueryDays int  // lookback for the habit-log query
	HabitRateDays  int  // window used for completion rates
	CountUnlogged  bool // never-logged habits count as a 0% day
	MaxRunes       int  // upper bound on the context block
	HistoryLimit   int  // prior chat messages replayed to the model
}

// CacheConfig configures the optional Redis cache for personalization blocks.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ContextTTL    time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s; must cover a model round-trip
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	GzipEnabled       bool

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogFile        LogFileConfig
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	Store           StoreConfig
	Auth            AuthConfig
	LLM             LLMConfig
	Personalization PersonalizationConfig
	Cache           CacheConfig
	TipsPath        string // markdown list of offline coping tips

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding values already present in the environment. Missing files are
// ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		GzipEnabled:       getbool("GZIP_ENABLED", true),

		// Logging / Docs
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
		LogFile: LogFileConfig{
			Path:       getenv("LOG_FILE", ""),
			MaxSizeMB:  getint("LOG_FILE_MAX_SIZE_MB", 50),
			MaxBackups: getint("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getint("LOG_FILE_MAX_AGE_DAYS", 28),
			Compress:   getbool("LOG_FILE_COMPRESS", true),
		},
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Store: StoreConfig{
			Backend:  strings.ToLower(getenv("STORE_BACKEND", "sql")),
			Driver:   strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:      getenv("DB_DSN", ""),
			DBPath:   getenv("DB_PATH", "mindmate.db"),
			JSONPath: getenv("JSON_STORE_PATH", "mindmate.json"),
		},
		Auth: AuthConfig{
			JWTSecret:      getenv("JWT_SECRET", ""),
			TokenTTL:       getdur("JWT_TTL", 24*time.Hour),
			PasswordMinLen: getint("PASSWORD_MIN_LEN", 6),
			BcryptCost:     getint("BCRYPT_COST", 10),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getenv("LLM_PROVIDER", "openai")),
			Temperature: getfloat("LLM_TEMPERATURE", 0.8),
			MaxTokens:   getint("LLM_MAX_TOKENS", 350),
			Timeout:     getdur("LLM_TIMEOUT", 30*time.Second),

			OpenAIKey:     getenv("OPENAI_API_KEY", ""),
			OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getenv("OPENAI_BASE_URL", ""),

			HunyuanSecretID:  getenv("TENCENTCLOUD_SECRETID", ""),
			HunyuanSecretKey: getenv("TENCENTCLOUD_SECRETKEY", ""),
			HunyuanModel:     getenv("HUNYUAN_MODEL", "hunyuan-lite"),
			HunyuanRegion:    getenv("HUNYUAN_REGION", ""),
			HunyuanEndpoint:  getenv("HUNYUAN_ENDPOINT", "hunyuan.tencentcloudapi.com"),
		},
		Personalization: PersonalizationConfig{
			JournalDays:    getint("CONTEXT_JOURNAL_DAYS", 7),
			HabitQueryDays: getint("CONTEXT_HABIT_QUERY_DAYS", 14),
			HabitRateDays:  getint("CONTEXT_HABIT_RATE_DAYS", 7),
			CountUnlogged:  getbool("CONTEXT_COUNT_UNLOGGED", true),
			MaxRunes:       getint("CONTEXT_MAX_RUNES", 4000),
			HistoryLimit:   getint("CHAT_HISTORY_LIMIT", 10),
		},
		Cache: CacheConfig{
			RedisAddr:     getenv("REDIS_ADDR", ""),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			ContextTTL:    getdur("CONTEXT_CACHE_TTL", 10*time.Minute),
		},
		TipsPath: getenv("TIPS_PATH", "data/tips.md"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "mindmate-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Store.Driver == "sqlite3" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Driver == "postgresql" {
		cfg.Store.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.Store.Backend {
	case "sql":
		switch cfg.Store.Driver {
		case "sqlite":
			if strings.TrimSpace(cfg.Store.DBPath) == "" {
				return cfg, errors.New("DB_PATH must not be empty")
			}
		case "postgres", "mysql":
			if strings.TrimSpace(cfg.Store.DSN) == "" {
				return cfg, errors.New("DB_DSN is required for postgres and mysql")
			}
		default:
			return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, mysql")
		}
	case "json":
		if strings.TrimSpace(cfg.Store.JSONPath) == "" {
			return cfg, errors.New("JSON_STORE_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_BACKEND must be one of: sql, json")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return cfg, errors.New("JWT_SECRET must be at least 16 characters")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	if cfg.Auth.PasswordMinLen < 1 {
		return cfg, errors.New("PASSWORD_MIN_LEN must be >= 1")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return cfg, errors.New("BCRYPT_COST must be between 4 and 31")
	}
	switch cfg.LLM.Provider {
	case "openai", "hunyuan":
	default:
		return cfg, errors.New("LLM_PROVIDER must be one of: openai, hunyuan")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.LLM.MaxTokens < 1 {
		return cfg, errors.New("LLM_MAX_TOKENS must be >= 1")
	}
	if cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("LLM_TIMEOUT must be > 0")
	}
	p := cfg.Personalization
	if p.JournalDays < 1 || p.HabitQueryDays < 1 || p.HabitRateDays < 1 {
		return cfg, errors.New("CONTEXT_*_DAYS must be >= 1")
	}
	if p.HabitRateDays > p.HabitQueryDays {
		return cfg, errors.New("CONTEXT_HABIT_RATE_DAYS must not exceed CONTEXT_HABIT_QUERY_DAYS")
	}
	if p.MaxRunes < 200 {
		return cfg, errors.New("CONTEXT_MAX_RUNES must be >= 200")
	}
	if p.HistoryLimit < 0 {
		return cfg, errors.New("CHAT_HISTORY_LIMIT must be >= 0")
	}
	if cfg.Cache.ContextTTL <= 0 {
		return cfg, errors.New("CONTEXT_CACHE_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
