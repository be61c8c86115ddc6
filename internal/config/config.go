package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AIProviderGemini = "gemini"
	AIProviderMock   = "mock"

	PaymentProviderStripe = "stripe"
	PaymentProviderMock   = "mock"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Store     StoreConfig
	AI        AIConfig
	Payment   PaymentConfig
	Interview InterviewConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type JWTConfig struct {
	AccessSecret     string
	RefreshSecret    string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

type StoreConfig struct {
	Driver string
}

type AIConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GeminiURL    string
	Timeout      time.Duration
}

type PaymentConfig struct {
	Provider                string
	StripeSecretKey         string
	StripeWebhookSecret     string
	StripeProPriceID        string
	StripeEnterprisePriceID string
	FrontendURL             string
}

type InterviewConfig struct {
	QuestionCount           int
	Duration                time.Duration
	TickInterval            time.Duration
	FreeMonthlySessionLimit int
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment configuration")
)

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Store = StoreConfig{Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory))}

	cfg.Database = DatabaseConfig{
		DBHost:                opt("DB_HOST"),
		DBPort:                opt("DB_PORT"),
		DBName:                opt("DB_NAME"),
		DBUser:                opt("DB_USER"),
		DBPassword:            opt("DB_PASSWORD"),
		DBSSLMode:             getEnv("DB_SSL_MODE", "disable"),
		ConnectTimeout:        getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(getEnvAsInt("DB_POOL_MAX_CONNS", 10)),
		PoolMinConns:          int32(getEnvAsInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   getEnvAsDuration("DB_POOL_MAX_CONN_LIFETIME", time.Hour),
		PoolMaxConnIdleTime:   getEnvAsDuration("DB_POOL_MAX_CONN_IDLE_TIME", 30*time.Minute),
		PoolHealthCheckPeriod: getEnvAsDuration("DB_POOL_HEALTH_CHECK_PERIOD", time.Minute),
		AutoMigrate:           getEnvAsBool("DB_AUTO_MIGRATE", true),
		MigrationsDir:         opt("MIGRATIONS_DIR"),
	}
	if cfg.Store.Driver == StoreDriverPostgres {
		req("DB_HOST")
		req("DB_PORT")
		req("DB_NAME")
		req("DB_USER")
	}

	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
		TTL:      getEnvAsDuration("REDIS_TTL", 10*time.Minute),
	}

	cfg.JWT = JWTConfig{
		AccessSecret:     req("JWT_ACCESS_SECRET"),
		RefreshSecret:    req("JWT_REFRESH_SECRET"),
		AccessExpiresIn:  getEnvAsDuration("JWT_ACCESS_EXPIRES_IN", 24*time.Hour),
		RefreshExpiresIn: getEnvAsDuration("JWT_REFRESH_EXPIRES_IN", 30*24*time.Hour),
	}

	cfg.AI = AIConfig{
		Provider:     strings.ToLower(getEnv("AI_PROVIDER", AIProviderMock)),
		GeminiAPIKey: opt("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		Timeout:      getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
	}

	cfg.Payment = PaymentConfig{
		Provider:                strings.ToLower(getEnv("PAYMENT_PROVIDER", PaymentProviderMock)),
		StripeSecretKey:         opt("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:     opt("STRIPE_WEBHOOK_SECRET"),
		StripeProPriceID:        getEnv("STRIPE_PRO_PRICE_ID", "price_mock_pro"),
		StripeEnterprisePriceID: getEnv("STRIPE_ENTERPRISE_PRICE_ID", "price_mock_enterprise"),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	cfg.Interview = InterviewConfig{
		QuestionCount:           getEnvAsInt("INTERVIEW_QUESTION_COUNT", 5),
		Duration:                getEnvAsDuration("INTERVIEW_DURATION", 30*time.Minute),
		TickInterval:            getEnvAsDuration("INTERVIEW_TICK_INTERVAL", 10*time.Second),
		FreeMonthlySessionLimit: getEnvAsInt("FREE_MONTHLY_SESSION_LIMIT", 3),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("%w: STORE_DRIVER=%q", errInvalidEnv, c.Store.Driver)
	}

	switch c.AI.Provider {
	case AIProviderMock:
	case AIProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("%w: AI_PROVIDER=gemini requires GEMINI_API_KEY", errInvalidEnv)
		}
	default:
		return fmt.Errorf("%w: AI_PROVIDER=%q", errInvalidEnv, c.AI.Provider)
	}

	switch c.Payment.Provider {
	case PaymentProviderMock:
	case PaymentProviderStripe:
		if c.Payment.StripeSecretKey == "" || c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("%w: PAYMENT_PROVIDER=stripe requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET", errInvalidEnv)
		}
	default:
		return fmt.Errorf("%w: PAYMENT_PROVIDER=%q", errInvalidEnv, c.Payment.Provider)
	}

	if c.Interview.QuestionCount <= 0 {
		return fmt.Errorf("%w: INTERVIEW_QUESTION_COUNT must be positive", errInvalidEnv)
	}
	if c.Interview.Duration <= 0 {
		return fmt.Errorf("%w: INTERVIEW_DURATION must be positive", errInvalidEnv)
	}
	if c.Interview.FreeMonthlySessionLimit < 0 {
		return fmt.Errorf("%w: FREE_MONTHLY_SESSION_LIMIT cannot be negative", errInvalidEnv)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
