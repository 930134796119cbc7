package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/boardpro-billing/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Plan         PlanConfig
	Webhook      WebhookConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if _, err := url.ParseRequestURI(c.App.BaseURL); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s must be an absolute url: %w", EnvAppBaseURL, err))
	}
	if _, err := c.Plan.AmountCents(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := enums.ParseBillingInterval(c.Plan.Interval); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", EnvPlanInterval, err))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"BOARDPRO_APP_ENV" required:"true"`
	Port         string `envconfig:"BOARDPRO_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"BOARDPRO_APP_BASE_URL" required:"true"`
	LogLevel     string `envconfig:"BOARDPRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOARDPRO_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"BOARDPRO_LOG_FORMAT"`
	CORSOrigins  string `envconfig:"BOARDPRO_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"BOARDPRO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOARDPRO_DB_DSN"`
	Driver string `envconfig:"BOARDPRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOARDPRO_DB_HOST"`
	LegacyPort     int    `envconfig:"BOARDPRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOARDPRO_DB_USER"`
	LegacyPassword string `envconfig:"BOARDPRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOARDPRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOARDPRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOARDPRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOARDPRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOARDPRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOARDPRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BOARDPRO_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOARDPRO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOARDPRO_REDIS_ADDR"`
	Password     string        `envconfig:"BOARDPRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOARDPRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOARDPRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOARDPRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOARDPRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOARDPRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOARDPRO_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"BOARDPRO_REDIS_KEY_PREFIX" default:"bp"`
}

type JWTConfig struct {
	Secret            string        `envconfig:"BOARDPRO_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"BOARDPRO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"BOARDPRO_JWT_EXPIRATION_MINUTES" default:"60"`
	Leeway            time.Duration `envconfig:"BOARDPRO_JWT_LEEWAY" default:"30s"`
}

// RateLimitConfig bounds how often one user may open checkout/portal sessions
// and how long a session response is replayed for a repeated Idempotency-Key.
type RateLimitConfig struct {
	SessionWindow  time.Duration `envconfig:"BOARDPRO_RATE_LIMIT_SESSION_WINDOW" default:"1m"`
	SessionLimit   int           `envconfig:"BOARDPRO_RATE_LIMIT_SESSION_LIMIT" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"BOARDPRO_SESSION_IDEMPOTENCY_TTL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOARDPRO_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BOARDPRO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BOARDPRO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BOARDPRO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"BOARDPRO_PUBSUB_BILLING_TOPIC" default:"boardpro-billing-events"`
	BillingSubscription string `envconfig:"BOARDPRO_PUBSUB_BILLING_SUBSCRIPTION"`
}

type StripeConfig struct {
	APIKey                   string `envconfig:"BOARDPRO_STRIPE_API_KEY"`
	Secret                   string `envconfig:"BOARDPRO_STRIPE_WEBHOOK_SECRET"`
	Env                      string `envconfig:"BOARDPRO_STRIPE_ENV" default:"test"`
	PriceID                  string `envconfig:"BOARDPRO_STRIPE_PRICE_ID"`
	IgnoreAPIVersionMismatch bool   `envconfig:"BOARDPRO_STRIPE_IGNORE_API_VERSION_MISMATCH" default:"true"`
	MaxNetworkRetries        int64  `envconfig:"BOARDPRO_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PlanConfig describes the single recurring plan sold through checkout.
type PlanConfig struct {
	Currency           string `envconfig:"BOARDPRO_PLAN_CURRENCY" default:"usd"`
	Amount             string `envconfig:"BOARDPRO_PLAN_AMOUNT" default:"20.00"`
	Interval           string `envconfig:"BOARDPRO_PLAN_INTERVAL" default:"month"`
	ProductName        string `envconfig:"BOARDPRO_PLAN_PRODUCT_NAME" default:"Board Pro"`
	ProductDescription string `envconfig:"BOARDPRO_PLAN_PRODUCT_DESCRIPTION" default:"Unlimited boards for your organization"`
}

// AmountCents converts the decimal plan amount into the smallest currency unit.
func (p PlanConfig) AmountCents() (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(p.Amount))
	if err != nil {
		return 0, fmt.Errorf("%s must be a decimal amount: %w", EnvPlanAmount, err)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%s must be positive", EnvPlanAmount)
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%s supports at most two decimal places", EnvPlanAmount)
	}
	return cents.IntPart(), nil
}

type WebhookConfig struct {
	MaxBodyBytes   int64         `envconfig:"BOARDPRO_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
	IdempotencyTTL time.Duration `envconfig:"BOARDPRO_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BOARDPRO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BOARDPRO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BOARDPRO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"BOARDPRO_OUTBOX_RETENTION" default:"720h"`
	DLQRetention   time.Duration `envconfig:"BOARDPRO_OUTBOX_DLQ_RETENTION" default:"2160h"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"BOARDPRO_CRON_INTERVAL" default:"1h"`
	JobTimeout        time.Duration `envconfig:"BOARDPRO_CRON_JOB_TIMEOUT" default:"10m"`
	ResyncLookahead   time.Duration `envconfig:"BOARDPRO_CRON_RESYNC_LOOKAHEAD" default:"24h"`
	ResyncGracePeriod time.Duration `envconfig:"BOARDPRO_CRON_RESYNC_GRACE" default:"168h"`
	ResyncLimit       int           `envconfig:"BOARDPRO_CRON_RESYNC_LIMIT" default:"250"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
