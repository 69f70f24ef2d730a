package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Reconciler   ReconcilerConfig
	Notifier     NotifierConfig
	GCP          GCPConfig
	SMS          SMSConfig
	Storefront   StorefrontConfig
	Cron         CronConfig
	Reporting    ReportingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BUNDLEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"BUNDLEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BUNDLEHUB_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BUNDLEHUB_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BUNDLEHUB_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"BUNDLEHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BUNDLEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BUNDLEHUB_DB_DSN"`
	Driver string `envconfig:"BUNDLEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BUNDLEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"BUNDLEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BUNDLEHUB_DB_USER"`
	LegacyPassword string `envconfig:"BUNDLEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"BUNDLEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"BUNDLEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BUNDLEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BUNDLEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// queries slower than this are logged at warn; zero disables
	SlowQuery time.Duration `envconfig:"BUNDLEHUB_DB_SLOW_QUERY" default:"500ms"`
	// attempts for a transaction aborted by a serialization failure or deadlock
	TxAttempts int `envconfig:"BUNDLEHUB_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL            string        `envconfig:"BUNDLEHUB_REDIS_URL" required:"true"`
	Address        string        `envconfig:"BUNDLEHUB_REDIS_ADDR"`
	Password       string        `envconfig:"BUNDLEHUB_REDIS_PASSWORD"`
	DB             int           `envconfig:"BUNDLEHUB_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"BUNDLEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"BUNDLEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"BUNDLEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"BUNDLEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"BUNDLEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"BUNDLEHUB_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BUNDLEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BUNDLEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BUNDLEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig bounds the public, unauthenticated write endpoints.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"BUNDLEHUB_RATE_LIMIT_WINDOW" default:"1m"`
	SMSLimit    int           `envconfig:"BUNDLEHUB_RATE_LIMIT_SMS" default:"120"`
	GuestLimit  int           `envconfig:"BUNDLEHUB_RATE_LIMIT_GUEST_ORDERS" default:"10"`
	StoreLimit  int           `envconfig:"BUNDLEHUB_RATE_LIMIT_STORE_ORDERS" default:"10"`
	ForwardedIP bool          `envconfig:"BUNDLEHUB_RATE_LIMIT_TRUST_FORWARDED" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BUNDLEHUB_AUTO_MIGRATE" default:"false"`
}

// ReconcilerConfig tunes the guest verification delay and the deferred task dispatcher.
type ReconcilerConfig struct {
	GuestVerifyDelay  time.Duration `envconfig:"BUNDLEHUB_GUEST_VERIFY_DELAY" default:"10s"`
	DispatchInterval  time.Duration `envconfig:"BUNDLEHUB_TASK_DISPATCH_INTERVAL" default:"1s"`
	DispatchBatchSize int           `envconfig:"BUNDLEHUB_TASK_DISPATCH_BATCH_SIZE" default:"50"`
	TaskClaimTTL      time.Duration `envconfig:"BUNDLEHUB_TASK_CLAIM_TTL" default:"5m"`
}

type NotifierConfig struct {
	MaxClients  int    `envconfig:"BUNDLEHUB_NOTIFIER_MAX_CLIENTS" default:"1000"`
	PubSubTopic string `envconfig:"BUNDLEHUB_NOTIFIER_PUBSUB_TOPIC"`

	PubSubBatchDelay time.Duration `envconfig:"BUNDLEHUB_NOTIFIER_PUBSUB_BATCH_DELAY" default:"50ms"`
	PubSubBatchCount int           `envconfig:"BUNDLEHUB_NOTIFIER_PUBSUB_BATCH_COUNT" default:"100"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BUNDLEHUB_GCP_PROJECT_ID"`
}

// SMSConfig holds the argon2id hash of the shared secret presented by the SMS forwarder app.
type SMSConfig struct {
	ForwarderSecretHash string `envconfig:"BUNDLEHUB_SMS_FORWARDER_SECRET_HASH"`
}

// StorefrontConfig is the payment destination shown on public agent stores.
type StorefrontConfig struct {
	PaymentNumber string `envconfig:"BUNDLEHUB_STORE_PAYMENT_NUMBER"`
	PaymentName   string `envconfig:"BUNDLEHUB_STORE_PAYMENT_NAME"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BUNDLEHUB_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"BUNDLEHUB_CRON_LOCK_TTL" default:"5m"`

	LedgerAuditEvery time.Duration `envconfig:"BUNDLEHUB_LEDGER_AUDIT_EVERY" default:"1h"`
}

type ReportingConfig struct {
	StatsCacheTTL time.Duration `envconfig:"BUNDLEHUB_STATS_CACHE_TTL" default:"5m"`
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
