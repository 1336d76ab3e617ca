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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GoogleMaps   GoogleMapsConfig
	Dispatch     DispatchConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Dispatch.FleetTopN <= 0 || cfg.Dispatch.LoadTopN <= 0 {
		return nil, fmt.Errorf("dispatch top-n limits must be positive")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FREIGHT_APP_ENV" required:"true"`
	Port         string `envconfig:"FREIGHT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FREIGHT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FREIGHT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FREIGHT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FREIGHT_DB_DSN"`
	Driver string `envconfig:"FREIGHT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FREIGHT_DB_HOST"`
	LegacyPort     int    `envconfig:"FREIGHT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FREIGHT_DB_USER"`
	LegacyPassword string `envconfig:"FREIGHT_DB_PASSWORD"`
	LegacyName     string `envconfig:"FREIGHT_DB_NAME"`
	LegacySSLMode  string `envconfig:"FREIGHT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FREIGHT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FREIGHT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FREIGHT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FREIGHT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FREIGHT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FREIGHT_REDIS_ADDR"`
	Password     string        `envconfig:"FREIGHT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FREIGHT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FREIGHT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FREIGHT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FREIGHT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FREIGHT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FREIGHT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the external auth service.
type JWTConfig struct {
	Secret string `envconfig:"FREIGHT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"FREIGHT_JWT_ISSUER" required:"true"`
	// Leeway tolerates small clock drift between this service and the issuer.
	Leeway time.Duration `envconfig:"FREIGHT_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool `envconfig:"FREIGHT_USE_SQLITE" default:"false"`
	AutoMigrate     bool `envconfig:"FREIGHT_AUTO_MIGRATE" default:"false"`
	RedisLoadLocks  bool `envconfig:"FREIGHT_FEATURE_REDIS_LOAD_LOCKS" default:"true"`
	GeocodeOnCreate bool `envconfig:"FREIGHT_FEATURE_GEOCODE_ON_CREATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FREIGHT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GoogleMapsConfig struct {
	APIKey         string        `envconfig:"FREIGHT_GOOGLE_MAPS_API_KEY"`
	GeocodeURL     string        `envconfig:"FREIGHT_GOOGLE_MAPS_GEOCODE_URL" default:"https://maps.googleapis.com/maps/api/geocode/json"`
	DistanceURL    string        `envconfig:"FREIGHT_GOOGLE_MAPS_DISTANCE_URL" default:"https://maps.googleapis.com/maps/api/distancematrix/json"`
	RequestTimeout time.Duration `envconfig:"FREIGHT_GOOGLE_MAPS_TIMEOUT" default:"10s"`
	GeocodeSpacing time.Duration `envconfig:"FREIGHT_GOOGLE_MAPS_GEOCODE_SPACING" default:"200ms"`
	MaxElements    int           `envconfig:"FREIGHT_GOOGLE_MAPS_MAX_MATRIX_ELEMENTS" default:"100"`
}

type DispatchConfig struct {
	FleetTopN int           `envconfig:"FREIGHT_DISPATCH_FLEET_TOP_N" default:"20"`
	LoadTopN  int           `envconfig:"FREIGHT_DISPATCH_LOAD_TOP_N" default:"10"`
	LockTTL   time.Duration `envconfig:"FREIGHT_DISPATCH_LOCK_TTL" default:"15s"`
	LockWait  time.Duration `envconfig:"FREIGHT_DISPATCH_LOCK_WAIT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FREIGHT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FREIGHT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FREIGHT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"FREIGHT_PUBSUB_NOTIFICATION_TOPIC" default:"freight-notification-events"`
	NotificationSubscription string `envconfig:"FREIGHT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FREIGHT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FREIGHT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FREIGHT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	BackfillSchedule          string        `envconfig:"FREIGHT_CRON_BACKFILL_SCHEDULE" default:"*/15 * * * *"`
	BackfillBatchSize         int           `envconfig:"FREIGHT_CRON_BACKFILL_BATCH_SIZE" default:"25"`
	CleanupSchedule           string        `envconfig:"FREIGHT_CRON_CLEANUP_SCHEDULE" default:"30 3 * * *"`
	NotificationRetentionDays int           `envconfig:"FREIGHT_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"FREIGHT_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
	LockTTL                   time.Duration `envconfig:"FREIGHT_CRON_LOCK_TTL" default:"30m"`
	RunOnStart                bool          `envconfig:"FREIGHT_CRON_RUN_ON_START" default:"false"`
}

// RateLimitConfig throttles bid submission per carrier company and per IP.
type RateLimitConfig struct {
	BidWindow       time.Duration `envconfig:"FREIGHT_BID_RATE_LIMIT_WINDOW" default:"1m"`
	BidCompanyLimit int           `envconfig:"FREIGHT_BID_RATE_LIMIT_COMPANY" default:"30"`
	BidIPLimit      int           `envconfig:"FREIGHT_BID_RATE_LIMIT_IP" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FREIGHT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
