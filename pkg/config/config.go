package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	S3        S3Config
	Checkout  CheckoutConfig
	Mail      MailConfig
	Retention RetentionConfig
	Cron      CronConfig
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
	Env          string `envconfig:"SNAPMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"SNAPMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SNAPMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SNAPMARKET_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SNAPMARKET_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SNAPMARKET_DB_DSN"`

	Host     string `envconfig:"SNAPMARKET_DB_HOST"`
	Port     int    `envconfig:"SNAPMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"SNAPMARKET_DB_USER"`
	Password string `envconfig:"SNAPMARKET_DB_PASSWORD"`
	Name     string `envconfig:"SNAPMARKET_DB_NAME"`
	SSLMode  string `envconfig:"SNAPMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SNAPMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SNAPMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SNAPMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SNAPMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either SNAPMARKET_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SNAPMARKET_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SNAPMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SNAPMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SNAPMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SNAPMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SNAPMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SNAPMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SNAPMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the access tokens minted by the external identity
// provider; the API only validates them.
type JWTConfig struct {
	Secret            string `envconfig:"SNAPMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SNAPMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SNAPMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type S3Config struct {
	Bucket            string        `envconfig:"SNAPMARKET_S3_BUCKET" required:"true"`
	Region            string        `envconfig:"SNAPMARKET_S3_REGION" default:"ap-northeast-1"`
	Endpoint          string        `envconfig:"SNAPMARKET_S3_ENDPOINT"`
	AccessKeyID       string        `envconfig:"SNAPMARKET_S3_ACCESS_KEY_ID"`
	SecretAccessKey   string        `envconfig:"SNAPMARKET_S3_SECRET_ACCESS_KEY"`
	UploadURLExpiry   time.Duration `envconfig:"SNAPMARKET_S3_UPLOAD_URL_EXPIRY" default:"1h"`
	DownloadURLExpiry time.Duration `envconfig:"SNAPMARKET_S3_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type CheckoutConfig struct {
	BaseURL       string        `envconfig:"SNAPMARKET_CHECKOUT_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"SNAPMARKET_CHECKOUT_API_KEY" required:"true"`
	SigningSecret string        `envconfig:"SNAPMARKET_CHECKOUT_SIGNING_SECRET" required:"true"`
	Currency      string        `envconfig:"SNAPMARKET_CHECKOUT_CURRENCY" default:"JPY"`
	Timeout       time.Duration `envconfig:"SNAPMARKET_CHECKOUT_TIMEOUT" default:"10s"`
}

type MailConfig struct {
	BaseURL string        `envconfig:"SNAPMARKET_MAIL_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"SNAPMARKET_MAIL_API_KEY" required:"true"`
	Sender  string        `envconfig:"SNAPMARKET_MAIL_SENDER" required:"true"`
	Timeout time.Duration `envconfig:"SNAPMARKET_MAIL_TIMEOUT" default:"10s"`
}

type RetentionConfig struct {
	UnselectedGrace    time.Duration `envconfig:"SNAPMARKET_RETENTION_UNSELECTED_GRACE" default:"720h"`
	PurchasedRetention time.Duration `envconfig:"SNAPMARKET_RETENTION_PURCHASED" default:"168h"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"SNAPMARKET_CRON_INTERVAL" default:"24h"`
	LockTTL     time.Duration `envconfig:"SNAPMARKET_CRON_LOCK_TTL" default:"25h"`
	MetricsPort string        `envconfig:"SNAPMARKET_CRON_METRICS_PORT" default:"9090"`
}
