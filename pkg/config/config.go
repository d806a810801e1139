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
	VNPay        VNPayConfig
	GHTK         GHTKConfig
	Geo          GeoConfig
	RateLimit    RateLimitConfig
	Mail         MailConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUNARIA_APP_ENV" required:"true"`
	Port         string `envconfig:"LUNARIA_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"LUNARIA_APP_BASE_URL" required:"true"`
	LogLevel     string `envconfig:"LUNARIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUNARIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LUNARIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUNARIA_DB_DSN"`
	Driver string `envconfig:"LUNARIA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LUNARIA_DB_HOST"`
	Port     int    `envconfig:"LUNARIA_DB_PORT" default:"5432"`
	User     string `envconfig:"LUNARIA_DB_USER"`
	Password string `envconfig:"LUNARIA_DB_PASSWORD"`
	Name     string `envconfig:"LUNARIA_DB_NAME"`
	SSLMode  string `envconfig:"LUNARIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUNARIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUNARIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUNARIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUNARIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUNARIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUNARIA_REDIS_ADDRESS"`
	Password     string        `envconfig:"LUNARIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUNARIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUNARIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUNARIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUNARIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUNARIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUNARIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUNARIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUNARIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUNARIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUNARIA_AUTO_MIGRATE" default:"false"`
}

// VNPayConfig carries the merchant credentials for the redirect-based payment
// gateway and its refund API.
type VNPayConfig struct {
	TmnCode      string        `envconfig:"LUNARIA_VNPAY_TMN_CODE" required:"true"`
	HashSecret   string        `envconfig:"LUNARIA_VNPAY_HASH_SECRET" required:"true"`
	PayURL       string        `envconfig:"LUNARIA_VNPAY_PAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	APIURL       string        `envconfig:"LUNARIA_VNPAY_API_URL" default:"https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"`
	ReturnPath   string        `envconfig:"LUNARIA_VNPAY_RETURN_PATH" default:"/api/public/payments/vnpay-return"`
	CurrencyCode string        `envconfig:"LUNARIA_VNPAY_CURRENCY" default:"VND"`
	Timeout      time.Duration `envconfig:"LUNARIA_VNPAY_TIMEOUT" default:"15s"`
}

// GHTKConfig carries credentials and the fixed shop pick-up origin for the
// shipping carrier.
type GHTKConfig struct {
	Token    string        `envconfig:"LUNARIA_GHTK_TOKEN" required:"true"`
	Endpoint string        `envconfig:"LUNARIA_GHTK_ENDPOINT" default:"https://services.giaohangtietkiem.vn"`
	Timeout  time.Duration `envconfig:"LUNARIA_GHTK_TIMEOUT" default:"15s"`

	PickName     string `envconfig:"LUNARIA_GHTK_PICK_NAME" required:"true"`
	PickTel      string `envconfig:"LUNARIA_GHTK_PICK_TEL" required:"true"`
	PickAddress  string `envconfig:"LUNARIA_GHTK_PICK_ADDRESS" required:"true"`
	PickProvince string `envconfig:"LUNARIA_GHTK_PICK_PROVINCE" required:"true"`
	PickDistrict string `envconfig:"LUNARIA_GHTK_PICK_DISTRICT" required:"true"`
	Hamlet       string `envconfig:"LUNARIA_GHTK_HAMLET" default:"Khác"`
}

type GeoConfig struct {
	Endpoint string        `envconfig:"LUNARIA_GEO_ENDPOINT" default:"https://esgoo.net/api-tinhthanh"`
	Timeout  time.Duration `envconfig:"LUNARIA_GEO_TIMEOUT" default:"10s"`
}

// RateLimitConfig throttles the unauthenticated surfaces: the carrier webhook
// and the payment gateway return redirect.
type RateLimitConfig struct {
	PublicWindow time.Duration `envconfig:"LUNARIA_RATELIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicLimit  int           `envconfig:"LUNARIA_RATELIMIT_PUBLIC_LIMIT" default:"120"`
}

type MailConfig struct {
	Endpoint string        `envconfig:"LUNARIA_MAIL_ENDPOINT"`
	APIKey   string        `envconfig:"LUNARIA_MAIL_API_KEY"`
	Sender   string        `envconfig:"LUNARIA_MAIL_SENDER" default:"no-reply@lunaria.store"`
	Timeout  time.Duration `envconfig:"LUNARIA_MAIL_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUNARIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LUNARIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUNARIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LUNARIA_PUBSUB_DOMAIN_TOPIC" default:"lunaria-domain-events"`
	DomainSubscription string `envconfig:"LUNARIA_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUNARIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUNARIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUNARIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LUNARIA_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"LUNARIA_CRON_LOCK_KEY" default:"lunaria:cron:lock"`
	LockTTL  time.Duration `envconfig:"LUNARIA_CRON_LOCK_TTL" default:"55m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range fallbackDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
