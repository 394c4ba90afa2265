package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Session       SessionConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	WhatsApp      WhatsAppConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"AFORSEV_APP_ENV" required:"true"`
	Port         string `envconfig:"AFORSEV_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AFORSEV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AFORSEV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AFORSEV_DB_DSN"`
	Driver string `envconfig:"AFORSEV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AFORSEV_DB_HOST"`
	LegacyPort     int    `envconfig:"AFORSEV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AFORSEV_DB_USER"`
	LegacyPassword string `envconfig:"AFORSEV_DB_PASSWORD"`
	LegacyName     string `envconfig:"AFORSEV_DB_NAME"`
	LegacySSLMode  string `envconfig:"AFORSEV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AFORSEV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AFORSEV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AFORSEV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AFORSEV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AFORSEV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AFORSEV_REDIS_ADDR"`
	Password     string        `envconfig:"AFORSEV_REDIS_PASSWORD"`
	DB           int           `envconfig:"AFORSEV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AFORSEV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AFORSEV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AFORSEV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AFORSEV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AFORSEV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AFORSEV_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AFORSEV_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AFORSEV_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AFORSEV_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AFORSEV_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AFORSEV_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AFORSEV_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AFORSEV_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AFORSEV_ARGON_KEY_LEN" default:"32"`
}

// SessionConfig governs guest session cookies and guest cart retention.
type SessionConfig struct {
	CookieName     string        `envconfig:"AFORSEV_SESSION_COOKIE_NAME" default:"aforsev_session"`
	CookieTTL      time.Duration `envconfig:"AFORSEV_SESSION_COOKIE_TTL" default:"168h"`
	CookieSecure   bool          `envconfig:"AFORSEV_SESSION_COOKIE_SECURE" default:"false"`
	GuestCartTTL   time.Duration `envconfig:"AFORSEV_GUEST_CART_TTL" default:"720h"`
	HeaderOverride string        `envconfig:"AFORSEV_SESSION_HEADER" default:"X-Session-Id"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AFORSEV_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AFORSEV_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AFORSEV_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AFORSEV_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AFORSEV_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AFORSEV_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type APIRateLimitConfig struct {
	Window time.Duration `envconfig:"AFORSEV_API_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"AFORSEV_API_RATE_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AFORSEV_AUTO_MIGRATE" default:"false"`
}

// WhatsAppConfig holds the Graph API credentials for the messaging integration.
// The integration is disabled when any required field is empty.
type WhatsAppConfig struct {
	AccessToken       string        `envconfig:"AFORSEV_WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID     string        `envconfig:"AFORSEV_WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken       string        `envconfig:"AFORSEV_WHATSAPP_VERIFY_TOKEN"`
	BusinessAccountID string        `envconfig:"AFORSEV_WHATSAPP_BUSINESS_ACCOUNT_ID"`
	APIVersion        string        `envconfig:"AFORSEV_WHATSAPP_API_VERSION" default:"v19.0"`
	BaseURL           string        `envconfig:"AFORSEV_WHATSAPP_BASE_URL" default:"https://graph.facebook.com"`
	Timeout           time.Duration `envconfig:"AFORSEV_WHATSAPP_TIMEOUT" default:"10s"`
}

// Configured reports whether every credential the Graph API needs is present.
func (w WhatsAppConfig) Configured() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.VerifyToken != "" && w.BusinessAccountID != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AFORSEV_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AFORSEV_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AFORSEV_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"AFORSEV_PUBSUB_NOTIFICATION_TOPIC" default:"storefront-notification-events"`
	NotificationSubscription string `envconfig:"AFORSEV_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"AFORSEV_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"AFORSEV_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"AFORSEV_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"AFORSEV_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"AFORSEV_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"AFORSEV_CRON_LOCK_TTL" default:"25h"`
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
