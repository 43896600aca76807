package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sendgrid     SendgridConfig
	Bridge       BridgeConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Bridge.USDRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHAREBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHAREBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHAREBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHAREBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHAREBRIDGE_DB_DSN"`
	Driver string `envconfig:"SHAREBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHAREBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHAREBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHAREBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"SHAREBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHAREBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHAREBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHAREBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHAREBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHAREBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHAREBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SHAREBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHAREBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"SHAREBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHAREBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHAREBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHAREBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHAREBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHAREBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHAREBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHAREBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHAREBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHAREBRIDGE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"SHAREBRIDGE_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"SHAREBRIDGE_SENDGRID_FROM_EMAIL" default:"no-reply@sharebridge.local"`
	FromName    string        `envconfig:"SHAREBRIDGE_SENDGRID_FROM_NAME" default:"ShareBridge"`
	Timeout     time.Duration `envconfig:"SHAREBRIDGE_SENDGRID_TIMEOUT" default:"10s"`
	Sandbox     bool          `envconfig:"SHAREBRIDGE_SENDGRID_SANDBOX" default:"false"`
}

// Enabled reports whether outbound email should go through SendGrid.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// BridgeConfig configures the payment bridge callback surface.
type BridgeConfig struct {
	APIKey         string        `envconfig:"SHAREBRIDGE_BRIDGE_API_KEY" required:"true"`
	ExchangeRate   string        `envconfig:"SHAREBRIDGE_BRIDGE_USD_RATE" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"SHAREBRIDGE_BRIDGE_IDEMPOTENCY_TTL" default:"168h"`
}

// USDRate parses the configured exchange rate (USD per 10^9 bytes).
func (b BridgeConfig) USDRate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(b.ExchangeRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvBridgeUSDRate, raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvBridgeUSDRate)
	}
	return rate, nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHAREBRIDGE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:sharebridge.db?_foreign_keys=on"
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
