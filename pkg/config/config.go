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
	Fiuu         FiuuConfig
	Shipping     ShippingConfig
	Cron         CronConfig
	Retention    RetentionConfig
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
	if err := cfg.Fiuu.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STORE_APP_ENV" required:"true"`
	Port         string `envconfig:"STORE_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"STORE_APP_BASE_URL" default:"http://localhost:8080"`
	// PaymentResultURL is the storefront page buyers land on after the
	// gateway. Empty keeps the return endpoints JSON-only.
	PaymentResultURL string `envconfig:"STORE_APP_PAYMENT_RESULT_URL" default:""`
	LogLevel     string `envconfig:"STORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STORE_DB_DSN"`
	Driver string `envconfig:"STORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORE_DB_HOST"`
	LegacyPort     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORE_DB_USER"`
	LegacyPassword string `envconfig:"STORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// FiuuConfig carries the hosted payment page credentials. VerifyKey signs
// outbound payment requests, SecretKey authenticates inbound callbacks.
type FiuuConfig struct {
	MerchantID string `envconfig:"STORE_FIUU_MERCHANT_ID" required:"true"`
	VerifyKey  string `envconfig:"STORE_FIUU_VERIFY_KEY" required:"true"`
	SecretKey  string `envconfig:"STORE_FIUU_SECRET_KEY" required:"true"`
	GatewayURL string `envconfig:"STORE_FIUU_GATEWAY_URL" default:"https://pay.fiuu.com/RMS/pay"`
	Currency   string `envconfig:"STORE_FIUU_CURRENCY" default:"MYR"`

	// VcodeMode selects the request signature variant: "legacy" omits the
	// currency from the digest, "extended" includes it.
	VcodeMode     string `envconfig:"STORE_FIUU_VCODE_MODE" default:"extended"`
	PaymentMethod string `envconfig:"STORE_FIUU_PAYMENT_METHOD" default:""`

	ReturnURLPath   string `envconfig:"STORE_FIUU_RETURN_URL_PATH" default:"/payment/return"`
	CallbackURLPath string `envconfig:"STORE_FIUU_CALLBACK_URL_PATH" default:"/payment/callback"`
	CancelURLPath   string `envconfig:"STORE_FIUU_CANCEL_URL_PATH" default:"/payment/cancel"`
}

func (f FiuuConfig) validate() error {
	mode := strings.ToLower(strings.TrimSpace(f.VcodeMode))
	if mode != VcodeModeLegacy && mode != VcodeModeExtended {
		return fmt.Errorf("%s must be %q or %q, got %q", EnvFiuuVcodeMode, VcodeModeLegacy, VcodeModeExtended, f.VcodeMode)
	}
	return nil
}

// IsLegacyVcode reports whether request signatures omit the currency.
func (f FiuuConfig) IsLegacyVcode() bool {
	return strings.EqualFold(f.VcodeMode, VcodeModeLegacy)
}

type ShippingConfig struct {
	WestFeeCents int `envconfig:"STORE_SHIPPING_WEST_FEE_CENTS" default:"800"`
	EastFeeCents int `envconfig:"STORE_SHIPPING_EAST_FEE_CENTS" default:"1800"`
}

type CronConfig struct {
	LockPath        string        `envconfig:"STORE_CRON_LOCK_PATH" default:"/tmp/store-cron.lock"`
	Interval        time.Duration `envconfig:"STORE_CRON_INTERVAL" default:"24h"`
	OrderExpiryDays int           `envconfig:"STORE_ORDER_EXPIRY_DAYS" default:"7"`
}

type RetentionConfig struct {
	SlipRetentionDays int    `envconfig:"STORE_SLIP_RETENTION_DAYS" default:"180"`
	SlipsDir          string `envconfig:"STORE_SLIPS_DIR" default:"uploads/slips"`
	Apply             bool   `envconfig:"STORE_SLIP_RETENTION_APPLY" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STORE_AUTO_MIGRATE" default:"false"`
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
