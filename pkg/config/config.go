package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	ERPNext  ERPNextConfig
	SumUp    SumUpConfig
	Shipping ShippingConfig
	Redis    RedisConfig
	Session  SessionConfig
	Stock    StockConfig
	Identity IdentityConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BREWSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"BREWSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BREWSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BREWSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ERPNextConfig carries the remote ERP connection plus the deployment-specific
// document constants (accounts, series, warehouses) that must never be
// hard-coded in business logic.
type ERPNextConfig struct {
	Host     string        `envconfig:"BREWSHOP_ERPNEXT_HOST" required:"true"`
	Username string        `envconfig:"BREWSHOP_ERPNEXT_USERNAME" required:"true"`
	Password string        `envconfig:"BREWSHOP_ERPNEXT_PASSWORD" required:"true"`
	Timeout  time.Duration `envconfig:"BREWSHOP_ERPNEXT_TIMEOUT" default:"15s"`

	Company           string `envconfig:"BREWSHOP_ERPNEXT_COMPANY" required:"true"`
	Warehouse         string `envconfig:"BREWSHOP_ERPNEXT_WAREHOUSE" required:"true"`
	PriceList         string `envconfig:"BREWSHOP_ERPNEXT_PRICE_LIST" required:"true"`
	OrderNamingSeries string `envconfig:"BREWSHOP_ERPNEXT_ORDER_NAMING_SERIES" default:"SO-WEB-.YY.MM.DD.-.###"`
	PaymentSeries     string `envconfig:"BREWSHOP_ERPNEXT_PAYMENT_NAMING_SERIES" default:"PE-WEB-.YY.MM.DD.-.###"`
	VATAccount        string `envconfig:"BREWSHOP_ERPNEXT_VAT_ACCOUNT" required:"true"`
	VATRate           string `envconfig:"BREWSHOP_ERPNEXT_VAT_RATE" default:"20"`
	ShippingAccount   string `envconfig:"BREWSHOP_ERPNEXT_SHIPPING_ACCOUNT" required:"true"`
	StockExemptGroup  string `envconfig:"BREWSHOP_ERPNEXT_STOCK_EXEMPT_GROUP"`
}

type SumUpConfig struct {
	BaseURL       string        `envconfig:"BREWSHOP_SUMUP_BASE_URL" default:"https://api.sumup.com/v0.1"`
	TokenURL      string        `envconfig:"BREWSHOP_SUMUP_TOKEN_URL" default:"https://api.sumup.com/token"`
	ClientID      string        `envconfig:"BREWSHOP_SUMUP_CLIENT_ID" required:"true"`
	ClientSecret  string        `envconfig:"BREWSHOP_SUMUP_CLIENT_SECRET" required:"true"`
	MerchantEmail string        `envconfig:"BREWSHOP_SUMUP_MERCHANT_EMAIL" required:"true"`
	Currency      string        `envconfig:"BREWSHOP_SUMUP_CURRENCY" default:"EUR"`
	Timeout       time.Duration `envconfig:"BREWSHOP_SUMUP_TIMEOUT" default:"15s"`

	LedgerAccount string `envconfig:"BREWSHOP_SUMUP_LEDGER_ACCOUNT" required:"true"`
	ModeOfPayment string `envconfig:"BREWSHOP_SUMUP_MODE_OF_PAYMENT" default:"Credit Card"`
}

type ShippingConfig struct {
	PickupRule    string `envconfig:"BREWSHOP_SHIPPING_PICKUP_RULE" required:"true"`
	DeliveryRule  string `envconfig:"BREWSHOP_SHIPPING_DELIVERY_RULE" required:"true"`
	Fee           string `envconfig:"BREWSHOP_SHIPPING_FEE" default:"5"`
	FreeThreshold string `envconfig:"BREWSHOP_SHIPPING_FREE_THRESHOLD" default:"50"`
}

func (s ShippingConfig) validate() error {
	if _, err := decimal.NewFromString(s.Fee); err != nil {
		return fmt.Errorf("invalid shipping fee %q: %w", s.Fee, err)
	}
	if _, err := decimal.NewFromString(s.FreeThreshold); err != nil {
		return fmt.Errorf("invalid shipping free threshold %q: %w", s.FreeThreshold, err)
	}
	return nil
}

// FeeAmount returns the flat shipping fee. Load guarantees it parses.
func (s ShippingConfig) FeeAmount() decimal.Decimal {
	fee, _ := decimal.NewFromString(s.Fee)
	return fee
}

// ThresholdAmount returns the order total above which shipping is waived.
func (s ShippingConfig) ThresholdAmount() decimal.Decimal {
	threshold, _ := decimal.NewFromString(s.FreeThreshold)
	return threshold
}

type RedisConfig struct {
	URL          string        `envconfig:"BREWSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BREWSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"BREWSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"BREWSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BREWSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BREWSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BREWSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BREWSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BREWSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	TTL          time.Duration `envconfig:"BREWSHOP_SESSION_TTL" default:"72h"`
	CookieName   string        `envconfig:"BREWSHOP_SESSION_COOKIE" default:"brewshop_sid"`
	CookieSecure bool          `envconfig:"BREWSHOP_SESSION_COOKIE_SECURE" default:"true"`
}

type StockConfig struct {
	CacheTTL time.Duration `envconfig:"BREWSHOP_STOCK_CACHE_TTL" default:"30s"`
}

type IdentityConfig struct {
	TokenInfoURL string        `envconfig:"BREWSHOP_IDP_TOKENINFO_URL" default:"https://www.googleapis.com/oauth2/v3/tokeninfo"`
	UserInfoURL  string        `envconfig:"BREWSHOP_IDP_USERINFO_URL" default:"https://www.googleapis.com/oauth2/v3/userinfo"`
	Timeout      time.Duration `envconfig:"BREWSHOP_IDP_TIMEOUT" default:"10s"`
}
