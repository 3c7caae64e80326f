package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds the whole application configuration.
// Populated from environment variables.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Order       OrderConfig
	LiqPay      LiqPayConfig
	Fondy       FondyConfig
	Portmone    PortmoneConfig
	PrivatParts PrivatPartsConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string

	// Public base URL of this storefront, used to build callback and
	// redirect URLs handed to processors.
	StorefrontURL string
	ReceiptPath   string
	CancelPath    string
	ErrorPath     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// OrderConfig controls order number encoding. An order number is
// "{Prefix}-{basketID + Offset}", so the basket id is recoverable from
// any callback that echoes the order number back.
type OrderConfig struct {
	NumberPrefix string
	NumberOffset int64
}

// =====================================================
// PROCESSOR CONFIGURATION
// =====================================================

// KeyPair is a LiqPay public/private key set, scoped per partner.
type KeyPair struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

type LiqPayConfig struct {
	Host           string // https://www.liqpay.ua/api/
	DefaultPartner string
	// PartnerKeys routes multi-tenant credentials by basket partner code.
	// Tenant routing is configuration only; no buyer-identity switches.
	PartnerKeys map[string]KeyPair
	Version     int  // 3
	Sandbox     bool // submit payments in sandbox mode
	Currency    string
	Language    string
}

func (c *LiqPayConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("LiqPay host is required")
	}
	keys, ok := c.PartnerKeys[c.DefaultPartner]
	if !ok {
		return fmt.Errorf("LiqPay keys for default partner %q are required", c.DefaultPartner)
	}
	if keys.PublicKey == "" || keys.PrivateKey == "" {
		return fmt.Errorf("LiqPay public and private keys are required")
	}
	return nil
}

// ResolveKeys returns the credential set for a basket's partner, falling
// back to the default partner. Resolution happens before any signing.
func (c *LiqPayConfig) ResolveKeys(partner string) KeyPair {
	if keys, ok := c.PartnerKeys[partner]; ok {
		return keys
	}
	return c.PartnerKeys[c.DefaultPartner]
}

type FondyConfig struct {
	Host             string // https://api.fondy.eu/api/
	MerchantID       string
	MerchantPassword string
	Version          string // 1.0.1
	Currency         string
	Lang             string
}

func (c *FondyConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("Fondy host is required")
	}
	if c.MerchantID == "" {
		return fmt.Errorf("Fondy merchant_id is required")
	}
	if c.MerchantPassword == "" {
		return fmt.Errorf("Fondy merchant_password is required")
	}
	return nil
}

type PortmoneConfig struct {
	Host     string // https://www.portmone.com.ua/gateway/
	PayeeID  string
	Login    string
	Password string
	Currency string
	Lang     string
}

func (c *PortmoneConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("Portmone host is required")
	}
	if c.PayeeID == "" {
		return fmt.Errorf("Portmone payee_id is required")
	}
	if c.Login == "" || c.Password == "" {
		return fmt.Errorf("Portmone login and password are required")
	}
	return nil
}

type PrivatPartsConfig struct {
	Host       string // https://payparts2.privatbank.ua/ipp/v2/
	StoreID    string
	Password   string
	PartsCount int
	Sandbox    bool
}

func (c *PrivatPartsConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("PrivatParts host is required")
	}
	if c.StoreID == "" || c.Password == "" {
		return fmt.Errorf("PrivatParts store_id and password are required")
	}
	if c.PartsCount <= 0 {
		return fmt.Errorf("PrivatParts parts_count must be positive")
	}
	return nil
}

// Load reads config from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "Coursestore Payments"),
			Environment:   getEnv("APP_ENV", "development"),
			Port:          getEnv("APP_PORT", "8080"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			StorefrontURL: getEnv("STOREFRONT_URL", "http://localhost:8080"),
			ReceiptPath:   getEnv("RECEIPT_PATH", "/checkout/receipt/"),
			CancelPath:    getEnv("CANCEL_CHECKOUT_PATH", "/checkout/cancel-checkout/"),
			ErrorPath:     getEnv("ERROR_PATH", "/checkout/error/"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "coursestore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Order: OrderConfig{
			NumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "PROM"),
			NumberOffset: int64(getEnvInt("ORDER_NUMBER_OFFSET", 100000)),
		},
		LiqPay: LiqPayConfig{
			Host:           getEnv("LIQPAY_HOST", "https://www.liqpay.ua/api/"),
			DefaultPartner: getEnv("LIQPAY_DEFAULT_PARTNER", "prima"),
			Version:        getEnvInt("LIQPAY_VERSION", 3),
			Sandbox:        getEnvBool("LIQPAY_SANDBOX", false),
			Currency:       getEnv("LIQPAY_CURRENCY", "UAH"),
			Language:       getEnv("LIQPAY_LANGUAGE", "uk"),
		},
		Fondy: FondyConfig{
			Host:             getEnv("FONDY_HOST", "https://api.fondy.eu/api/"),
			MerchantID:       getEnv("FONDY_MERCHANT_ID", ""),
			MerchantPassword: getEnv("FONDY_MERCHANT_PASSWORD", ""),
			Version:          getEnv("FONDY_VERSION", "1.0.1"),
			Currency:         getEnv("FONDY_CURRENCY", "UAH"),
			Lang:             getEnv("FONDY_LANG", "uk"),
		},
		Portmone: PortmoneConfig{
			Host:     getEnv("PORTMONE_HOST", "https://www.portmone.com.ua/gateway/"),
			PayeeID:  getEnv("PORTMONE_PAYEE_ID", ""),
			Login:    getEnv("PORTMONE_LOGIN", ""),
			Password: getEnv("PORTMONE_PASSWORD", ""),
			Currency: getEnv("PORTMONE_CURRENCY", "UAH"),
			Lang:     getEnv("PORTMONE_LANG", "uk"),
		},
		PrivatParts: PrivatPartsConfig{
			Host:       getEnv("PRIVATPARTS_HOST", "https://payparts2.privatbank.ua/ipp/v2/"),
			StoreID:    getEnv("PRIVATPARTS_STORE_ID", ""),
			Password:   getEnv("PRIVATPARTS_PASSWORD", ""),
			PartsCount: getEnvInt("PRIVATPARTS_PARTS_COUNT", 4),
			Sandbox:    getEnvBool("PRIVATPARTS_SANDBOX", false),
		},
	}

	// LiqPay tenant keys arrive as a JSON object keyed by partner code:
	// {"prima": {"public_key": "...", "private_key": "..."}}
	partnerKeys := map[string]KeyPair{}
	if raw := getEnv("LIQPAY_PARTNER_KEYS", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &partnerKeys); err != nil {
			return nil, fmt.Errorf("failed to parse LIQPAY_PARTNER_KEYS: %w", err)
		}
	}
	if _, ok := partnerKeys[cfg.LiqPay.DefaultPartner]; !ok {
		partnerKeys[cfg.LiqPay.DefaultPartner] = KeyPair{
			PublicKey:  getEnv("LIQPAY_PUBLIC_KEY", ""),
			PrivateKey: getEnv("LIQPAY_PRIVATE_KEY", ""),
		}
	}
	cfg.LiqPay.PartnerKeys = partnerKeys

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
