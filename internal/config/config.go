package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	JWT       JWTConfig       `yaml:"jwt"`
	VNPay     VNPayConfig     `yaml:"vnpay"`
	BankQR    BankQRConfig    `yaml:"bank_qr"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Deposit   DepositConfig   `yaml:"deposit"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP listener settings. HealthPort serves the gRPC health probe.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	HealthPort int    `yaml:"health_port"`
}

// DatabaseConfig selects the storage backend. Transactions turns on the transactional
// order-creation path; leave it off behind poolers that break multi-statement transactions.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "memory"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	Transactions bool   `yaml:"transactions"`
}

type EmailConfig struct {
	Provider       string     `yaml:"provider"` // "smtp", "sendgrid" or "log"
	From           string     `yaml:"from"`
	FromName       string     `yaml:"from_name"`
	SMTP           SMTPConfig `yaml:"smtp"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

type VNPayConfig struct {
	TmnCode       string `yaml:"tmn_code"`
	HashSecret    string `yaml:"hash_secret"`
	PaymentURL    string `yaml:"payment_url"`
	ReturnURL     string `yaml:"return_url"`
	IPNURL        string `yaml:"ipn_url"`
	FrontendURL   string `yaml:"frontend_url"` // where the return channel redirects the browser
	Version       string `yaml:"version"`
	Locale        string `yaml:"locale"`
	ExpireMinutes int    `yaml:"expire_minutes"`
}

type BankQRConfig struct {
	BankID      string `yaml:"bank_id"`
	AccountNo   string `yaml:"account_no"`
	AccountName string `yaml:"account_name"`
}

type FirebaseConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

type DepositConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

func (d DepositConfig) TTL() time.Duration {
	return time.Duration(d.TTLMinutes) * time.Minute
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SchedulerConfig contains cron schedule settings (with seconds field, UTC)
type SchedulerConfig struct {
	AdvanceDueRentals  string `yaml:"advance_due_rentals"`
	ExpireDeposits     string `yaml:"expire_deposits"`
	ReconcileInventory string `yaml:"reconcile_inventory"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")
	setBool(&c.Database.Transactions, "DB_TRANSACTIONS")

	setString(&c.Email.Provider, "EMAIL_PROVIDER")
	setString(&c.Email.From, "EMAIL_FROM")
	setString(&c.Email.SMTP.Host, "SMTP_HOST")
	setInt(&c.Email.SMTP.Port, "SMTP_PORT")
	setString(&c.Email.SMTP.User, "SMTP_USER")
	setString(&c.Email.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.Email.SendGridAPIKey, "SENDGRID_API_KEY")

	setString(&c.JWT.Secret, "JWT_SECRET")

	setString(&c.VNPay.TmnCode, "VNP_TMN_CODE")
	setString(&c.VNPay.HashSecret, "VNP_HASH_SECRET")
	setString(&c.VNPay.PaymentURL, "VNP_URL")
	setString(&c.VNPay.ReturnURL, "VNP_RETURN_URL")
	setString(&c.VNPay.IPNURL, "VNP_IPN_URL")
	setString(&c.VNPay.FrontendURL, "FRONTEND_URL")

	setString(&c.BankQR.BankID, "BANK_ID")
	setString(&c.BankQR.AccountNo, "BANK_ACCOUNT_NO")
	setString(&c.BankQR.AccountName, "BANK_ACCOUNT_NAME")

	setString(&c.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.Server.HealthPort)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
		c.Database.Transactions = false
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Email.Provider == "" {
		c.Email.Provider = "log"
	}
	switch c.Email.Provider {
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Email.SMTP.Port <= 0 || c.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Email.SMTP.Port)
		}
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	case "log":
	default:
		return fmt.Errorf("unknown email provider: %q", c.Email.Provider)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.VNPay.TmnCode == "" || c.VNPay.HashSecret == "" {
		return fmt.Errorf("vnpay tmn_code and hash_secret are required")
	}
	if c.VNPay.PaymentURL == "" {
		c.VNPay.PaymentURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	}
	if c.VNPay.ReturnURL == "" {
		return fmt.Errorf("vnpay return_url is required")
	}
	if c.VNPay.FrontendURL == "" {
		return fmt.Errorf("vnpay frontend_url is required")
	}
	if c.VNPay.Version == "" {
		c.VNPay.Version = "2.1.0"
	}
	if c.VNPay.Locale == "" {
		c.VNPay.Locale = "vn"
	}
	if c.VNPay.ExpireMinutes == 0 {
		c.VNPay.ExpireMinutes = 15
	}

	if c.Firebase.Enabled && c.Firebase.CredentialsFile == "" {
		return fmt.Errorf("firebase credentials_file is required when firebase is enabled")
	}

	if c.Deposit.TTLMinutes == 0 {
		c.Deposit.TTLMinutes = c.VNPay.ExpireMinutes
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Scheduler.AdvanceDueRentals == "" {
		c.Scheduler.AdvanceDueRentals = "0 0 1 * * *" // daily at 1 AM UTC
	}
	if c.Scheduler.ExpireDeposits == "" {
		c.Scheduler.ExpireDeposits = "0 */10 * * * *" // every 10 minutes
	}
	if c.Scheduler.ReconcileInventory == "" {
		c.Scheduler.ReconcileInventory = "0 30 2 * * *" // nightly at 2:30 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHealthAddress returns the gRPC health listen address, empty when disabled.
func (c *Config) GetHealthAddress() string {
	if c.Server.HealthPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HealthPort)
}
