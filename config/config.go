package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	OpenPayments OpenPaymentsConfig `mapstructure:"open_payments"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	AES          AESConfig          `mapstructure:"aes"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// OpenPaymentsConfig is the signing identity the adapter authenticates with.
// It is read once at start-up.
type OpenPaymentsConfig struct {
	WalletAddressURL string        `mapstructure:"wallet_address_url"`
	KeyID            string        `mapstructure:"key_id"`
	PrivateKeyPath   string        `mapstructure:"private_key_path"`
	PrivateKey       string        `mapstructure:"private_key"` // inline PEM or base64-encoded PEM
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	FinishURI        string        `mapstructure:"finish_uri"` // optional interact.finish redirect target
}

// PrivateKeyPEM returns the configured key material. Inline content wins over
// the file path. Base64-encoded PEM (as issued by the test wallet) is decoded.
func (o OpenPaymentsConfig) PrivateKeyPEM() ([]byte, error) {
	raw := strings.TrimSpace(o.PrivateKey)
	if raw == "" {
		if o.PrivateKeyPath == "" {
			return nil, fmt.Errorf("open_payments: private_key or private_key_path is required")
		}
		b, err := os.ReadFile(o.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		raw = strings.TrimSpace(string(b))
	}
	if strings.HasPrefix(raw, "-----BEGIN") {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("private key is neither PEM nor base64 PEM: %w", err)
	}
	return decoded, nil
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"` // false = transfer attempts kept in memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"` // false = no attempt cache, no rate limiting
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig protects the REST façade when Secret is set.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// RateLimitConfig caps requests per caller and endpoint group within Window.
// Limiting is active only when Redis is enabled.
type RateLimitConfig struct {
	Window   time.Duration `mapstructure:"window"`
	Wallet   int64         `mapstructure:"wallet"`
	Payments int64         `mapstructure:"payments"`
	Transfer int64         `mapstructure:"transfer"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SWG_ (SmartWallet Gateway).
// Nested keys use underscore: SWG_OPEN_PAYMENTS_KEY_ID, SWG_DATABASE_HOST, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("open_payments.wallet_address_url", "")
	v.SetDefault("open_payments.key_id", "")
	v.SetDefault("open_payments.private_key_path", "private.key")
	v.SetDefault("open_payments.private_key", "")
	v.SetDefault("open_payments.request_timeout", "30s")
	v.SetDefault("open_payments.finish_uri", "")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "smartwallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "24h")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "smartwallet-gateway")
	v.SetDefault("aes.key", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.wallet", 120)
	v.SetDefault("ratelimit.payments", 60)
	v.SetDefault("ratelimit.transfer", 20)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SWG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SWG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// PORT is honoured for parity with common PaaS conventions.
	_ = v.BindEnv("server.port", "SWG_SERVER_PORT", "PORT")

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings required to talk to Open Payments and to
// persist transfer attempts.
func (c *Config) Validate() error {
	if c.OpenPayments.WalletAddressURL == "" {
		return fmt.Errorf("open_payments.wallet_address_url is required")
	}
	if c.OpenPayments.KeyID == "" {
		return fmt.Errorf("open_payments.key_id is required")
	}
	if c.Database.Enabled && c.AES.Key == "" {
		return fmt.Errorf("aes.key is required when database.enabled is set")
	}
	return nil
}

// TransferCacheEnabled reports whether Redis may cache transfer attempts.
// Cached entries outlive the process, so the cache only fronts the database
// store, whose continue tokens are sealed with the configured aes.key.
func (c *Config) TransferCacheEnabled() bool {
	return c.Redis.Enabled && c.Database.Enabled && c.AES.Key != ""
}
