package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage substrates and blob backends accepted by STORE_BACKEND and
// BLOB_BACKEND.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	StoreBackend     string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBSchema         string        `mapstructure:"DB_SCHEMA"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	LevelDBPath      string        `mapstructure:"LEVELDB_PATH"`
	BlobBackend      string        `mapstructure:"BLOB_BACKEND"`
	BlobPath         string        `mapstructure:"BLOB_PATH"`
	S3Bucket         string        `mapstructure:"S3_BUCKET"`
	S3Prefix         string        `mapstructure:"S3_PREFIX"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	AuditStream      string        `mapstructure:"AUDIT_STREAM"`
	AuditStreamMax   int64         `mapstructure:"AUDIT_STREAM_MAXLEN"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL      string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	BlobBodyLimit    string        `mapstructure:"BLOB_BODY_LIMIT"`
	MaxShareDuration time.Duration `mapstructure:"MAX_SHARE_DURATION"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND", "DATABASE_URL", "DB_SCHEMA", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "LEVELDB_PATH", "BLOB_BACKEND", "BLOB_PATH", "S3_BUCKET",
	"S3_PREFIX", "REDIS_URL", "AUDIT_STREAM", "AUDIT_STREAM_MAXLEN", "AUTH_ISSUER", "AUTH_JWKS_URL",
	"AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "BODY_LIMIT", "BLOB_BODY_LIMIT", "MAX_SHARE_DURATION",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("DB_SCHEMA", "medichain")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("LEVELDB_PATH", "./data/ledger")
	v.SetDefault("BLOB_BACKEND", BackendMemory)
	v.SetDefault("BLOB_PATH", "./data/blobs")
	v.SetDefault("AUDIT_STREAM", "medichain:audit")
	v.SetDefault("AUDIT_STREAM_MAXLEN", 0)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("BLOB_BODY_LIMIT", "32M")
	v.SetDefault("MAX_SHARE_DURATION", "0s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: The X-Principal header is trusted as the caller identity.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey decodes AUTH_SIGNING_KEY. A nil key means tokens are verified
// against AUTH_JWKS_URL instead.
func (c *Config) SigningKey() ([]byte, error) {
	if c.AuthSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.AuthSigningKey)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a token verifier must be configured, since the principal header is only
// trusted in development.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendLevelDB:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendLevelDB, BackendPostgres, c.StoreBackend)
	}
	if c.StoreBackend == BackendLevelDB && c.LevelDBPath == "" {
		return fmt.Errorf("LEVELDB_PATH is required when STORE_BACKEND is %q", BackendLevelDB)
	}

	switch c.BlobBackend {
	case BackendMemory:
	case BackendLevelDB:
		if c.BlobPath == "" {
			return fmt.Errorf("BLOB_PATH is required when BLOB_BACKEND is %q", BackendLevelDB)
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND is %q", BackendS3)
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendLevelDB, BackendS3, c.BlobBackend)
	}
	if c.StoreBackend == BackendLevelDB && c.BlobBackend == BackendLevelDB && c.BlobPath == c.LevelDBPath {
		return fmt.Errorf("BLOB_PATH and LEVELDB_PATH must differ")
	}

	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set outside development (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is for development and testing only; use AUTH_JWKS_URL in production")
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}

	if c.AuditStreamMax < 0 {
		return fmt.Errorf("AUDIT_STREAM_MAXLEN must not be negative, got %d", c.AuditStreamMax)
	}
	if c.MaxShareDuration < 0 {
		return fmt.Errorf("MAX_SHARE_DURATION must not be negative, got %s", c.MaxShareDuration)
	}
	return nil
}
