package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// TimeZone decides which calendar day a verification belongs to.
	TimeZone string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	// SeedCatalog inserts the standard equipment and verification types on
	// startup when they are missing.
	SeedCatalog bool

	RateLimit RateLimitConfig
	Authz     AuthzConfig

	// RulesConfigPath is an extra directory searched for verification.yml.
	RulesConfigPath string
}

// RateLimitConfig configures the Redis-backed submission guard.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SubmissionActorRate  float64
	SubmissionActorBurst int
	EquipmentLockTTL     time.Duration
}

type AuthzConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "metrolab"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		TimeZone:          getenv("APP_TIMEZONE", "UTC"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "metrolab"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),
		SeedCatalog:       getenvBool("SEED_CATALOG", false),
		RateLimit: RateLimitConfig{
			Enabled:              getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:            strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:        strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:              getenvInt("REDIS_DB", 0),
			SubmissionActorRate:  getenvFloat("SUBMISSION_ACTOR_RATE", 1),
			SubmissionActorBurst: getenvInt("SUBMISSION_ACTOR_BURST", 10),
			EquipmentLockTTL:     time.Duration(getenvInt("EQUIPMENT_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Authz: AuthzConfig{
			Enabled: getenvBool("AUTHZ_ENABLED", true),
		},
		RulesConfigPath: strings.TrimSpace(getenv("RULES_CONFIG_PATH", "")),
	}

	return cfg
}

// Location resolves TimeZone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
