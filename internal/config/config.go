package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseConfig = errors.New("missing_database_config")
	ErrInvalidDatabaseType   = errors.New("invalid_database_type")
	ErrInvalidDeployment     = errors.New("invalid_deployment")
)

const (
	DeploymentProperty = "property"
	DeploymentFarm     = "farm"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Deployments lists which detector families run: "property", "farm" or both.
	Deployments      []string
	DisabledDetector []string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RulesPath string

	DedupEnabled bool
	DedupTTL     time.Duration

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	DetectionTimeout  time.Duration
	EnabledJobs       []string

	SlackWebhookURL string
	SlackChannel    string

	// GenerateRatePerMinute throttles POST /api/alerts/generate per client;
	// zero disables the limit.
	GenerateRatePerMinute float64
	GenerateBurst         int
}

// Load loads configuration from environment variables and .env file.
// Missing or invalid store settings fail here, before anything is wired.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "opsalert"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		Deployments:       parseList(getenv("DEPLOYMENTS", DeploymentProperty+","+DeploymentFarm)),
		DisabledDetector:  parseList(getenv("DISABLED_DETECTORS", "")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            strings.TrimSpace(os.Getenv("DATABASE_NAME")),
		DBUser:            strings.TrimSpace(os.Getenv("DATABASE_USER")),
		DBPassword:        os.Getenv("DATABASE_PASSWORD"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "opsalert.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", false),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getenvInt("REDIS_DB", 0),
		RulesPath:         strings.TrimSpace(os.Getenv("OPSALERT_RULES_PATH")),
		DedupEnabled:      getenvBool("ALERT_DEDUP_ENABLED", false),
		DedupTTL:          getenvDuration("ALERT_DEDUP_TTL", 24*time.Hour),
		SchedulerEnabled:  getenvBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: getenvDuration("SCHEDULER_INTERVAL", time.Hour),
		DetectionTimeout:  getenvDuration("DETECTION_TIMEOUT", 2*time.Minute),
		EnabledJobs:       parseList(getenv("SCHEDULER_JOBS", "")),
		SlackWebhookURL:   strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		SlackChannel:      getenv("SLACK_CHANNEL", "#ops-alerts"),

		GenerateRatePerMinute: getenvFloat("GENERATE_RATE_PER_MINUTE", 0),
		GenerateBurst:         getenvInt("GENERATE_BURST", 3),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that would make every detection pass fail.
func (c Config) Validate() error {
	switch c.DBType {
	case "postgres", "mysql":
		var missing []string
		if strings.TrimSpace(c.DBHost) == "" {
			missing = append(missing, "DATABASE_HOST")
		}
		if strings.TrimSpace(c.DBName) == "" {
			missing = append(missing, "DATABASE_NAME")
		}
		if strings.TrimSpace(c.DBUser) == "" {
			missing = append(missing, "DATABASE_USER")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingDatabaseConfig, strings.Join(missing, ", "))
		}
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("%w: DATABASE_PATH", ErrMissingDatabaseConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseType, c.DBType)
	}

	if len(c.Deployments) == 0 {
		return fmt.Errorf("%w: no deployments enabled", ErrInvalidDeployment)
	}
	for _, d := range c.Deployments {
		if d != DeploymentProperty && d != DeploymentFarm {
			return fmt.Errorf("%w: %q", ErrInvalidDeployment, d)
		}
	}
	return nil
}

func (c Config) HasDeployment(name string) bool {
	for _, d := range c.Deployments {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

func (c Config) IsDetectorDisabled(name string) bool {
	for _, d := range c.DisabledDetector {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
