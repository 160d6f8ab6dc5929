package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	MySQLHost   string `mapstructure:"MYSQL_HOST"`
	MySQLPort   string `mapstructure:"MYSQL_PORT"`
	MySQLDB     string `mapstructure:"MYSQL_DB"`
	MySQLUser   string `mapstructure:"MYSQL_USER"`
	MySQLPass   string `mapstructure:"MYSQL_PASS"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	AutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	IdempTTLSecs  int    `mapstructure:"IDEMPOTENCY_TTL_SECONDS"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	SettlementURL     string        `mapstructure:"SETTLEMENT_URL"`
	SettlementTimeout time.Duration `mapstructure:"SETTLEMENT_TIMEOUT"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	DefaultSweepSchedule string        `mapstructure:"DEFAULT_SWEEP_SCHEDULE"`
	RepaymentTerm        time.Duration `mapstructure:"REPAYMENT_TERM"`
}

var defaults = map[string]any{
	"APP_PORT":     "8080",
	"SERVICE_NAME": "credhealth",
	"LOG_LEVEL":    "info",
	"LOG_FORMAT":   "json",

	"DB_DRIVER":       "mysql",
	"MYSQL_HOST":      "mysql",
	"MYSQL_PORT":      "3306",
	"MYSQL_DB":        "credhealth",
	"MYSQL_USER":      "credhealth",
	"MYSQL_PASS":      "credhealth",
	"POSTGRES_DSN":    "",
	"SQLITE_PATH":     "credhealth.db",
	"DB_AUTO_MIGRATE": true,

	"REDIS_ADDR":              "redis:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"IDEMPOTENCY_TTL_SECONDS": 300,

	"JWT_SECRET": "",

	"SETTLEMENT_URL":     "",
	"SETTLEMENT_TIMEOUT": "30s",

	"AMQP_URL":      "",
	"AMQP_EXCHANGE": "credhealth.events",

	"DEFAULT_SWEEP_SCHEDULE": "*/15 * * * *",
	"REPAYMENT_TERM":         "0s",
}

// Load reads the environment, after an optional .env in the working directory. Variables
// already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (mysql, postgres, sqlite)", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.IdempTTLSecs <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_SECONDS must be positive, got %d", c.IdempTTLSecs)
	}
	if c.RepaymentTerm < 0 {
		return fmt.Errorf("REPAYMENT_TERM must not be negative, got %s", c.RepaymentTerm)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "postgres":
		return c.PostgresDSN
	case "sqlite":
		return c.SQLitePath
	default:
		return c.MySQLDSN()
	}
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

// SweeperEnabled reports whether overdue loans are defaulted automatically.
func (c *Config) SweeperEnabled() bool { return c.RepaymentTerm > 0 }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
