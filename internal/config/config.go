package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone data for hosts without a system tz database

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	DBDriver string `env:"PARKING_DB_DRIVER" envDefault:"sqlite"`
	DBPath   string `env:"PARKING_DB_PATH" envDefault:"patio.db"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"parking"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"parking_db"`
	DBSslMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBSchema   string `env:"DB_SCHEMA" envDefault:"public"`

	TimeZone      string  `env:"PARKING_TIMEZONE" envDefault:"America/Sao_Paulo"`
	FirstHourRate float64 `env:"PARKING_FIRST_HOUR_RATE" envDefault:"10"`
	ExtraHourRate float64 `env:"PARKING_EXTRA_HOUR_RATE" envDefault:"5"`

	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	JWTSecret          string `env:"JWT_SECRET" envDefault:"troque-esta-chave-em-producao"`
	JWTExpirationHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`

	AWSRegion       string `env:"AWS_REGION" envDefault:"sa-east-1"`
	SQSGateQueueURL string `env:"SQS_GATE_QUEUE_URL"`
	IoTMQTTEndpoint string `env:"IOT_MQTT_ENDPOINT"`
	LPREnabled      bool   `env:"LPR_ENABLED" envDefault:"false"`

	ReportDir string `env:"REPORT_DIR" envDefault:"."`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("não foi possível carregar o arquivo .env: %v", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("PARKING_DB_DRIVER inválido: %q (use %q ou %q)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.FirstHourRate <= 0 || c.ExtraHourRate < 0 {
		return fmt.Errorf("tarifas inválidas: primeira hora %.2f, hora adicional %.2f", c.FirstHourRate, c.ExtraHourRate)
	}
	if c.JWTExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS deve ser positivo, recebido %d", c.JWTExpirationHours)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("PARKING_TIMEZONE inválido %q: %w", c.TimeZone, err)
	}
	c.location = loc
	return nil
}

// Location is the zone every timestamp is recorded in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

// ConfigureLogging applies LOG_LEVEL to the global logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("LOG_LEVEL inválido %q, usando info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// InteractiveLogLevel is the level used while the menu owns the terminal. Info
// lines would interleave with the prompts, so info is lowered to warn. Stricter
// levels and debug output are kept as LOG_LEVEL sets them.
func (c *Config) InteractiveLogLevel() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil || level == log.InfoLevel {
		return log.WarnLevel
	}
	return level
}
