package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; required values fail Load when missing.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`   // application environment (dev, test, prod)
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	DB DBConfig

	JWTSecret      string `env:"JWT_SECRET,required,notEmpty"`          // secret used to sign JWTs
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"15"`  // access token TTL in minutes
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"` // refresh token TTL in days
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`           // bcrypt cost for password hashing

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json or text

	Notify NotifyConfig
	Stats  StatsConfig `envPrefix:"STATS_"`
}

// DBConfig selects the SQL engine and how to reach it.  DB_PATH is only
// used by the embedded sqlite driver.
type DBConfig struct {
	Driver  string `env:"DB_DRIVER" envDefault:"mysql"` // mysql, postgres or sqlite
	User    string `env:"DB_USER"`
	Pass    string `env:"DB_PASS"`
	Host    string `env:"DB_HOST" envDefault:"localhost"`
	Port    string `env:"DB_PORT"`
	Name    string `env:"DB_NAME" envDefault:"volunteer_connect"`
	Path    string `env:"DB_PATH" envDefault:"volunteer_connect.db"`
	SSLMode string `env:"DB_SSLMODE" envDefault:"disable"`
}

// NotifyConfig controls where domain notifications go.  When RabbitURL is
// empty the service writes notifications straight into the SQL inbox.
type NotifyConfig struct {
	RabbitURL       string `env:"RABBITMQ_URL"`
	Queue           string `env:"NOTIFY_QUEUE" envDefault:"volunteer.notifications"`
	ConsumerEnabled bool   `env:"NOTIFY_CONSUMER_ENABLED" envDefault:"true"`
}

// StatsConfig carries the dashboard multipliers.
type StatsConfig struct {
	HoursPerEvent        int `env:"HOURS_PER_EVENT" envDefault:"4"`
	ImpactPointsPerEvent int `env:"IMPACT_POINTS_PER_EVENT" envDefault:"10"`
	RecentEvents         int `env:"RECENT_EVENTS" envDefault:"5"`
}

// Load reads an optional .env file and then parses the environment into a
// Config.  Missing required variables and unknown drivers are reported as
// errors so main can exit with a readable message.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	switch c.DB.Driver {
	case "mysql":
		if c.DB.Port == "" {
			c.DB.Port = "3306"
		}
	case "postgres":
		if c.DB.Port == "" {
			c.DB.Port = "5432"
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.Driver != "sqlite" && c.DB.User == "" {
		return fmt.Errorf("DB_USER is required for driver %s", c.DB.Driver)
	}
	if c.AccessTTLMin <= 0 || c.RefreshTTLDays <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Stats.HoursPerEvent < 0 || c.Stats.ImpactPointsPerEvent < 0 {
		return errors.New("stats multipliers must not be negative")
	}
	if c.Stats.RecentEvents <= 0 {
		c.Stats.RecentEvents = 5
	}
	return nil
}
