package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DockerSecretPath is checked for the bot token before the environment.
const DockerSecretPath = "/run/secrets/telegram_bot_token"

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		Token      string  `env:"TELEGRAM_BOT_TOKEN"`
		AdminIDs   []int64 `env:"ADMIN_TELEGRAM_IDS" envSeparator:","`
		Mode       string  `env:"BOT_MODE" envDefault:"webhook"`
		WebhookURL string  `env:"WEBHOOK_URL"`
		ProjectURL string  `env:"PROJECT_URL" envDefault:"https://liftme.by"`
	}

	Server struct {
		Port        int           `env:"PORT" envDefault:"3000"`
		CORSOrigin  string        `env:"CORS_ORIGIN" envDefault:"*"`
		AdminAuth   bool          `env:"ADMIN_AUTH_ENABLED" envDefault:"false"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Database struct {
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		URL    string `env:"DATABASE_URL" envDefault:"data/bot.db"`
	}

	State struct {
		Backend       string        `env:"STATE_BACKEND" envDefault:"db"`
		RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string        `env:"REDIS_PASSWORD"`
		RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
		TTL           time.Duration `env:"STATE_TTL" envDefault:"24h"`
	}

	Storage struct {
		Backend          string `env:"STORAGE_BACKEND" envDefault:"local"`
		Dir              string `env:"STORAGE_DIR" envDefault:"data/storage"`
		PublicURL        string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`
		CloudName        string `env:"CLOUDINARY_CLOUD_NAME"`
		CloudAPIKey      string `env:"CLOUDINARY_API_KEY"`
		CloudAPISecret   string `env:"CLOUDINARY_API_SECRET"`
		CloudinaryFolder string `env:"CLOUDINARY_FOLDER" envDefault:"psy-bot"`
	}

	Jobs struct {
		TZOffsetHours    int           `env:"TZ_OFFSET_HOURS" envDefault:"3"`
		ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"5m"`
		ReminderWindow   time.Duration `env:"REMINDER_WINDOW" envDefault:"5m"`
		RetentionDays    int           `env:"RETENTION_DAYS" envDefault:"7"`
		BroadcastDelay   time.Duration `env:"BROADCAST_DELAY" envDefault:"50ms"`
	}
}

// Load reads .env (if present), the environment and the Docker secret.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional
	return LoadFrom(DockerSecretPath)
}

// LoadFrom parses the environment, taking the bot token from secretPath
// when that file exists and is not empty.
func LoadFrom(secretPath string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if token := readSecret(secretPath); token != "" {
		cfg.Telegram.Token = token
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecret(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *Config) validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("bot token not found: neither Docker secret nor TELEGRAM_BOT_TOKEN is set"))
	}
	if c.Telegram.Mode != ModeWebhook && c.Telegram.Mode != ModePolling {
		errs = append(errs, fmt.Errorf("BOT_MODE must be %q or %q, got %q", ModeWebhook, ModePolling, c.Telegram.Mode))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	switch c.State.Backend {
	case "db", "redis":
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be db or redis, got %q", c.State.Backend))
	}
	switch c.Storage.Backend {
	case "local":
	case "cloudinary":
		if c.Storage.CloudName == "" || c.Storage.CloudAPIKey == "" || c.Storage.CloudAPISecret == "" {
			errs = append(errs, errors.New("cloudinary storage needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be local or cloudinary, got %q", c.Storage.Backend))
	}
	if c.Jobs.ReminderInterval <= 0 || c.Jobs.ReminderWindow <= 0 {
		errs = append(errs, errors.New("REMINDER_INTERVAL and REMINDER_WINDOW must be positive"))
	}
	if c.Jobs.RetentionDays <= 0 {
		errs = append(errs, errors.New("RETENTION_DAYS must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location is the fixed zone slot dates and times are written in.
func (c *Config) Location() *time.Location {
	h := c.Jobs.TZOffsetHours
	return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*60*60)
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Jobs.RetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }
