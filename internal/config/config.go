package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server    `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Redis     Redis     `mapstructure:",squash"`
	Auth      Auth      `mapstructure:",squash"`
	Report    Report    `mapstructure:",squash"`
	Log       Log       `mapstructure:",squash"`
	Scheduler Scheduler `mapstructure:",squash"`
}

type Server struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Database struct {
	URL string `mapstructure:"database_url"`
}

type Redis struct {
	Addr     string `mapstructure:"redis_addr"`
	Password string `mapstructure:"redis_password"`
	DB       int    `mapstructure:"redis_db"`
}

type Auth struct {
	Secret         string        `mapstructure:"auth_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type Report struct {
	Timezone    string        `mapstructure:"report_timezone"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type Log struct {
	Level  string `mapstructure:"log_level"`
	Pretty bool   `mapstructure:"log_pretty"`
}

type Scheduler struct {
	StockAlertCron    string `mapstructure:"stock_alert_cron"`
	StockAlertEnabled bool   `mapstructure:"stock_alert_enabled"`
	DailyCloseCron    string `mapstructure:"daily_close_cron"`
	DailyCloseEnabled bool   `mapstructure:"daily_close_enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:5173")
	v.SetDefault("SHUTDOWN_TIMEOUT", "8s")

	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	// No default secret: the server refuses to start without one.
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "8h")

	v.SetDefault("REPORT_TIMEZONE", "Asia/Manila")
	v.SetDefault("SNAPSHOT_TTL", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	v.SetDefault("STOCK_ALERT_CRON", "0 7 * * *")
	v.SetDefault("STOCK_ALERT_ENABLED", false)
	v.SetDefault("DAILY_CLOSE_CRON", "55 23 * * *")
	v.SetDefault("DAILY_CLOSE_ENABLED", false)
}

// Load reads .env (when present) and then the process environment. Variables
// already set in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	if cfg.Auth.AccessTokenTTL <= 0 {
		cfg.Auth.AccessTokenTTL = 8 * time.Hour
	}
	if cfg.Report.SnapshotTTL < 0 {
		cfg.Report.SnapshotTTL = 0
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 8 * time.Second
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

// Location resolves REPORT_TIMEZONE. Every report date comparison uses it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "REPORT_TIMEZONE %q", c.Report.Timezone)
	}
	return loc, nil
}
