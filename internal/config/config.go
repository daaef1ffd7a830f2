package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	Secret        string        `mapstructure:"secret"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	PongWait      time.Duration `mapstructure:"pong_wait"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	RoomCapacity  int           `mapstructure:"room_capacity"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	DatabaseDSN   string        `mapstructure:"database_dsn"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("room_capacity", 5)
	v.SetDefault("sweep_schedule", "@every 1m")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		// Tokens and cookie sessions are keyed on the secret. An empty
		// key must never reach a release deployment.
		if cfg.Mode != "debug" {
			return nil, fmt.Errorf("secret is not set in %s", fileName)
		}
		cfg.Secret = uuid.NewString()
		log.Warn().Msg("no secret configured, using an ephemeral one; tokens will not survive restarts")
	}
	return &cfg, nil
}
