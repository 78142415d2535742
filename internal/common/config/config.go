package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	API     API     `yaml:"api"`
	Channel Channel `yaml:"channel"`
	Booking Booking `yaml:"booking"`
	Log     Log     `yaml:"log"`
}

type API struct {
	BaseURL string `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:3000"`
	Token   string `yaml:"token" env:"API_TOKEN"`
}

type Channel struct {
	SocketURL   string `yaml:"socket_url" env:"SOCKET_URL" env-default:"ws://localhost:3000/ws"`
	DialTimeout int    `yaml:"dial_timeout_seconds" env:"SOCKET_DIAL_TIMEOUT" env-default:"10"`
}

type Booking struct {
	SearchDeadlineSeconds int `yaml:"search_deadline_seconds" env:"SEARCH_DEADLINE_SECONDS" env-default:"600"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS" env-default:"30"`
	CancelAckSeconds      int `yaml:"cancel_ack_seconds" env:"CANCEL_ACK_SECONDS" env-default:"5"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"INFO"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fall back to env vars when no config file is present
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// env vars override the file
		_ = cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
