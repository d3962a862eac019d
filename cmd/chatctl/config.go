package main

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	ServerURL      string        `env:"CHAT_SERVER_URL,default=http://localhost:5000" validate:"url"`
	Token          string        `env:"CHAT_TOKEN"`
	LogLevel       string        `env:"LOG_LEVEL,default=WARN"`
	TypingWindow   time.Duration `env:"TYPING_WINDOW,default=2s" validate:"gt=0"`
	TypingThrottle time.Duration `env:"TYPING_THROTTLE,default=0s" validate:"gte=0"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenDuration  time.Duration `env:"AUTH_TOKEN_DURATION,default=168h" validate:"gt=0"`
}

func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
