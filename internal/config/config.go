// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the split service.
type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	DBPath         string        `env:"DB_PATH,default=./data/foodhunt.db"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY,required"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=24h"`
	NATSURL        string        `env:"NATS_URL"`
	PushSubject    string        `env:"PUSH_SUBJECT,default=foodhunt.push"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL,default=5m"`
	OpTimeout      time.Duration `env:"OP_TIMEOUT,default=10s"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
