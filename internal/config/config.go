package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	PostgresURL        string        `mapstructure:"POSTGRES_URL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	CaptureThresholdKm float64       `mapstructure:"CAPTURE_THRESHOLD_KM"`
	LeaderboardKey     string        `mapstructure:"LEADERBOARD_KEY"`
	TickInterval       time.Duration `mapstructure:"TICK_INTERVAL"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
}

// Load reads configuration from the environment. Every key needs a default so
// viper knows about it when unmarshalling.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("CAPTURE_THRESHOLD_KM", 0.05)
	v.SetDefault("LEADERBOARD_KEY", "leaderboard:distance")
	v.SetDefault("TICK_INTERVAL", "1s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
