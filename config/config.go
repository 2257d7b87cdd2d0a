package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	PostgresConn  string
	ServerAddress string
	RedisAddr     string
	JWTSecret     string
	EffectChannel string
}

// New loads configuration from environment variables, honoring a local .env
// file when present.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment values")
	}

	return &Config{
		PostgresConn:  os.Getenv("POSTGRES_CONN"),
		ServerAddress: getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret"),
		EffectChannel: getEnv("EFFECT_CHANNEL", "gig-effects"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
