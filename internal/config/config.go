package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	Timezone    string `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"`
	HTTPServer  `yaml:"http_server"`
	Redis       Redis   `yaml:"redis"`
	Geo         Geo     `yaml:"geo"`
	Studio      Studio  `yaml:"studio"`
	Booking     Booking `yaml:"booking"`
	Broker      Broker  `yaml:"broker"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Geo struct {
	// Provider is "google" or "haversine".
	Provider          string        `yaml:"provider" env:"GEO_PROVIDER" env-default:"haversine"`
	APIKey            string        `yaml:"api_key" env:"GEO_API_KEY"`
	BaseURL           string        `yaml:"base_url" env:"GEO_BASE_URL" env-default:"https://maps.googleapis.com"`
	Timeout           time.Duration `yaml:"timeout" env-default:"3s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env-default:"10"`
	Burst             int           `yaml:"burst" env-default:"5"`
	CacheTTL          time.Duration `yaml:"cache_ttl" env-default:"24h"`
	AverageSpeedKmh   float64       `yaml:"average_speed_kmh" env-default:"40"`
}

type Studio struct {
	BaseAddress string `yaml:"base_address" env:"STUDIO_BASE_ADDRESS"`
}

type Booking struct {
	LockTTL time.Duration `yaml:"lock_ttl" env-default:"10s"`
}

type Broker struct {
	URL         string        `yaml:"url" env:"AMQP_URL"`
	Queue       string        `yaml:"queue" env-default:"sessions.booked"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"2s"`
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}
