package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var AppEnv Config

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MongoURI    string `envconfig:"MONGO_URI"`
	DBName      string `envconfig:"DB_NAME" default:"farmersupply"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	ChapaSecretKey string        `envconfig:"CHAPA_SECRET_KEY"`
	ChapaBaseURL   string        `envconfig:"CHAPA_BASE_URL" default:"https://api.chapa.co/v1"`
	ChapaTimeout   time.Duration `envconfig:"CHAPA_TIMEOUT" default:"15s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CartCacheTTL  time.Duration `envconfig:"CART_CACHE_TTL" default:"15m"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env when present and fills AppEnv from the environment.
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	cfg, err := Parse()
	if err != nil {
		return err
	}
	AppEnv = cfg
	return nil
}

func Parse() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	cfg.ChapaBaseURL = strings.TrimRight(strings.TrimSpace(cfg.ChapaBaseURL), "/")
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
// MONGO_URI is optional when the in-memory store is used.
func (c Config) Validate(inMemory bool) error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !inMemory && strings.TrimSpace(c.MongoURI) == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.ChapaTimeout <= 0 {
		return errors.New("CHAPA_TIMEOUT must be positive")
	}
	return nil
}
