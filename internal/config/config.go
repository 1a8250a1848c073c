package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		Env                string   `mapstructure:"env"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		Currency      string `mapstructure:"currency"`
	} `mapstructure:"razorpay"`

	Billing struct {
		ScheduleEnabled         bool `mapstructure:"schedule_enabled"`
		ScheduleIntervalMinutes int  `mapstructure:"schedule_interval_minutes"`
	} `mapstructure:"billing"`

	Exports ExportStorage `mapstructure:"exports"`
}

// IsDevelopment reports whether internal error details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Load reads configs/config.yaml (optional), .env (optional) and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()
	return load("configs/config.yaml")
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.env", "production")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("jwt.expiration_hours", 168)
	v.SetDefault("jwt.issuer", "rental-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "rental_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("razorpay.currency", "INR")
	v.SetDefault("billing.schedule_enabled", true)
	v.SetDefault("billing.schedule_interval_minutes", 60)
	// Empty defaults register the keys so EXPORTS_* variables are picked up
	for _, key := range []string{"exports.endpoint", "exports.access_key", "exports.secret_key", "exports.bucket"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("exports.region", "auto")
	v.SetDefault("exports.prefix", "exports")
	v.SetDefault("exports.presign_minutes", 15)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return &cfg, nil
}

// applyEnvOverrides maps the short deployment variable names onto the config.
func applyEnvOverrides(cfg *Config) {
	if env := os.Getenv("NODE_ENV"); env != "" && os.Getenv("SERVER_ENV") == "" {
		cfg.Server.Env = env
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_SERVICE_PORT"); port != "" {
		cfg.Redis.Port = port
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if keyID := os.Getenv("RAZORPAY_KEY_ID"); keyID != "" {
		cfg.Razorpay.KeyID = keyID
	}
	if keySecret := os.Getenv("RAZORPAY_KEY_SECRET"); keySecret != "" {
		cfg.Razorpay.KeySecret = keySecret
	}
	if webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); webhookSecret != "" {
		cfg.Razorpay.WebhookSecret = webhookSecret
	}
}
