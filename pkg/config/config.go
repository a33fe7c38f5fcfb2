package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

var Empty = new(Config)

type Config struct {
	AppEnv       string  `envconfig:"APP_ENV" default:"local"`
	Port         int     `envconfig:"PORT" default:"8080"`
	SentryDSN    string  `envconfig:"SENTRY_DSN"`
	AllowOrigins string  `envconfig:"ALLOW_ORIGINS" default:"*"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`
	RateLimit    float64 `envconfig:"RATE_LIMIT" default:"20"`

	DB struct {
		Driver       string `envconfig:"DB_DRIVER" default:"postgres"`
		Name         string `envconfig:"DB_NAME"`
		Host         string `envconfig:"DB_HOST"`
		Port         int    `envconfig:"DB_PORT" default:"5432"`
		User         string `envconfig:"DB_USER"`
		Pass         string `envconfig:"DB_PASS"`
		EnableSSL    bool   `envconfig:"ENABLE_SSL"`
		MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	}
	DynamoDB struct {
		Region        string `envconfig:"DDB_REGION"`
		Endpoint      string `envconfig:"DDB_ENDPOINT"`
		AccessKey     string `envconfig:"DDB_ACCESS_KEY"`
		SecretKey     string `envconfig:"DDB_SECRET_KEY"`
		SessionToken  string `envconfig:"DDB_SESSION_TOKEN"`
		ContactsTable string `envconfig:"DDB_CONTACTS_TABLE" default:"contacts"`
	}
	Tracing struct {
		JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"`
		ServiceName    string `envconfig:"SERVICE_NAME" default:"agenda"`
	}
}

func LoadConfig() (*Config, error) {
	// load default .env file, ignore the error
	_ = godotenv.Load()

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("load config error: %v", err)
	}

	if cfg.DB.Driver != DriverPostgres && cfg.DB.Driver != DriverDynamoDB {
		return nil, fmt.Errorf("load config error: unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}
