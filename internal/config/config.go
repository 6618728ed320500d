// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

type Config struct {
	Port        string
	DatabaseURL string

	MongoDatabase string
	AWSRegion     string
	AWSEndpoint   string

	MetricsEnabled    bool
	MetricsToken      string
	CreateLimitPerMin int

	KafkaBrokers  []string
	KafkaTopic    string
	RabbitMQURL   string
	RabbitMQQueue string
	SQSQueueURL   string
}

// Load reads ENV_FILE (default .env) if it exists, then the process
// environment. Variables already set in the environment win over the file.
func Load() (Config, error) {
	envFile := viper.New()
	envFile.SetDefault("ENV_FILE", ".env")
	envFile.AutomaticEnv()

	if err := godotenv.Load(envFile.GetString("ENV_FILE")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	return FromViper(viper.New())
}

// FromViper fills a Config from v, applying defaults and reading the
// environment.
func FromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("MONGO_DATABASE", "orders")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("CREATE_ORDER_LIMIT_PER_MIN", 0)
	v.SetDefault("KAFKA_TOPIC", "orders.saved")
	v.SetDefault("RABBITMQ_QUEUE", "order_queue")
	v.AutomaticEnv()

	cfg := Config{
		Port:              v.GetString("PORT"),
		DatabaseURL:       strings.TrimSpace(v.GetString("DATABASE_URL")),
		MongoDatabase:     v.GetString("MONGO_DATABASE"),
		AWSRegion:         v.GetString("AWS_REGION"),
		AWSEndpoint:       v.GetString("AWS_ENDPOINT_OVERRIDE"),
		MetricsEnabled:    v.GetBool("METRICS_ENABLED"),
		MetricsToken:      v.GetString("METRICS_TOKEN"),
		CreateLimitPerMin: v.GetInt("CREATE_ORDER_LIMIT_PER_MIN"),
		KafkaBrokers:      splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:     v.GetString("RABBITMQ_QUEUE"),
		SQSQueueURL:       v.GetString("ORDERS_QUEUE_URL"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}
	if cfg.CreateLimitPerMin < 0 {
		return Config{}, fmt.Errorf("CREATE_ORDER_LIMIT_PER_MIN must be >= 0, got %d", cfg.CreateLimitPerMin)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
