// Package config provides the structures and loader for the application
// configuration.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level configuration shared by the API server and the
// notification-sender worker.
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	FrontendURL             string `yaml:"frontend_url"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Stripe                  `yaml:"stripe"`
	Retrieval               `yaml:"retrieval"`
	SMTPConnection          `yaml:"smtp_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection holds the settings for the conversation cache.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken holds the token signing settings. Reset tokens use their own
// secret so a leaked session secret cannot mint password reset links.
type JWTToken struct {
	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	ResetSecretKey string        `yaml:"reset_secret_key"`
	ResetTokenTTL  time.Duration `yaml:"reset_token_ttl"`
}

// Stripe holds the billing provider credentials and the configured prices.
type Stripe struct {
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	MonthlyPriceID string `yaml:"monthly_price_id"`
	YearlyPriceID  string `yaml:"yearly_price_id"`
}

// Retrieval holds the settings for the question-answering pipeline.
type Retrieval struct {
	LLMAPIKey         string `yaml:"llm_api_key"`
	LLMBaseURL        string `yaml:"llm_base_url"`
	LLMModel          string `yaml:"llm_model"`
	EmbeddingModel    string `yaml:"embedding_model"`
	QdrantURL         string `yaml:"qdrant_url"`
	QdrantAPIKey      string `yaml:"qdrant_api_key"`
	SearchLimit       int    `yaml:"search_limit"`
	WorkerPoolSize    int    `yaml:"worker_pool_size"`
	CollectionEnglish string `yaml:"collection_english"`
	CollectionItalian string `yaml:"collection_italian"`
}

// SMTPConnection holds the outbound mail settings.
type SMTPConnection struct {
	Host     string `yaml:"smtp_host"`
	Port     string `yaml:"smtp_port"`
	User     string `yaml:"smtp_user"`
	Password string `yaml:"smtp_password"`
}

// RabbitMQ holds the mail queue connection settings.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay"`
}

// MustLoad loads the config from the file named by CONFIG_PATH, terminating
// the process on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
