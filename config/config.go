package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"

	QueueMemory = "memory"
	QueueSQS    = "sqs"

	EventsNone  = "none"
	EventsSNS   = "sns"
	EventsKafka = "kafka"

	DBCredentialsSecret = "checkout/DB_CREDENTIALS"
	RazorpaySecret      = "checkout/RAZORPAY"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Env  string
	Port string

	StoreBackend     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	MongoURI         string
	MongoDatabase    string

	RedisURL          string
	OrderListCacheTTL time.Duration

	RazorpayKeyID     string
	RazorpayKeySecret string
	DefaultCurrency   string
	JWTSecret         string

	ProductServiceURL string
	ProductsTable     string

	NotificationQueue     string
	NotificationQueueURL  string
	NotificationWorkers   int
	NotificationQueueSize int
	SMTPHost              string
	SMTPPort              string
	SMTPUsername          string
	SMTPPassword          string
	SMTPFrom              string

	EventsBackend       string
	OrderEventsTopicARN string
	KafkaBrokers        []string
	KafkaTopic          string

	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UseSecrets         bool
	CloudWatchEnabled  bool
	CloudWatchLogGroup string
	MetricsNamespace   string

	AllowedOrigins []string
}

// jsonSecretGetter is the part of the Secrets Manager client LoadConfig uses.
type jsonSecretGetter interface {
	GetJSONSecret(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from .env (when present) and environment
// variables, then applies Secrets Manager overrides when AWS_USE_SECRETS=true.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()
	if cfg.UseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		if err != nil {
			return nil, err
		}
		if err := applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8092"),

		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "checkout"),

		RedisURL:          os.Getenv("REDIS_URL"),
		OrderListCacheTTL: getDuration("ORDER_LIST_CACHE_TTL", 24*time.Hour),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		DefaultCurrency:   strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),

		ProductServiceURL: os.Getenv("PRODUCT_SERVICE_URL"),
		ProductsTable:     os.Getenv("PRODUCTS_TABLE"),

		NotificationQueue:     strings.ToLower(getEnv("NOTIFICATION_QUEUE", QueueMemory)),
		NotificationQueueURL:  os.Getenv("NOTIFICATION_QUEUE_URL"),
		NotificationWorkers:   getInt("NOTIFICATION_WORKERS", 2),
		NotificationQueueSize: getInt("NOTIFICATION_QUEUE_SIZE", 100),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getEnv("SMTP_PORT", "587"),
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),

		EventsBackend:       strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getEnv("KAFKA_ORDER_EVENTS_TOPIC", "order-events"),

		AWSRegion:          getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpoint:        os.Getenv("AWS_ENDPOINT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		UseSecrets:         os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled:  os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup: getEnv("CLOUDWATCH_LOG_GROUP", "/checkout-service"),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "Checkout"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")),
	}
}

// applySecrets overrides database and Razorpay credentials with values from
// Secrets Manager. A missing DB secret is tolerated for the mongo backend.
func applySecrets(ctx context.Context, cfg *Config, sm jsonSecretGetter) error {
	if db, err := sm.GetJSONSecret(ctx, DBCredentialsSecret); err == nil {
		override(&cfg.PostgresUser, db["POSTGRES_USER"])
		override(&cfg.PostgresPassword, db["POSTGRES_PASSWORD"])
		override(&cfg.PostgresDB, db["POSTGRES_DB"])
		override(&cfg.PostgresHost, db["POSTGRES_HOST"])
		override(&cfg.PostgresPort, db["POSTGRES_PORT"])
		override(&cfg.MongoURI, db["MONGO_URI"])
	} else if cfg.StoreBackend == StoreBackendPostgres {
		return fmt.Errorf("load %s: %w", DBCredentialsSecret, err)
	}

	rp, err := sm.GetJSONSecret(ctx, RazorpaySecret)
	if err != nil {
		return fmt.Errorf("load %s: %w", RazorpaySecret, err)
	}
	override(&cfg.RazorpayKeyID, rp["RAZORPAY_KEY_ID"])
	override(&cfg.RazorpayKeySecret, rp["RAZORPAY_KEY_SECRET"])
	override(&cfg.JWTSecret, rp["JWT_SECRET"])
	return nil
}

// Validate checks that every value required by the selected backends is set.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch c.StoreBackend {
	case StoreBackendPostgres:
		require("POSTGRES_USER", c.PostgresUser)
		require("POSTGRES_PASSWORD", c.PostgresPassword)
		require("POSTGRES_DB", c.PostgresDB)
	case StoreBackendMongo:
		require("MONGO_URI", c.MongoURI)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	require("RAZORPAY_KEY_ID", c.RazorpayKeyID)
	require("RAZORPAY_KEY_SECRET", c.RazorpayKeySecret)

	switch c.NotificationQueue {
	case QueueMemory:
	case QueueSQS:
		require("NOTIFICATION_QUEUE_URL", c.NotificationQueueURL)
	default:
		return fmt.Errorf("unknown NOTIFICATION_QUEUE %q", c.NotificationQueue)
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsSNS:
		require("ORDER_EVENTS_TOPIC_ARN", c.OrderEventsTopicARN)
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			missing = append(missing, "KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NeedsAWS reports whether any enabled component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.NotificationQueue == QueueSQS ||
		c.EventsBackend == EventsSNS ||
		c.ProductsTable != "" ||
		c.CloudWatchEnabled
}

func (c *Config) AWSOptions() awspkg.Options {
	return awspkg.Options{
		Region:          c.AWSRegion,
		Endpoint:        c.AWSEndpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// PostgresDSN builds the lib/pq style connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
