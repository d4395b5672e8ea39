package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/cache"
	"checkout-service/catalog"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/events"
	"checkout-service/logger"
	"checkout-service/middleware"
	"checkout-service/notification"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/providers"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/sender"
	"checkout-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "checkout-service"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var awsCfg sdkaws.Config
	if cfg.NeedsAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
	}

	var cwWriter *awspkg.CloudWatchLogsWriter
	if cfg.CloudWatchEnabled {
		cwWriter, err = awspkg.NewCloudWatchLogsWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to stdout only: %v", err)
		}
	}
	var zlog *zap.Logger
	if cwWriter != nil {
		zlog, err = logger.New(cfg.Env, cwWriter)
	} else {
		zlog, err = logger.New(cfg.Env, nil)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	metricsClient := awspkg.NewDisabledMetricsClient()
	if cfg.CloudWatchEnabled {
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, true)
	}

	// Order store
	orderRepo, notificationRepo, db := newOrderStore(ctx, cfg, zlog)
	defer database.Close(db) //nolint:errcheck

	listCache := newOrderListCache(ctx, cfg, zlog)
	cachedRepo := repository.NewCachedOrderRepository(orderRepo, listCache, zlog)

	// Notification side channel
	emailSender := newEmailSender(cfg, zlog)
	processor, err := notification.NewProcessor(emailSender, notificationRepo, cfg.DefaultCurrency, zlog)
	if err != nil {
		zlog.Fatal("Failed to init notification processor", zap.Error(err))
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	handler := processor.Process
	if cfg.NotificationQueue == config.QueueSQS {
		sqsQueue := notification.NewSQSQueue(awspkg.NewSQSClient(awsCfg, cfg.NotificationQueueURL, zlog), zlog)
		handler = sqsQueue.Send
		go func() {
			if err := sqsQueue.Consume(workerCtx, processor.Process); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("Notification consumer stopped", zap.Error(err))
			}
		}()
	}
	queue := notification.NewChannelQueue(cfg.NotificationQueueSize, cfg.NotificationWorkers, handler, zlog)
	queue.Start(workerCtx)
	notifier := notification.NewNotifier(queue, metricsClient, zlog)

	// Services
	publisher := newEventPublisher(cfg, awsCfg, zlog)
	defer publisher.Close() //nolint:errcheck

	gateway := providers.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, zlog)
	orderService := services.NewOrderService(cachedRepo, newCatalog(cfg, awsCfg), publisher, metricsClient, zlog)
	paymentService := services.NewPaymentService(gateway, cachedRepo, notifier, publisher, metricsClient, cfg.DefaultCurrency, zlog)

	// HTTP
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware())
	r.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterRoutes(r,
		controllers.NewOrderController(orderService),
		controllers.NewPaymentController(paymentService),
		[]byte(cfg.JWTSecret))
	routes.RegisterNotificationRoutes(r,
		controllers.NewNotificationController(notificationRepo, zlog),
		[]byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	zlog.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreBackend),
		zap.String("notification_queue", cfg.NotificationQueue),
		zap.String("events", cfg.EventsBackend))
	<-quit
	zlog.Info("Shutting down checkout service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown error", zap.Error(err))
	}

	// drain pending notifications before the workers lose their context
	queue.Close()
	stopWorkers()

	zlog.Info("Checkout service stopped")
}

// newOrderStore returns the configured order repository. The notification
// log repository and the gorm handle are nil for the mongo backend.
func newOrderStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (repository.OrderRepository, repository.NotificationRepository, *gorm.DB) {
	if cfg.StoreBackend == config.StoreBackendMongo {
		mdb, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, zlog)
		if err != nil {
			zlog.Fatal("MongoDB connection failed", zap.Error(err))
		}
		repo, err := repository.NewMongoOrderRepository(ctx, mdb)
		if err != nil {
			zlog.Fatal("MongoDB index setup failed", zap.Error(err))
		}
		return repo, nil, nil
	}

	db, err := database.ConnectPostgres(cfg.PostgresDSN(), zlog)
	if err != nil {
		zlog.Fatal("DB connection failed", zap.Error(err))
	}
	return repository.NewGormOrderRepository(db), repository.NewNotificationRepository(db), db
}

func newOrderListCache(ctx context.Context, cfg *config.Config, zlog *zap.Logger) cache.OrderListCache {
	if cfg.RedisURL == "" {
		return cache.NewMemoryOrderListCache(cfg.OrderListCacheTTL)
	}
	client, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warn("Redis unavailable, using in-process order list cache", zap.Error(err))
		return cache.NewMemoryOrderListCache(cfg.OrderListCacheTTL)
	}
	zlog.Info("Connected to Redis")
	return cache.NewRedisOrderListCache(client, cfg.OrderListCacheTTL, zlog)
}

func newEmailSender(cfg *config.Config, zlog *zap.Logger) sender.EmailSender {
	if cfg.SMTPHost == "" {
		zlog.Warn("SMTP_HOST not set, confirmation emails will only be logged")
		return sender.NewLogSender(zlog)
	}
	s, err := sender.NewSMTPSender(sender.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		zlog.Fatal("Failed to init SMTP sender", zap.Error(err))
	}
	return s
}

func newEventPublisher(cfg *config.Config, awsCfg sdkaws.Config, zlog *zap.Logger) events.Publisher {
	switch cfg.EventsBackend {
	case config.EventsSNS:
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN, zlog)
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, zlog)
	default:
		return events.NoopPublisher{}
	}
}

// newCatalog prefers the products table when one is configured.
func newCatalog(cfg *config.Config, awsCfg sdkaws.Config) catalog.ProductCatalog {
	switch {
	case cfg.ProductsTable != "":
		return catalog.NewDynamoCatalog(dynamodb.NewFromConfig(awsCfg), cfg.ProductsTable)
	case cfg.ProductServiceURL != "":
		return catalog.NewHTTPCatalog(cfg.ProductServiceURL)
	default:
		return nil
	}
}
