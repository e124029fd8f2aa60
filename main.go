package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/storefront/cart"
	"github.com/yashrajoria/storefront/config"
	"github.com/yashrajoria/storefront/controllers"
	"github.com/yashrajoria/storefront/database"
	"github.com/yashrajoria/storefront/kafka"
	appLogger "github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/providers"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/routes"
	"github.com/yashrajoria/storefront/sender"
	"github.com/yashrajoria/storefront/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[Storefront] Failed to load config: %v", err)
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// AWS (CloudWatch, SNS, SQS) only when something needs it
	var (
		awsCfg    sdkaws.Config
		logSink   io.Writer
		cwMetrics *aws_pkg.MetricsClient
	)
	if cfg.NeedsAWS() {
		awsCfg, err = aws_pkg.LoadAWSConfig(rootCtx)
		if err != nil {
			log.Fatalf("[Storefront] Failed to load AWS config: %v", err)
		}
	}
	if cfg.CloudWatchEnabled {
		sink, err := aws_pkg.NewCloudWatchLogsClient(rootCtx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("[Storefront] CloudWatch Logs unavailable, logging to console only: %v", err)
		} else {
			logSink = sink
		}
		cwMetrics = aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, true)
	}

	logger, err := appLogger.New(cfg.AppEnv, logSink)
	if err != nil {
		log.Fatalf("[Storefront] Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	var metrics services.MetricsRecorder = services.NopMetrics{}
	var httpMetrics middleware.HTTPMetrics
	if cwMetrics != nil {
		metrics = services.NewAsyncMetrics(cwMetrics)
		httpMetrics = cwMetrics
	}

	// Order store
	mongoDB, err := database.ConnectMongo(rootCtx, cfg.MongoURI, cfg.MongoDB, logger)
	if err != nil {
		logger.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer mongoDB.Close(logger)

	orderRepo := repository.NewOrderRepository(mongoDB.DB)
	if err := orderRepo.EnsureIndexes(rootCtx); err != nil {
		logger.Fatal("Failed to create order indexes", zap.Error(err))
	}

	// Redis: cart sessions and the commit lock (optional)
	var (
		redisClient *redis.Client
		cartRepo    repository.CartRepository
		locker      repository.CommitLocker
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(rootCtx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		cartRepo = repository.NewCartRepository(redisClient, cfg.CartTTL)
		locker = repository.NewCommitLocker(redisClient, cfg.CommitLockTTL)
	} else {
		logger.Warn("REDIS_URL not set: cart sessions disabled, duplicate commits guarded by the unique index only")
	}

	// Postgres: notification log (optional)
	var notificationRepo repository.NotificationRepository = repository.NopNotificationRepository{}
	if cfg.PostgresEnabled() {
		pg, err := database.ConnectPostgres(cfg.PostgresDSN(), logger, &models.NotificationLog{})
		if err != nil {
			logger.Fatal("Postgres connection failed", zap.Error(err))
		}
		defer database.ClosePostgres(pg)
		notificationRepo = repository.NewNotificationRepository(pg)
	}

	// Payment gateway
	stripeProvider := providers.NewStripeProvider(providers.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
		Timeout:       cfg.GatewayTimeout,
	}, logger)

	// Admin email
	var emailSender sender.EmailSender
	if cfg.SMTPEnabled() {
		smtpSender, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			FromName: cfg.StoreName,
		})
		if err != nil {
			logger.Fatal("Failed to init SMTP sender", zap.Error(err))
		}
		emailSender = smtpSender
	} else {
		logger.Warn("SMTP not configured: order emails disabled")
	}
	notificationService, err := services.NewNotificationService(notificationRepo, emailSender, cfg.AdminEmail, metrics, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notification service", zap.Error(err))
	}

	// Event bus
	var events services.EventPublisher = services.NopEventPublisher{}
	switch cfg.EventBus {
	case "sns":
		events = services.NewSNSEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN)
	case "kafka":
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderKafkaTopic, logger)
		defer producer.Close()
		events = services.NewKafkaEventPublisher(producer)
	}

	// Reconciliation queue
	var reconcileQueue *aws_pkg.SQSQueue
	if cfg.ReconcileQueueURL != "" {
		reconcileQueue = aws_pkg.NewSQSQueue(awsCfg, cfg.ReconcileQueueURL, logger)
	}

	pricing := cart.NewPolicy(cfg.FreeShippingThreshold, cfg.FlatShippingFee)

	deps := services.OrderServiceDeps{
		Orders:        orderRepo,
		Payments:      stripeProvider,
		Notifier:      notificationService,
		Events:        events,
		Metrics:       metrics,
		Logger:        logger,
		Pricing:       pricing,
		StrictTotals:  cfg.StrictTotals,
		Currency:      cfg.Currency,
		MaxAmount:     cfg.MaxPaymentAmount,
		NotifyTimeout: 30 * time.Second,
	}
	if locker != nil {
		deps.Locker = locker
	}
	if cartRepo != nil {
		deps.Carts = cartRepo
	}
	if reconcileQueue != nil {
		deps.Reconcile = reconcileQueue
	}
	orderService := services.NewOrderService(deps)
	paymentService := services.NewPaymentService(stripeProvider, cfg.StripePublishableKey, cfg.Currency, cfg.MaxPaymentAmount, metrics, logger)
	authService := services.NewAuthService(cfg.AdminPasswordHash, cfg.AdminPassword, cfg.JWTSecret, cfg.TokenTTL, logger)
	webhookService := services.NewWebhookService(stripeProvider, orderRepo, metrics, logger)

	if reconcileQueue != nil {
		reconciler := services.NewReconciler(orderService, metrics, logger)
		go func() {
			if err := reconcileQueue.StartPolling(rootCtx, reconciler.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reconciliation consumer stopped", zap.Error(err))
			}
		}()
	}

	// Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(httpMetrics, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 5*time.Minute)
	go limiter.Cleanup(rootCtx)
	r.Use(middleware.Timeout(30 * time.Second))

	c := routes.Controllers{
		Config:    controllers.NewConfigController(paymentService),
		Payment:   controllers.NewPaymentController(paymentService),
		Order:     controllers.NewOrderController(orderService),
		Auth:      controllers.NewAuthController(authService),
		Webhook:   controllers.NewWebhookController(webhookService),
		RateLimit: limiter.Middleware(),
	}
	if cartRepo != nil {
		c.Cart = controllers.NewCartController(services.NewCartService(cartRepo, pricing, logger))
	}
	routes.RegisterRoutes(r, c, authService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Storefront service started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := orderService.Wait(shutdownCtx); err != nil {
		logger.Warn("Pending order notifications did not finish", zap.Error(err))
	}

	logger.Info("Storefront service stopped gracefully")
}
