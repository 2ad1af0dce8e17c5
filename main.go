package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CM-market/cameroon-made-market/config"
	"github.com/CM-market/cameroon-made-market/controllers"
	"github.com/CM-market/cameroon-made-market/database"
	"github.com/CM-market/cameroon-made-market/idempotency"
	"github.com/CM-market/cameroon-made-market/kafka"
	"github.com/CM-market/cameroon-made-market/logger"
	aws_pkg "github.com/CM-market/cameroon-made-market/pkg/aws"
	"github.com/CM-market/cameroon-made-market/providers"
	"github.com/CM-market/cameroon-made-market/repository"
	"github.com/CM-market/cameroon-made-market/routes"
	"github.com/CM-market/cameroon-made-market/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zapLogger, err := logger.New(getEnvMode())
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepo(db)

	provider := providers.NewFapshiProvider(cfg.FapshiBaseURL, cfg.FapshiAPIUser, cfg.FapshiAPIKey, cfg.FapshiTimeout)

	// Optional idempotency store: without Redis, order creation simply has
	// no key replay.
	var idemStore *idempotency.Store
	if cfg.RedisURL != "" {
		rdb, err := idempotency.NewRedisClient(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idemStore = idempotency.NewStore(rdb, 0)
	}

	var events services.EventPublisher
	var producer *kafka.PaymentEventProducer
	if cfg.KafkaBrokers != "" {
		producer = kafka.NewPaymentEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.PaymentEventTopic)
		defer producer.Close()
		events = producer
	}

	var snsClient aws_pkg.SNSPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			zapLogger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}

	orderService := services.NewOrderService(orderRepo, idemStore, zapLogger)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, provider, events, snsClient, cfg.SNSTopicARN, zapLogger)

	oc := controllers.NewOrderController(orderService)
	pc := controllers.NewPaymentController(paymentService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zapLogger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	routes.Register(r, oc, pc, cfg.JWTSecret)

	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Server failed", zap.Error(err))
	}
}

func getEnvMode() string {
	if gin.Mode() == gin.ReleaseMode {
		return "production"
	}
	return "development"
}
