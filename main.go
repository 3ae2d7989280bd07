package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/db"
	"messenger-service/internal/delivery"
	"messenger-service/internal/handlers"
	"messenger-service/internal/lifecycle"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/quota"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, "messenger-service", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "messenger.events")

	publisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", "messenger-service", getEnv("ENVIRONMENT", "dev"))

	if amqpURL != "" {
		if wsPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange); err != nil {
			log.Printf("ws event publishing disabled: %v", err)
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)

	allowance, err := strconv.Atoi(getEnv("DAILY_MESSAGE_LIMIT", "10"))
	if err != nil {
		log.Fatalf("invalid DAILY_MESSAGE_LIMIT: %v", err)
	}

	ledger := quota.NewLedger(userRepo, allowance)
	registry := presence.NewRegistry()
	coordinator := delivery.NewCoordinator(messageRepo, groupRepo, ledger, registry)
	relay := delivery.NewRelay(registry)
	lifecycleManager := lifecycle.NewManager(messageRepo, groupRepo, registry)

	secretKey := []byte(getEnv("JWT_SECRET", "dev-secret"))

	messageHandler := handlers.NewMessageHandler(coordinator, lifecycleManager, messageRepo, groupRepo, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo)
	dispatcher := ws.NewDispatcher(registry, coordinator, relay)
	wsHandler := ws.NewHandler(registry, dispatcher, secretKey)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(secretKey)

	router.POST("/messages", authMiddleware, messageHandler.SendMessage)
	router.POST("/messages/:id/forward", authMiddleware, messageHandler.ForwardMessage)
	router.GET("/messages/:id", authMiddleware, messageHandler.GetMessages)
	router.PUT("/messages/delete-for-me/:id", authMiddleware, messageHandler.DeleteForMe)
	router.PUT("/messages/delete-everyone/:id", authMiddleware, messageHandler.DeleteForEveryone)
	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
