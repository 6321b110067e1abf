package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"messenger/api/handlers"
	"messenger/api/middleware"
	"messenger/api/routes"
	"messenger/config"
	"messenger/db"
	"messenger/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	// База учетных записей (PostgreSQL)
	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the accounts database: " + err.Error())
	}

	// Хранилище диалогов и сообщений (Cassandra)
	if err := db.ConnectCassandra(); err != nil {
		panic("Failed to connect to Cassandra: " + err.Error())
	}
	defer db.CloseCassandra()

	// Кеш пар диалогов. Без Redis резолвер работает напрямую по хранилищу
	if err := services.InitRedis(); err != nil {
		log.Printf("Warning: Redis initialization failed, continuing without cache: %v", err)
	}
	defer services.CloseRedis()

	// Live-доставка: RabbitMQ -> WebSocket. Без брокера остается прямой push
	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("Warning: RabbitMQ initialization failed, continuing with direct delivery: %v", err)
	} else {
		if err := services.StartMessageEventConsumer(context.Background(), "messenger_ws_push"); err != nil {
			log.Printf("Warning: failed to start message event consumer: %v", err)
		}
	}
	defer services.CloseRabbitMQ()

	conversationService := services.NewConversationService(db.Cassandra)
	messageService := services.NewMessageService(db.Cassandra, conversationService)

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("messenger"))

	routes.PublicApi(router,
		handlers.NewConversationHandlers(conversationService),
		handlers.NewMessageHandlers(messageService),
	)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if addr == ":0" {
		addr = ":8080"
	}
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
