package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/studyquiz/chat-service/internal/auth"
	"github.com/studyquiz/chat-service/internal/broker"
	"github.com/studyquiz/chat-service/internal/cache"
	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/internal/handler"
	"github.com/studyquiz/chat-service/internal/hub"
	"github.com/studyquiz/chat-service/internal/repository"
	"github.com/studyquiz/chat-service/internal/scheduler"
	"github.com/studyquiz/chat-service/internal/service"
	"github.com/studyquiz/chat-service/pkg/database"
	"github.com/studyquiz/chat-service/pkg/log"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()

	l.Info().Int("port", cfg.Server.Port).Msg("starting chat service")

	// Redis backs both the ephemeral store and the broker channel.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		l.Fatal().Err(err).Msg("failed to connect to redis")
	}
	pingCancel()
	l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.ChatRoom{}, &domain.ChatMessageBatch{}); err != nil {
		l.Fatal().Err(err).Msg("failed to migrate database")
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	msgCache := cache.NewRedisMessageCache(rdb, cfg.Cache.Prefix)
	queryCache := cache.NewQueryCache(rdb, cfg.Cache.HistoryTTL)
	msgBroker := broker.NewRedisBroker(rdb, cfg.Broker.Channel)
	defer msgBroker.Close()

	repo := repository.NewBatchRepository(db)
	chatSvc := service.NewChatService(msgCache, msgBroker, repo, queryCache)

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Complete the fan-out loop: broker deliveries reach every local
	// subscriber regardless of which instance ingested the message.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := msgBroker.Subscribe(ctx, handler.NewBroadcastBridge(wsHub)); err != nil {
		l.Fatal().Err(err).Msg("failed to subscribe to broker channel")
	}
	l.Info().Str("channel", cfg.Broker.Channel).Msg("subscribed to broker channel")

	archiver, err := scheduler.New(cfg.Archive, chatSvc)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create archival scheduler")
	}
	if err := archiver.Start(); err != nil {
		l.Fatal().Err(err).Msg("failed to start archival scheduler")
	}
	defer archiver.Stop()

	verifier := auth.NewVerifier(cfg.Auth)
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, verifier, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(chatSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(l))

	httpHandler.RegisterRoutes(router)
	router.GET("/ws/chat", wsHandler.HandleChat)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("chat service stopped")
}
