package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/auth"
	c "github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/cache"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/catalog"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/config"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/feed"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/httpapi"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/poller"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/realtime"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	s "github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx := context.Background()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		log.WithError(err).Fatal("failed to create indexes")
	}
	repo := repository.NewMongoRepository(mongoDB)
	products := catalog.NewMongoCatalog(mongoDB)
	log.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")

	// Redis: cart cache and the hardware scan feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("Redis connection failed")
	}
	log.Info("Redis ping succeeded")

	cartCache := c.NewRedisCache(redisClient)
	scanFeed := feed.NewRedisFeed(redisClient, log)

	service := s.NewCartService(repo, cartCache, products, log)

	// Realtime
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	hub := realtime.NewHub(log)
	wsHandler := realtime.NewHandler(verifier, hub, service, service, scanFeed, log)

	api := httpapi.NewAPI(service, log)
	router := httpapi.NewRouter(api, wsHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(router, "smart-retail"),
	}

	// Checkout consumer releases carts once payment completes
	var checkoutPoller *poller.Poller
	pollerCtx, pollerCancel := context.WithCancel(ctx)
	defer pollerCancel()
	if len(cfg.KafkaBrokers) > 0 {
		checkoutPoller = poller.NewPoller(repo, cartCache, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
		go checkoutPoller.Run(pollerCtx)
		log.WithField("topic", cfg.KafkaTopic).Info("checkout consumer started")
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("smart-retail backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown failed")
	}
	pollerCancel()
	if checkoutPoller != nil {
		checkoutPoller.Close()
	}
	mongoDB.Client().Disconnect(ctx)
	log.Info("stopped")
}
