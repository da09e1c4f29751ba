package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"postservice/auth"
	"postservice/config"
	"postservice/handlers"
	"postservice/posts"
	"postservice/storage"
	"postservice/storage/inmemory"
	"postservice/storage/mongostorage"
	"postservice/storage/rediscached"
)

const shutdownTimeout = 5 * time.Second

func Start() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx := context.Background()

	postsStorage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	resolver, err := identityResolver(cfg)
	if err != nil {
		return err
	}

	manager := posts.NewManager(postsStorage, posts.WithConditionalWrites(cfg.ConditionalWrites))
	handler := handlers.NewHTTPHandler(manager)
	r := handlers.NewRouter(handler, resolver, log.Logger)

	server := &http.Server{
		Handler:      cors.AllowAll().Handler(r),
		Addr:         fmt.Sprintf("0.0.0.0:%s", cfg.ServerPort),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Post service is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	var postsStorage storage.Storage
	closers := []func(){}

	switch cfg.StorageMode {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory storage, posts are lost on restart")
		postsStorage = inmemory.NewInMemoryStorage()
	default:
		mongoStorage, err := mongostorage.NewStorage(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := mongoStorage.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to disconnect from mongo")
			}
		})
		postsStorage = mongoStorage
	}

	if cfg.RedisURL != "" {
		client, err := redisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis failed: %w", err)
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close redis client")
			}
		})
		postsStorage = rediscached.NewCachedStorage(postsStorage, client, cfg.CacheTTL)
		log.Info().Dur("ttl", cfg.CacheTTL).Msg("Post cache enabled")
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return postsStorage, closeAll, nil
}

// redisClient accepts a redis:// URL or a bare host:port.
func redisClient(redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func identityResolver(cfg *config.Config) (auth.Resolver, error) {
	switch cfg.AuthMode {
	case config.AuthJWT:
		return auth.NewJWTResolver(cfg.JWTSecret), nil
	case config.AuthHeader:
		return auth.HeaderResolver{}, nil
	default:
		return nil, fmt.Errorf("unexpected auth mode: %s", cfg.AuthMode)
	}
}

func main() {
	if err := Start(); err != nil {
		log.Fatal().Err(err).Msg("Post service stopped")
	}
}
