package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-signup-presence/internal/application/presence"
	"github.com/go-signup-presence/internal/config"
	"github.com/go-signup-presence/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-signup-presence/internal/infrastructure/jwt"
	mongoinfra "github.com/go-signup-presence/internal/infrastructure/mongo"
	redisinfra "github.com/go-signup-presence/internal/infrastructure/redis"
	s3infra "github.com/go-signup-presence/internal/infrastructure/s3"
	"github.com/go-signup-presence/internal/infrastructure/smtp"
	"github.com/go-signup-presence/internal/infrastructure/sns"
	"github.com/go-signup-presence/internal/logging"
	transporthttp "github.com/go-signup-presence/internal/transport/http"
	"github.com/go-signup-presence/internal/transport/http/handler"
	"github.com/go-signup-presence/internal/transport/ws"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const usersCollection = "users"

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	checks := map[string]handler.Pinger{}
	var closers []func(context.Context)

	var dynamoClient *dynamodb.Client
	dynamoOnce := func() (*dynamodb.Client, error) {
		if dynamoClient != nil {
			return dynamoClient, nil
		}
		c, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamodb client: %w", err)
		}
		dynamoClient = c
		return c, nil
	}

	// Durable user store.
	var users transporthttp.UserRepository
	switch cfg.StoreBackend {
	case "mongo":
		client, err := mongoinfra.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		closers = append(closers, func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				slog.Warn("mongo disconnect failed", "err", err)
			}
		})
		repo := mongoinfra.NewUserRepo(client.Database(cfg.MongoDatabase), usersCollection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		users = repo
		checks["store"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
	case "dynamo":
		client, err := dynamoOnce()
		if err != nil {
			return err
		}
		dynamo.BootstrapUsers(ctx, client, cfg.DynamoTables)
		users = dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		checks["store"] = describeTable(client, cfg.DynamoTables.Users)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// TTL cache for pending registrations and codes.
	var cache transporthttp.Cache
	switch cfg.CacheBackend {
	case "redis":
		rdb, err := redisinfra.NewClient(cfg)
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) {
			if err := rdb.Close(); err != nil {
				slog.Warn("redis close failed", "err", err)
			}
		})
		rc := redisinfra.NewCache(rdb)
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("redis not reachable at startup", "err", err)
		}
		cache = rc
		checks["cache"] = rc
	case "dynamo":
		client, err := dynamoOnce()
		if err != nil {
			return err
		}
		dynamo.BootstrapCache(ctx, client, cfg.DynamoTables)
		cache = dynamo.NewCache(client, cfg.DynamoTables.Cache)
		checks["cache"] = describeTable(client, cfg.DynamoTables.Cache)
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	// JWT provider (optional; login returns no token without keys).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("JWT provider not available", "err", err)
	}

	var smsSender sns.SMSSender = sns.LogSender{Logger: slog.Default()}
	if cfg.SNSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			smsSender = sender
		} else {
			slog.Warn("SNS sender not available, logging codes instead", "err", err)
		}
	}

	var staticStore *s3infra.Store
	if cfg.StaticS3Bucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		staticStore = s3infra.NewStore(client, cfg.StaticS3Bucket)
	}

	roster := presence.NewRoster()
	hub := ws.NewHub(roster, cfg.AllowedOrigins)
	roster.Subscribe(hub)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:    users,
		Cache:       cache,
		Mailer:      smtp.NewMailer(cfg),
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
		StaticStore: staticStore,
		Roster:      roster,
		Hub:         hub,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "cache", cfg.CacheBackend, "expose_otp", cfg.ExposeOTP)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	roster.Close()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](shutdownCtx)
	}
	slog.Info("server stopped")
	return nil
}

func describeTable(client *dynamodb.Client, table string) handler.Pinger {
	return handler.PingFunc(func(ctx context.Context) error {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
		return err
	})
}
