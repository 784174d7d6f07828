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

	"github.com/dmca-notices/internal/application/notice"
	"github.com/dmca-notices/internal/application/session"
	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/infrastructure/dynamo"
	jwtinfra "github.com/dmca-notices/internal/infrastructure/jwt"
	"github.com/dmca-notices/internal/infrastructure/mailqueue"
	redisinfra "github.com/dmca-notices/internal/infrastructure/redis"
	s3infra "github.com/dmca-notices/internal/infrastructure/s3"
	"github.com/dmca-notices/internal/infrastructure/smtp"
	"github.com/dmca-notices/internal/infrastructure/sns"
	"github.com/dmca-notices/internal/pkg/dmca"
	"github.com/dmca-notices/internal/pkg/logger"
	transporthttp "github.com/dmca-notices/internal/transport/http"
	"github.com/dmca-notices/internal/transport/http/handler"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		fatal("dynamodb client", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	if cfg.ProvidersSeedFile != "" {
		seedProviders(ctx, dynamoClient, cfg)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		fatal("jwt provider", err)
	}

	checks := map[string]handler.Check{
		"dynamodb": dynamo.TableReady(dynamoClient, cfg.DynamoTables.Notices),
	}

	// Session store: Redis when configured, otherwise process memory.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			fatal("redis", err)
		}
		defer rdb.Close()
		sessions = redisinfra.NewSessionStore(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		slog.Warn("REDIS_ADDR not set, sessions are kept in memory")
		sessions = session.NewMemoryStore()
	}

	compiler, err := dmca.NewCompiler(nil)
	if err != nil {
		fatal("notice templates", err)
	}

	mail, err := mailqueue.New(smtp.NewMailer(cfg), cfg.MailQueueSize, cfg.MailWorkers)
	if err != nil {
		fatal("mail queue", err)
	}
	mail.Start()

	deps := &transporthttp.Deps{
		UserRepo:     dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		NoticeRepo:   dynamo.NewNoticeRepo(dynamoClient, cfg.DynamoTables.Notices),
		ProviderRepo: dynamo.NewProviderRepo(dynamoClient, cfg.DynamoTables.Providers),
		SessionStore: sessions,
		Compiler:     compiler,
		Mail:         mail,
		Archive:      newArchive(ctx, cfg),
		Events:       newEvents(ctx, cfg),
		JWTProvider:  jwtProvider,
		HealthChecks: checks,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	if err := mail.Close(shutdownCtx); err != nil {
		slog.Warn("mail queue not drained", "err", err)
	}
	slog.Info("server stopped")
}

// newArchive returns nil when no bucket is configured or the client cannot
// be built; archiving is optional.
func newArchive(ctx context.Context, cfg *config.Config) notice.Archive {
	if cfg.S3BucketName == "" {
		return nil
	}
	client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		slog.Warn("notice archive disabled", "err", err)
		return nil
	}
	return s3infra.NewStore(client, cfg.S3BucketName)
}

func newEvents(ctx context.Context, cfg *config.Config) notice.EventPublisher {
	if cfg.SNSNoticeTopicARN == "" {
		return nil
	}
	p, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		slog.Warn("notice events disabled", "err", err)
		return nil
	}
	return p
}

func seedProviders(ctx context.Context, client dynamo.API, cfg *config.Config) {
	f, err := os.Open(cfg.ProvidersSeedFile)
	if err != nil {
		fatal("provider seed", err)
	}
	defer f.Close()
	added, err := dynamo.SeedProviders(ctx, client, cfg.DynamoTables.Providers, f)
	if err != nil {
		fatal("provider seed", err)
	}
	slog.Info("providers seeded", "file", cfg.ProvidersSeedFile, "added", added)
}

func fatal(what string, err error) {
	slog.Error("startup failed", "component", what, "err", err)
	os.Exit(1)
}
