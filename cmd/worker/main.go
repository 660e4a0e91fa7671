package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/backup"
	"github.com/noah-isme/backend-kasir/internal/config"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/store"
	"github.com/noah-isme/backend-kasir/internal/store/pgtree"
	"github.com/noah-isme/backend-kasir/internal/store/redistree"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	tree := mustInitTree(ctx, cfg, redisOpts, logger)
	defer func() {
		if err := tree.Close(); err != nil {
			logger.Error().Err(err).Msg("close store")
		}
	}()

	backupSvc, err := backup.NewService(tree, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise backup service")
	}

	clientOpt := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	srv := asynq.NewServer(clientOpt, asynq.Config{
		Concurrency: 2,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(backup.TypeExport, backupSvc.HandleExport)

	scheduler := asynq.NewScheduler(clientOpt, nil)
	cron := envOrDefault("BACKUP_CRON", "0 2 * * *")
	if _, err := scheduler.Register(cron, backup.NewExportTask()); err != nil {
		logger.Fatal().Err(err).Str("cron", cron).Msg("register backup schedule")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	go func() {
		<-ctx.Done()
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	logger.Info().Str("cron", cron).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func mustInitTree(ctx context.Context, cfg *config.Config, redisOpts *redis.Options, logger zerolog.Logger) store.Tree {
	if cfg.StoreDriver == config.DriverPostgres {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		tree, err := pgtree.New(pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise postgres store")
		}
		return tree
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	tree, err := redistree.New(redisClient, redistree.Options{Prefix: "kasir"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise redis store")
	}
	return tree
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
