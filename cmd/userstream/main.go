package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/internal/randomuser"
	"github.com/d60-Lab/userstream/internal/repository"
	"github.com/d60-Lab/userstream/internal/service"
	"github.com/d60-Lab/userstream/pkg/cassandra"
	"github.com/d60-Lab/userstream/pkg/database"
	"github.com/d60-Lab/userstream/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return
	}
	if _, err := logger.Init(cfg.Log.Level, cfg.Log.Dev); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !ingest(ctx, cfg) {
		return
	}
	consume(ctx, cfg)
}

// ingest 连接关系库失败时返回 false，进程直接结束
func ingest(ctx context.Context, cfg *config.Config) bool {
	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", zap.Error(fmt.Errorf("%w: %v", model.ErrConnectFailed, err)))
		return false
	}
	logger.Info("Connected to PostgreSQL successfully!", zap.String("host", cfg.Postgres.Host), zap.String("table", cfg.Postgres.QualifiedTable()))

	repo := repository.NewUserRepository(db, cfg.Postgres)
	defer repo.Close()
	if cfg.Postgres.AutoMigrate {
		if err := repo.InitSchema(ctx); err != nil {
			logger.Error("postgres schema init failed", zap.Error(err))
			return false
		}
	}

	publisher := service.NewPublisher(service.NewKafkaWriter(cfg.Kafka), cfg.Kafka)
	fetcher := randomuser.NewClient(cfg.API)

	service.NewIngestor(fetcher, repo, publisher).Run(ctx, cfg.Pipeline.IngestWindow)

	if err := publisher.Close(); err != nil {
		logger.Warn("producer close failed", zap.Error(err))
	}
	logger.Info("Stopping producer.")
	return true
}

func consume(ctx context.Context, cfg *config.Config) {
	if ctx.Err() != nil {
		return
	}
	if cfg.Cassandra.CreateSchema {
		if err := ensureCassandraSchema(ctx, cfg.Cassandra); err != nil {
			logger.Error("cassandra schema init failed", zap.Error(err))
			return
		}
	}

	session, err := cassandra.NewSession(cfg.Cassandra)
	if err != nil {
		logger.Error("Failed to connect to Cassandra", zap.Error(fmt.Errorf("%w: %v", model.ErrConnectFailed, err)))
		return
	}
	defer session.Close()
	logger.Info("Connected to Cassandra successfully!", zap.Strings("hosts", cfg.Cassandra.Hosts), zap.String("keyspace", cfg.Cassandra.Keyspace))

	reader := service.NewKafkaReader(cfg.Kafka)
	defer reader.Close()

	store := repository.NewCreatedUserRepository(session, cfg.Cassandra.Keyspace, cfg.Cassandra.Table)
	if err := service.NewReplicator(reader, store, cfg.Kafka.CommitOffsets).Run(ctx); err != nil {
		logger.Error("consumer stopped with error", zap.Error(err))
	}
}

func ensureCassandraSchema(ctx context.Context, cfg config.CassandraConfig) error {
	session, err := cassandra.NewSystemSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()
	return repository.EnsureSchema(ctx, session, cfg.Keyspace, cfg.Table)
}
