package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/pkg/logger"
)

type UserFetcher interface {
	Fetch(ctx context.Context) (*model.UserRecord, error)
}

type UserWriter interface {
	Create(ctx context.Context, rec *model.UserRecord) error
}

type RecordPublisher interface {
	Publish(ctx context.Context, rec *model.UserRecord) error
}

// IngestStats 单次 ingest 阶段的计数
type IngestStats struct {
	Cycles    int
	Fetched   int
	Inserted  int
	Published int
}

// Ingestor fetch -> 关系库 -> topic，严格串行，一次一条
type Ingestor struct {
	fetcher   UserFetcher
	store     UserWriter
	publisher RecordPublisher
	now       func() time.Time
	stats     IngestStats
}

func NewIngestor(fetcher UserFetcher, store UserWriter, publisher RecordPublisher) *Ingestor {
	return &Ingestor{fetcher: fetcher, store: store, publisher: publisher, now: time.Now}
}

// IngestOnce 执行一轮；取数失败不写库，写库失败不发布。
// 返回 true 表示记录已交给 publisher。
func (in *Ingestor) IngestOnce(ctx context.Context) bool {
	in.stats.Cycles++
	rec, err := in.fetcher.Fetch(ctx)
	if err != nil || rec == nil {
		return false
	}
	in.stats.Fetched++

	if err := in.store.Create(ctx, rec); err != nil {
		logger.Error("Failed to insert into PostgreSQL", zap.String("email", rec.Email), zap.Error(err))
		return false
	}
	in.stats.Inserted++

	if err := in.publisher.Publish(ctx, rec); err != nil {
		logger.Error("Failed to produce to Kafka", zap.String("email", rec.Email), zap.Error(err))
		return false
	}
	in.stats.Published++
	return true
}

// Run 在 window 时长内循环 IngestOnce，截止时间只在每轮开始前检查。
func (in *Ingestor) Run(ctx context.Context, window time.Duration) IngestStats {
	logger.Info("Starting data ingestion...", zap.Duration("window", window))
	start := in.now()
	for in.now().Sub(start) < window {
		if ctx.Err() != nil {
			break
		}
		in.IngestOnce(ctx)
	}
	logger.Info("ingestion window elapsed",
		zap.Int("cycles", in.stats.Cycles),
		zap.Int("fetched", in.stats.Fetched),
		zap.Int("inserted", in.stats.Inserted),
		zap.Int("published", in.stats.Published),
	)
	return in.stats
}

func (in *Ingestor) Stats() IngestStats { return in.stats }
