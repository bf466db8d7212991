package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/pkg/logger"
)

// MessageReader *kafka.Reader 满足该接口
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CreatedUserWriter interface {
	Insert(ctx context.Context, row *model.CreatedUserRow) error
}

// NewKafkaReader 消费组从最早 offset 开始读。FetchMessage 不会提交 offset。
func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
}

// Replicator 订阅 topic 并把每条记录写入宽表（第二份、非事务性的副本）
type Replicator struct {
	reader MessageReader
	store  CreatedUserWriter
	// commit 为 false 时从不提交 offset，重启后整条 topic 重放
	commit bool
	// retryBackoff 拉取失败后的等待时间
	retryBackoff time.Duration

	received    atomic.Int64
	inserted    atomic.Int64
	failed      atomic.Int64
	regenerated atomic.Int64
}

func NewReplicator(reader MessageReader, store CreatedUserWriter, commitOffsets bool) *Replicator {
	return &Replicator{reader: reader, store: store, commit: commitOffsets, retryBackoff: time.Second}
}

var errEmptyMessage = errors.New("empty message value")

// Run 阻塞消费直到 ctx 取消或 reader 关闭。拉取失败只记录日志并重试。
func (r *Replicator) Run(ctx context.Context) error {
	logger.Info("consumer started", zap.Bool("commit_offsets", r.commit))
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				r.logStop()
				return nil
			}
			logger.Error("kafka fetch failed, retrying", zap.Error(err), zap.Duration("backoff", r.retryBackoff))
			select {
			case <-ctx.Done():
				r.logStop()
				return nil
			case <-time.After(r.retryBackoff):
			}
			continue
		}
		r.handle(ctx, msg)
	}
}

func (r *Replicator) handle(ctx context.Context, msg kafka.Message) {
	r.received.Add(1)

	um, err := decodeUserMessage(msg.Value)
	if err != nil {
		r.failed.Add(1)
		logger.Error("undecodable message skipped", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	logger.Info("Received from Kafka", zap.String("email", um.Email))

	row, regenerated, err := model.NewCreatedUserRow(um)
	if err != nil {
		r.failed.Add(1)
		logger.Error("Failed to insert into Cassandra.", zap.String("email", um.Email), zap.Error(err))
		return
	}
	if regenerated {
		r.regenerated.Add(1)
		logger.Warn("message id is not a uuid, generated a new one", zap.String("id", um.ID), zap.String("new_id", row.ID.String()))
	}

	if err := r.store.Insert(ctx, &row); err != nil {
		r.failed.Add(1)
		logger.Error("Failed to insert into Cassandra.", zap.String("email", um.Email), zap.Error(err))
		return
	}
	r.inserted.Add(1)
	logger.Info("Inserted into Cassandra", zap.String("email", um.Email))

	if r.commit {
		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			logger.Warn("offset commit failed", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// decodeUserMessage 空值与 JSON null 都视为无法解码
func decodeUserMessage(value []byte) (*model.UserMessage, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return nil, errEmptyMessage
	}
	var um *model.UserMessage
	if err := json.Unmarshal(value, &um); err != nil {
		return nil, err
	}
	if um == nil {
		return nil, errEmptyMessage
	}
	return um, nil
}

func (r *Replicator) logStop() {
	s := r.Stats()
	logger.Info("consumer stopped",
		zap.Int64("received", s.Received),
		zap.Int64("inserted", s.Inserted),
		zap.Int64("failed", s.Failed),
		zap.Int64("regenerated_ids", s.Regenerated),
	)
}

type ReplicatorStats struct {
	Received    int64
	Inserted    int64
	Failed      int64
	Regenerated int64
}

// Stats 采样值
func (r *Replicator) Stats() ReplicatorStats {
	return ReplicatorStats{
		Received:    r.received.Load(),
		Inserted:    r.inserted.Load(),
		Failed:      r.failed.Load(),
		Regenerated: r.regenerated.Load(),
	}
}
