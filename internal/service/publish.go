package service

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageWriter *kafka.Writer 满足该接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter 默认异步发送（fire-and-forget），投递失败只在 Completion 回调里记日志；
// RequireAcks 打开后改为同步等待全部副本确认。
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.RoundRobin{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	if cfg.RequireAcks {
		w.RequiredAcks = kafka.RequireAll
		return w
	}
	w.Async = true
	w.Completion = func(msgs []kafka.Message, err error) {
		if err != nil {
			logger.Error("kafka async delivery failed", zap.String("topic", cfg.Topic), zap.Int("messages", len(msgs)), zap.Error(err))
		}
	}
	return w
}

// Publisher 把记录序列化为 JSON 写入 topic，不带 key
type Publisher struct {
	w            MessageWriter
	topic        string
	closeTimeout time.Duration
}

func NewPublisher(w MessageWriter, cfg config.KafkaConfig) *Publisher {
	return &Publisher{w: w, topic: cfg.Topic, closeTimeout: cfg.CloseTimeout}
}

// Publish 异步模式下立即返回 nil；同步模式下失败返回 ErrPublishFailed
func (p *Publisher) Publish(ctx context.Context, rec *model.UserRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode id=%s: %v", model.ErrPublishFailed, rec.ID, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
		return fmt.Errorf("%w: topic=%s id=%s: %v", model.ErrPublishFailed, p.topic, rec.ID, err)
	}
	logger.Info("Produced to Kafka", zap.String("topic", p.topic), zap.String("email", rec.Email))
	return nil
}

// Close 刷出缓冲并关闭，最多等待 closeTimeout；超时后剩余消息被放弃
func (p *Publisher) Close() error {
	done := make(chan error, 1)
	go func() { done <- p.w.Close() }()

	if p.closeTimeout <= 0 {
		return <-done
	}
	select {
	case err := <-done:
		return err
	case <-time.After(p.closeTimeout):
		logger.Warn("producer close timed out, pending messages abandoned", zap.Duration("timeout", p.closeTimeout))
		return nil
	}
}
