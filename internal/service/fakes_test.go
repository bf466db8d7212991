package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/segmentio/kafka-go"

	"github.com/d60-Lab/userstream/internal/model"
)

// memTopic 单分区内存 topic；按消费组记录已提交 offset
type memTopic struct {
	mu        sync.Mutex
	name      string
	msgs      []kafka.Message
	committed map[string]int64
	writeErr  error
	closed    bool
}

func newMemTopic(name string) *memTopic {
	return &memTopic{name: name, committed: map[string]int64{}}
}

func (t *memTopic) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	for _, m := range msgs {
		m.Topic = t.name
		m.Offset = int64(len(t.msgs))
		t.msgs = append(t.msgs, m)
	}
	return nil
}

func (t *memTopic) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *memTopic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

func (t *memTopic) Values() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.msgs))
	for i, m := range t.msgs {
		out[i] = m.Value
	}
	return out
}

// Reader 新建消费者，从该组已提交的 offset 开始；没有提交记录则从最早开始
func (t *memTopic) Reader(group string) *memReader {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &memReader{topic: t, group: group, pos: t.committed[group]}
}

type memReader struct {
	topic  *memTopic
	group  string
	pos    int64
	closed bool
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.topic.mu.Lock()
		if r.closed {
			r.topic.mu.Unlock()
			return kafka.Message{}, io.EOF
		}
		if r.pos < int64(len(r.topic.msgs)) {
			m := r.topic.msgs[r.pos]
			r.pos++
			r.topic.mu.Unlock()
			return m, nil
		}
		r.topic.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.topic.mu.Lock()
	defer r.topic.mu.Unlock()
	for _, m := range msgs {
		if m.Offset+1 > r.topic.committed[r.group] {
			r.topic.committed[r.group] = m.Offset + 1
		}
	}
	return nil
}

func (r *memReader) Close() error {
	r.topic.mu.Lock()
	defer r.topic.mu.Unlock()
	r.closed = true
	return nil
}

// memWideStore 按主键 upsert，模拟宽表语义
type memWideStore struct {
	mu      sync.Mutex
	rows    map[gocql.UUID]model.CreatedUserRow
	inserts int
	failFor map[string]bool // email -> 失败
}

func newMemWideStore() *memWideStore {
	return &memWideStore{rows: map[gocql.UUID]model.CreatedUserRow{}, failFor: map[string]bool{}}
}

func (s *memWideStore) Insert(_ context.Context, row *model.CreatedUserRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[row.Email] {
		return errors.New("write timeout")
	}
	s.inserts++
	s.rows[row.ID] = *row
	return nil
}

func (s *memWideStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *memWideStore) Inserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

func (s *memWideStore) Emails() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for _, r := range s.rows {
		out[r.Email] = true
	}
	return out
}

// seqFetcher 依次返回预设结果，耗尽后返回 ErrFetchFailed
type seqFetcher struct {
	results []fetchResult
	calls   int
}

type fetchResult struct {
	rec *model.UserRecord
	err error
}

func (f *seqFetcher) Fetch(context.Context) (*model.UserRecord, error) {
	f.calls++
	if len(f.results) == 0 {
		return nil, model.ErrFetchFailed
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.rec, r.err
}

type recordingStore struct {
	created []*model.UserRecord
	fail    map[string]bool // email -> 失败
}

func (s *recordingStore) Create(_ context.Context, rec *model.UserRecord) error {
	if s.fail[rec.Email] {
		return model.ErrInsertFailed
	}
	s.created = append(s.created, rec)
	return nil
}

type recordingPublisher struct {
	published []*model.UserRecord
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, rec *model.UserRecord) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, rec)
	return nil
}

// flakyReader 前 failures 次拉取返回 err，之后交给内层 reader
type flakyReader struct {
	MessageReader
	mu       sync.Mutex
	failures int
	err      error
	fetches  int
}

func (f *flakyReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.fetches++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return kafka.Message{}, f.err
	}
	f.mu.Unlock()
	return f.MessageReader.FetchMessage(ctx)
}

func (f *flakyReader) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}
