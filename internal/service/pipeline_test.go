package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/internal/repository"
)

func setupPipelineDB(t *testing.T) (repository.UserRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewUserRepository(db, config.PostgresConfig{Table: "users_created"})
	require.NoError(t, repo.InitSchema(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, db
}

// Alice 正常；Bob 的关系库写入因主键冲突失败，既不应进入 topic 也不应进入宽表
func TestPipeline_FailedInsertNeverReachesTopicOrWideStore(t *testing.T) {
	repo, db := setupPipelineDB(t)
	ctx := context.Background()

	alice, bob := rec("alice"), rec("bob")
	squatter := rec("squatter")
	squatter.ID = bob.ID
	require.NoError(t, repo.Create(ctx, squatter))

	topic := newMemTopic("users_created")
	fetcher := &seqFetcher{results: []fetchResult{{rec: alice}, {rec: bob}}}
	in := NewIngestor(fetcher, repo, NewPublisher(topic, config.KafkaConfig{Topic: "users_created"}))

	assert.True(t, in.IngestOnce(ctx))
	assert.False(t, in.IngestOnce(ctx))
	require.Equal(t, 1, topic.Len())

	store := newMemWideStore()
	r := NewReplicator(topic.Reader("g"), store, false)
	runReplicator(t, r, func() bool { return r.Stats().Received == 1 })

	assert.Equal(t, map[string]bool{"alice@example.com": true}, store.Emails())

	var bobRows int64
	require.NoError(t, db.Table("users_created").Where("email = ?", bob.Email).Count(&bobRows).Error)
	assert.Zero(t, bobRows)
}

// 关系库读回与 topic 消息、宽表行三者 ID 一致
func TestPipeline_IDPropagatesThroughAllStores(t *testing.T) {
	repo, _ := setupPipelineDB(t)
	ctx := context.Background()

	alice := rec("alice")
	topic := newMemTopic("users_created")
	in := NewIngestor(&seqFetcher{results: []fetchResult{{rec: alice}}}, repo, NewPublisher(topic, config.KafkaConfig{}))
	require.True(t, in.IngestOnce(ctx))

	got, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, *alice, *got)

	var msg model.UserMessage
	require.NoError(t, json.Unmarshal(topic.Values()[0], &msg))
	assert.Equal(t, alice.ID.String(), msg.ID)

	store := newMemWideStore()
	r := NewReplicator(topic.Reader("g"), store, false)
	runReplicator(t, r, func() bool { return store.Len() == 1 })
	for id := range store.rows {
		assert.Equal(t, alice.ID.String(), id.String())
	}
}
