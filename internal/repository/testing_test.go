package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/userstream/config"
)

// 内存 SQLite 只在单连接上可见，固定连接数为 1
func setupUserRepo(tb testing.TB) (UserRepository, *gorm.DB) {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	repo := NewUserRepository(db, config.PostgresConfig{Table: "users_created"})
	if err := repo.InitSchema(context.Background()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { _ = repo.Close() })
	return repo, db
}
