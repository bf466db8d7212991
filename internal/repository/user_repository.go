package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
)

// UserRepository 关系库写入（只追加）
type UserRepository interface {
	// Create 在单个事务内设置 search_path、插入一行并提交
	Create(ctx context.Context, rec *model.UserRecord) error
	// FindByID 按 ID 读回
	FindByID(ctx context.Context, id uuid.UUID) (*model.UserRecord, error)
	// InitSchema 建 schema 与表（可选）
	InitSchema(ctx context.Context) error
	// Close 关闭底层连接
	Close() error
}

type userRepository struct {
	db     *gorm.DB
	schema string
	table  string
}

func NewUserRepository(db *gorm.DB, cfg config.PostgresConfig) UserRepository {
	return &userRepository{db: db, schema: cfg.Schema, table: cfg.QualifiedTable()}
}

func (r *userRepository) Create(ctx context.Context, rec *model.UserRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.schema != "" {
			if err := tx.Exec("SET LOCAL search_path TO " + quoteIdent(r.schema)).Error; err != nil {
				return err
			}
		}
		return tx.Table(r.table).Create(rec).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %s id=%s: %v", model.ErrInsertFailed, r.table, rec.ID, err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UserRecord, error) {
	var rec model.UserRecord
	if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *userRepository) InitSchema(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if r.schema != "" {
		if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + quoteIdent(r.schema)).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", r.schema, err)
		}
	}
	if err := db.Table(r.table).AutoMigrate(&model.UserRecord{}); err != nil {
		return fmt.Errorf("failed to migrate %s table: %w", r.table, err)
	}
	return nil
}

func (r *userRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// quoteIdent 以双引号包裹标识符，SET/CREATE SCHEMA 不支持占位符
func quoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
