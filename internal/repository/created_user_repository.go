package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/d60-Lab/userstream/internal/model"
)

// CreatedUserRepository 宽表写入；Cassandra INSERT 按主键覆盖，重复投递只留一行
type CreatedUserRepository interface {
	Insert(ctx context.Context, row *model.CreatedUserRow) error
}

// cqlExec 执行一条带参数的 CQL 语句
type cqlExec func(ctx context.Context, stmt string, values ...any) error

func sessionExec(session *gocql.Session) cqlExec {
	return func(ctx context.Context, stmt string, values ...any) error {
		return session.Query(stmt, values...).WithContext(ctx).Exec()
	}
}

type cassandraUserRepository struct {
	exec     cqlExec
	keyspace string
	table    string
	insert   string
}

func NewCreatedUserRepository(session *gocql.Session, keyspace, table string) CreatedUserRepository {
	return newCreatedUserRepository(sessionExec(session), keyspace, table)
}

func newCreatedUserRepository(exec cqlExec, keyspace, table string) *cassandraUserRepository {
	return &cassandraUserRepository{
		exec:     exec,
		keyspace: keyspace,
		table:    table,
		insert:   InsertCQL(keyspace, table),
	}
}

// InsertCQL 构造带占位符的 INSERT；gocql 会缓存预处理语句
func InsertCQL(keyspace, table string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(model.CreatedUserColumns)), ", ")
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		keyspace, table, strings.Join(model.CreatedUserColumns, ", "), marks)
}

// CreateKeyspaceCQL 本地单节点用的 keyspace 定义
func CreateKeyspaceCQL(keyspace string) string {
	return fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}", keyspace)
}

func CreateTableCQL(keyspace, table string) string {
	cols := make([]string, 0, len(model.CreatedUserColumns))
	for _, c := range model.CreatedUserColumns {
		if c == "id" {
			cols = append(cols, "id UUID PRIMARY KEY")
			continue
		}
		cols = append(cols, c+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (%s)", keyspace, table, strings.Join(cols, ", "))
}

func (r *cassandraUserRepository) Insert(ctx context.Context, row *model.CreatedUserRow) error {
	if err := r.exec(ctx, r.insert, row.Values()...); err != nil {
		return fmt.Errorf("%w: %s.%s id=%s: %v", model.ErrInsertFailed, r.keyspace, r.table, row.ID, err)
	}
	return nil
}

// EnsureSchema 建 keyspace 与表；session 不能绑定尚未存在的 keyspace
func EnsureSchema(ctx context.Context, session *gocql.Session, keyspace, table string) error {
	if err := session.Query(CreateKeyspaceCQL(keyspace)).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create keyspace %s: %w", keyspace, err)
	}
	if err := session.Query(CreateTableCQL(keyspace, table)).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create table %s.%s: %w", keyspace, table, err)
	}
	return nil
}
