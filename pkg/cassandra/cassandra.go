package cassandra

import (
	"fmt"

	"github.com/gocql/gocql"

	"github.com/d60-Lab/userstream/config"
)

// NewCluster 按配置构造集群描述，本地 DC 优先并感知 token
func NewCluster(cfg config.CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	if cfg.Port > 0 {
		cluster.Port = cfg.Port
	}
	if cfg.ProtoVersion > 0 {
		cluster.ProtoVersion = cfg.ProtoVersion
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.LocalOne
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(cfg.LocalDC))
	return cluster
}

// NewSession 建立会话。keyspace 不存在时需先用 NewSystemSession 建表。
func NewSession(cfg config.CassandraConfig) (*gocql.Session, error) {
	session, err := NewCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect cassandra %v: %w", cfg.Hosts, err)
	}
	return session, nil
}

// NewSystemSession 不绑定 keyspace 的会话，用于 CREATE KEYSPACE
func NewSystemSession(cfg config.CassandraConfig) (*gocql.Session, error) {
	cluster := NewCluster(cfg)
	cluster.Keyspace = ""
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect cassandra %v: %w", cfg.Hosts, err)
	}
	return session, nil
}
