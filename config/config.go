package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置，进程启动时构造一次后只读传递
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	API       APIConfig       `mapstructure:"api"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Cassandra CassandraConfig `mapstructure:"cassandra"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// APIConfig randomuser 接口
type APIConfig struct {
	URL string `mapstructure:"url"`
	// Timeout 0 表示不设超时
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit 每秒请求数，0 表示不限速
	RateLimit float64 `mapstructure:"rate_limit"`
}

type PostgresConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	Schema      string `mapstructure:"schema"`
	Table       string `mapstructure:"table"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN returns a PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// QualifiedTable 返回 schema.table；schema 为空时只返回表名
func (c PostgresConfig) QualifiedTable() string {
	if c.Schema == "" {
		return c.Table
	}
	return c.Schema + "." + c.Table
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	RequireAcks  bool          `mapstructure:"require_acks"`
	CloseTimeout time.Duration `mapstructure:"close_timeout"`
	// CommitOffsets 关闭时从不提交 offset，重启后从最早位置重放
	CommitOffsets bool `mapstructure:"commit_offsets"`
}

type CassandraConfig struct {
	Hosts        []string      `mapstructure:"hosts"`
	Port         int           `mapstructure:"port"`
	Keyspace     string        `mapstructure:"keyspace"`
	Table        string        `mapstructure:"table"`
	LocalDC      string        `mapstructure:"local_dc"`
	ProtoVersion int           `mapstructure:"proto_version"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CreateSchema bool          `mapstructure:"create_schema"`
}

type PipelineConfig struct {
	IngestWindow time.Duration `mapstructure:"ingest_window"`
}

const envPrefix = "USERSTREAM"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetDefault("api.url", "https://randomuser.me/api/")
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("api.rate_limit", 0.0)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "my_db")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.schema", "stream")
	v.SetDefault("postgres.table", "users_created")
	v.SetDefault("postgres.auto_migrate", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "users_created")
	v.SetDefault("kafka.group_id", "userstream-cassandra")
	v.SetDefault("kafka.require_acks", false)
	v.SetDefault("kafka.close_timeout", 10*time.Second)
	v.SetDefault("kafka.commit_offsets", false)

	v.SetDefault("cassandra.hosts", []string{"localhost"})
	v.SetDefault("cassandra.port", 9042)
	v.SetDefault("cassandra.keyspace", "streams")
	v.SetDefault("cassandra.table", "created_users")
	v.SetDefault("cassandra.local_dc", "datacenter1")
	v.SetDefault("cassandra.proto_version", 4)
	v.SetDefault("cassandra.timeout", 10*time.Second)
	v.SetDefault("cassandra.create_schema", false)

	v.SetDefault("pipeline.ingest_window", 60*time.Second)
}

// Load 读取配置：默认值 < 可选 YAML 文件 < USERSTREAM_* 环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.API.URL == "":
		return errors.New("config: api.url is required")
	case c.Postgres.Table == "":
		return errors.New("config: postgres.table is required")
	case len(c.Kafka.Brokers) == 0:
		return errors.New("config: kafka.brokers is required")
	case c.Kafka.Topic == "":
		return errors.New("config: kafka.topic is required")
	case len(c.Cassandra.Hosts) == 0:
		return errors.New("config: cassandra.hosts is required")
	case c.Cassandra.Keyspace == "" || c.Cassandra.Table == "":
		return errors.New("config: cassandra.keyspace and cassandra.table are required")
	case c.Pipeline.IngestWindow <= 0:
		return errors.New("config: pipeline.ingest_window must be positive")
	}
	return nil
}
