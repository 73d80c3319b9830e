package config

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/joripage/matching-engine-lab/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-engine-lab/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName      string `yaml:"service_name"`
	LogLevel         string `yaml:"log_level"`
	Engine           string `yaml:"engine"`
	Latency          bool   `yaml:"latency"`
	FlushEachCommand bool   `yaml:"flush_each_command"`

	Snapshot  SnapshotConfig                   `yaml:"snapshot"`
	Redis     *redis_wrapper.RedisConfig       `yaml:"redis"`
	TradeDB   *postgres_wrapper.PostgresConfig `yaml:"trade_db"`
	EventSink EventSinkConfig                  `yaml:"event_sink"`
	Worker    WorkerConfig                     `yaml:"worker"`
}

type SnapshotConfig struct {
	// Store is one of file, redis, postgres.
	Store     string `yaml:"store"`
	Dir       string `yaml:"dir"`
	KeyPrefix string `yaml:"key_prefix"`
}

type EventSinkConfig struct {
	Kafka *KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	BatchSize      int      `yaml:"batch_size"`
	BatchTimeoutMs int      `yaml:"batch_timeout_ms"`
}

type WorkerConfig struct {
	GroupID     string `yaml:"group_id"`
	WorkerCount int    `yaml:"worker_count"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
	DLQTopic    string `yaml:"dlq_topic"`
}

// Default is the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		ServiceName:      "matching-engine",
		LogLevel:         "info",
		Engine:           "v1",
		FlushEachCommand: true,
		Snapshot: SnapshotConfig{
			Store:     "file",
			Dir:       "snapshots",
			KeyPrefix: "mels:snapshot:",
		},
		Worker: WorkerConfig{
			GroupID:     "trade_worker",
			WorkerCount: 4,
			BatchSize:   100,
			MaxRetries:  3,
		},
	}
}

// Load load config from file and environment variables.
// A .env file in the working directory is applied to the environment first.
func Load(filePath string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)

	cfg := Default()
	if len(filePath) == 0 {
		sugar.Debug("No config file, using defaults")
		return cfg, nil
	}

	sugar.Debug("Load config...")
	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
