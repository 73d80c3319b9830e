package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/config"
	"github.com/joripage/matching-engine-lab/pkg/infra"
	kafkawrapper "github.com/joripage/matching-engine-lab/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine-lab/pkg/logging"
	"github.com/joripage/matching-engine-lab/pkg/tradelog"
)

func main() {
	var configFile string
	var migrationSource string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&migrationSource, "migrations", infra.DefaultMigrationSource, "Migration source URL")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync()
	defer logger.Install()()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log, ctx := logger.GetLogger(logging.WithRunID(ctx, logging.NewRunID()))

	k := cfg.EventSink.Kafka
	if k == nil || len(k.Brokers) == 0 || cfg.TradeDB == nil {
		log.Fatal("worker needs event_sink.kafka and trade_db config")
	}

	db, err := infra.GetMigrateTool().ConnectAndMigrate(cfg.TradeDB, migrationSource)
	if err != nil {
		log.Fatal("init db fail", zap.Error(err))
	}

	recorder := tradelog.NewRecorder(tradelog.NewTradeSQLRepo(db))

	group, err := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers:     k.Brokers,
		GroupID:     cfg.Worker.GroupID,
		Topic:       k.Topic,
		WorkerCount: cfg.Worker.WorkerCount,
		BatchSize:   cfg.Worker.BatchSize,
		MaxRetries:  cfg.Worker.MaxRetries,
		DLQTopic:    cfg.Worker.DLQTopic,
		AutoCommit:  true,
	})
	if err != nil {
		log.Fatal("init consumer fail", zap.Error(err))
	}
	defer group.Close()

	log.Info("trade worker started",
		zap.String("topic", k.Topic),
		zap.String("group", cfg.Worker.GroupID),
		zap.Int("workers", cfg.Worker.WorkerCount),
	)
	if err := group.Run(ctx, recorder.HandleBatch); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", zap.Error(err))
	}
	log.Info("trade worker stopped")
}
