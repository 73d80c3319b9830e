package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/config"
	kafkawrapper "github.com/joripage/matching-engine-lab/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine-lab/pkg/logging"
	"github.com/joripage/matching-engine-lab/pkg/orderbook"
	"github.com/joripage/matching-engine-lab/pkg/runner"
	"github.com/joripage/matching-engine-lab/pkg/snapshot"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile string
		engineName string
		latency    bool
		restore    string
		save       string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&engineName, "engine", "", "Engine backend: v1, v2 or v3 (default from config, v1)")
	flag.BoolVar(&latency, "latency", false, "Report per-command latency percentiles (p50, p99, p99.9)")
	flag.StringVar(&restore, "restore", "", "Load this named snapshot before reading input")
	flag.StringVar(&save, "save", "", "Store a snapshot under this name after the input ends")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if engineName == "" {
		engineName = cfg.Engine
	}

	eng, err := orderbook.NewEngine(engineName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync()
	defer logger.Install()()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, logging.NewRunID())
	log, ctx := logger.GetLogger(ctx)

	var store snapshot.Store
	if restore != "" || save != "" {
		store, err = snapshot.Open(ctx, cfg)
		if err != nil {
			log.Error("open snapshot store", zap.Error(err))
			return 1
		}
		defer store.Close()
	}
	if restore != "" {
		if err := snapshot.Restore(ctx, store, restore, eng); err != nil {
			log.Error("restore failed", zap.String("name", restore), zap.Error(err))
			return 1
		}
		log.Debug("snapshot restored", zap.String("name", restore), zap.String("book_size", eng.Stats()["book_size"]))
	}

	runLog := log.Zap().With(zap.String("service", cfg.ServiceName))
	var (
		sink      runner.EventSink
		kafkaSink *runner.KafkaSink
	)
	if k := cfg.EventSink.Kafka; k != nil && len(k.Brokers) > 0 {
		kafkaSink = runner.DialKafkaSink(kafkawrapper.ProducerConfig{
			Brokers:      k.Brokers,
			Topic:        k.Topic,
			BatchSize:    k.BatchSize,
			BatchTimeout: time.Duration(k.BatchTimeoutMs) * time.Millisecond,
		}, runLog)
		sink = kafkaSink
		log.Info("publishing events", zap.Strings("brokers", k.Brokers), zap.String("topic", k.Topic))
	}

	r := runner.New(eng, runner.Options{
		Latency:          latency || cfg.Latency,
		FlushEachCommand: cfg.FlushEachCommand,
		RunID:            logging.RunID(ctx),
		EngineName:       eng.Name(),
		Sink:             sink,
		Logger:           runLog,
	})

	summary, err := r.Run(ctx, os.Stdin, os.Stdout)
	if kafkaSink != nil {
		// async deliveries settle on close
		if cerr := kafkaSink.Close(); cerr != nil {
			log.Warn("close event sink", zap.Error(cerr))
		}
		summary.SinkErrors += kafkaSink.Failed()
	}
	switch {
	case errors.Is(err, runner.ErrReadInput):
		log.Error("input ended early", zap.Error(err))
	case err != nil:
		log.Error("run failed", zap.Error(err))
		log.Info("processed", summary.Fields()...)
		return 1
	}
	log.Info("processed", summary.Fields()...)

	if save != "" {
		if err := snapshot.Save(ctx, store, save, eng); err != nil {
			log.Error("save failed", zap.String("name", save), zap.Error(err))
			return 1
		}
	}
	return 0
}
