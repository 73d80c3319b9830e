package main

import (
	"encoding/json"
	"flag"

	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/config"
	"github.com/joripage/matching-engine-lab/pkg/infra"
	"github.com/joripage/matching-engine-lab/pkg/logging"
)

func main() {
	var configFile string
	var source string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", infra.DefaultMigrationSource, "Migration source URL")
	flag.Parse()

	logger := logging.NewLogger(logging.DEBUG)
	defer logger.Sync()
	defer logger.Install()()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	if cfg.TradeDB == nil {
		zap.S().Fatal("trade_db config is required")
	}
	if err := infra.GetMigrateTool().Migrate(source, cfg.TradeDB.MigrationConnURL); err != nil {
		zap.S().Fatalf("migrate: %v", err)
	}
}
