// flowgrid service entry point.
//
// Usage:
//
//	flowgrid serve                        # start the engine
//	flowgrid serve --config config.yaml   # with a config file
//	flowgrid migrate up                   # apply database migrations
//	flowgrid migrate down                 # roll back the last migration
//	flowgrid migrate status               # show the schema version
//	flowgrid version                      # print version
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowgrid-io/flowgrid/config"
	"github.com/flowgrid-io/flowgrid/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		fmt.Println("flowgrid", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  flowgrid serve [--config path]
  flowgrid migrate <up|down|status> [--config path]
  flowgrid version`)
}

func loadConfig(args []string, name string) *config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runMigrate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: flowgrid migrate <up|down|status> [--config path]")
		os.Exit(2)
	}
	sub := args[0]
	cfg := loadConfig(args[1:], "migrate "+sub)
	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	if cfg.Database.DSN == "" {
		logger.Fatal("database.dsn is required for migrations")
	}

	switch sub {
	case "up":
		if err := store.MigrateUp(cfg.Database.DSN, logger); err != nil {
			logger.Fatal("migrate up failed", zap.Error(err))
		}
	case "down":
		if err := store.MigrateDown(cfg.Database.DSN, logger); err != nil {
			logger.Fatal("migrate down failed", zap.Error(err))
		}
	case "status":
		v, dirty, err := store.MigrateVersion(cfg.Database.DSN)
		if err != nil {
			logger.Fatal("migrate status failed", zap.Error(err))
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", sub)
		os.Exit(2)
	}
}
