// Package main provides the rulecheck binary, which loads the configured mod
// stack and prints a summary of the linked ruleset or the load errors.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/modstack/internal/config"
	"github.com/cory-johannsen/modstack/internal/observability"
	"github.com/cory-johannsen/modstack/internal/ruleset/loader"
	"github.com/cory-johannsen/modstack/internal/scripting"
	"github.com/cory-johannsen/modstack/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dataDir := flag.String("data-dir", "", "override mods.data_dir")
	debug := flag.Bool("debug", false, "abort on the first failing mod instead of disabling it")
	noScripts := flag.Bool("no-scripts", false, "skip mod validation scripts")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dataDir != "" {
		cfg.Mods.DataDir = *dataDir
	}
	if *debug {
		cfg.Loader.Debug = true
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("opening mod state store", zap.Error(err))
	}
	defer closeStore()
	if !storage.Persistent(cfg) {
		logger.Warn("mod state store is in-process; mods disabled by this run are retried next run",
			zap.String("state_store", cfg.Mods.StateStore),
		)
	}

	opts, err := loader.OptionsFromConfig(cfg)
	if err != nil {
		logger.Fatal("building loader options", zap.Error(err))
	}

	var validator loader.Validator
	if !*noScripts {
		validator = scripting.NewValidator(logger, opts.Threshold, cfg.Loader.ScriptInstructionLimit)
	}

	res, err := loader.New(opts, store, validator, logger).Load(ctx)
	if err != nil {
		writeFailure(os.Stdout, err)
		logger.Error("ruleset load failed", zap.Duration("elapsed", time.Since(start)))
		_ = logger.Sync()
		os.Exit(1)
	}

	for _, m := range res.Mods {
		logger.Debug("loaded mod", observability.ModFields(m)...)
	}
	writeSummary(os.Stdout, res, time.Since(start))
}
