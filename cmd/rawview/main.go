package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/junsooki/rawconv/internal/batch"
	"github.com/junsooki/rawconv/internal/config"
	"github.com/junsooki/rawconv/internal/display"
	"github.com/junsooki/rawconv/internal/logging"
)

func main() {
	cfg, err := config.ParseViewFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawview:", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawview:", err)
		os.Exit(2)
	}
	defer logger.Sync()
	logging.SetLogger(logger)

	jobs, err := batch.Plan(cfg.InputDir, cfg.Pattern, "", "")
	if err != nil {
		logger.Fatal("plan", zap.Error(err))
	}
	if len(jobs) == 0 {
		logger.Fatal("no input files",
			zap.String("dir", cfg.InputDir),
			zap.String("pattern", cfg.Pattern))
	}

	paths := make([]string, len(jobs))
	for i, job := range jobs {
		paths[i] = job.Input
	}
	src := &display.FileSource{Paths: paths, Decoder: cfg.NewDecoder()}
	logger.Info("viewing", zap.Int("files", len(paths)), zap.String("dir", cfg.InputDir))

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	var disp display.Display = display.NewViewer(src, logger)
	if err := disp.Run(); err != nil {
		logger.Fatal("display", zap.Error(err))
	}
}
