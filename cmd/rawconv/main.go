package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/junsooki/rawconv/internal/batch"
	"github.com/junsooki/rawconv/internal/config"
	"github.com/junsooki/rawconv/internal/decoder"
	"github.com/junsooki/rawconv/internal/encoder"
	"github.com/junsooki/rawconv/internal/logging"
	"github.com/junsooki/rawconv/internal/progress"
	"github.com/junsooki/rawconv/internal/remote"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns 0 when every file converted, 1 when any failed and 2 on a
// usage or setup error.
func run(args []string, stdout io.Writer) int {
	cfg, err := config.ParseConvertFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawconv:", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawconv:", err)
		return 2
	}
	defer logger.Sync()
	logging.SetLogger(logger)

	enc, err := encoder.New(cfg.Format, cfg.Quality)
	if err != nil {
		logger.Error("encoder", zap.Error(err))
		return 2
	}
	jobs, err := batch.Plan(cfg.InputDir, cfg.Pattern, cfg.OutputDir, enc.Ext())
	if err != nil {
		logger.Error("plan", zap.Error(err))
		return 2
	}

	if cfg.Info {
		dec := cfg.NewDecoder()
		printInfo(stdout, batch.Inspect(jobs, dec), dec.Layout())
		return 0
	}

	if len(jobs) == 0 {
		logger.Warn("no input files",
			zap.String("dir", cfg.InputDir),
			zap.String("pattern", cfg.Pattern))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dec decoder.Decoder = cfg.NewDecoder()
	if cfg.Remote != "" {
		client, err := remote.Dial(ctx, cfg.Remote)
		if err != nil {
			logger.Error("remote", zap.Error(err))
			return 2
		}
		defer client.Close()
		dec = client
		logger.Info("decoding remotely", zap.String("url", cfg.Remote))
	}

	conv := &batch.Converter{
		Decoder:   dec,
		Encoder:   enc,
		Scale:     cfg.Scale,
		MaxPixels: cfg.MaxPixels,
		Verify:    cfg.Verify && encoder.Lossless(cfg.Format),
		Workers:   cfg.Workers,
		FailFast:  cfg.FailFast,
		Logger:    logger,
	}
	if cfg.Verify && !conv.Verify {
		logger.Warn("verify skipped for format that drops samples", zap.String("format", cfg.Format))
	}

	logger.Info("converting",
		zap.Int("files", len(jobs)),
		zap.String("format", cfg.Format),
		zap.String("out", cfg.OutputDir),
		zap.Int("workers", cfg.Workers))

	var sum batch.Summary
	if cfg.Progress {
		sum, err = runWithProgress(ctx, conv, jobs)
	} else {
		sum, err = conv.Run(ctx, jobs)
	}

	logger.Info("finished",
		zap.Int("converted", sum.Converted),
		zap.Int("failed", len(sum.Failed)),
		zap.Int("skipped", sum.Skipped()))
	if err != nil {
		logger.Error("run stopped", zap.Error(err))
		return 1
	}
	if len(sum.Failed) > 0 {
		return 1
	}
	return 0
}

// runWithProgress replaces per-file log lines with a progress view.
// Failures are logged once the view has closed.
func runWithProgress(ctx context.Context, conv *batch.Converter, jobs []batch.Job) (batch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := conv.Logger
	conv.Logger = zap.NewNop()
	p, uiDone := progress.Run(progress.New(len(jobs), cancel))
	conv.OnEvent = func(e batch.Event) { p.Send(e) }

	sum, err := conv.Run(ctx, jobs)
	p.Send(progress.DoneMsg{Summary: sum, Err: err})
	if uiErr := <-uiDone; uiErr != nil {
		logger.Warn("progress view", zap.Error(uiErr))
	}

	for _, f := range sum.Failed {
		logger.Warn("convert failed",
			zap.String("file", f.Job.Input),
			zap.String("kind", decoder.Kind(f.Err)),
			zap.Error(f.Err))
	}
	return sum, err
}
