package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/junsooki/rawconv/internal/config"
	"github.com/junsooki/rawconv/internal/logging"
	"github.com/junsooki/rawconv/internal/remote"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.ParseServeFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawserve:", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rawserve:", err)
		os.Exit(2)
	}
	defer logger.Sync()
	logging.SetLogger(logger)

	srv := remote.NewServer(cfg.NewDecoder(), cfg.MaxMessageBytes, logger)
	srv.Quality = cfg.Quality

	mux := http.NewServeMux()
	mux.Handle("/", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Listen),
			zap.Int64("max_message_bytes", cfg.MaxMessageBytes))
		errc <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		logger.Fatal("serve", zap.Error(err))
	case <-sigCh:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
