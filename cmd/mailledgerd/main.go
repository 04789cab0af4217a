// mailledgerd serves the inbound-parse webhook: each POST is one email, run
// through the expense pipeline and appended to the ledger.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expensebot/mailledger/internal/common"
	"github.com/expensebot/mailledger/internal/pipeline"
	"github.com/expensebot/mailledger/internal/server"
)

func main() {
	cfg, err := common.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc, cleanup, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("pipeline build failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	handler := server.NewWebhookHandler(proc, logger)
	srv := &http.Server{
		Addr:         cfg.Webhook.Addr,
		Handler:      server.Setup(handler, logger),
		ReadTimeout:  cfg.Webhook.ReadTimeout,
		WriteTimeout: cfg.Webhook.WriteTimeout,
	}

	logger.Info("mailledgerd listening", "addr", cfg.Webhook.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("mailledgerd stopped")
}
