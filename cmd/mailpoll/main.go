// mailpoll polls an IMAP mailbox for unread messages and runs each one
// through the expense pipeline, marking it read once consumed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/expensebot/mailledger/internal/common"
	"github.com/expensebot/mailledger/internal/mail"
	"github.com/expensebot/mailledger/internal/pipeline"
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
	if err := cfg.ValidateMailbox(); err != nil {
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

	poller := mail.NewPoller(cfg.Mailbox, proc, logger)
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller exited", "error", err)
		os.Exit(1)
	}
	logger.Info("mailpoll stopped")
}
