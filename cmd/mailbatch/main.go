// mailbatch processes saved .eml files from a directory, either as a one-shot
// scan or a continuous watch, feeding each file through the expense pipeline
// on a worker pool.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expensebot/mailledger/internal/async"
	"github.com/expensebot/mailledger/internal/common"
	"github.com/expensebot/mailledger/internal/ingest"
	"github.com/expensebot/mailledger/internal/mail"
	"github.com/expensebot/mailledger/internal/pipeline"
)

func main() {
	var (
		dir     = flag.String("dir", ".", "directory of .eml files to process")
		watch   = flag.Bool("watch", false, "keep watching the directory for new files")
		workers = flag.Int("workers", 4, "concurrent pipeline workers")
	)
	flag.Parse()

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

	processFile := func(ctx context.Context, job async.Job) error {
		f, err := os.Open(job.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		msg, err := mail.ParseMessage(f)
		if err != nil {
			return err
		}
		_, err = proc.Process(ctx, msg)
		return err
	}

	queue := async.NewQueue(processFile, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(3*time.Minute),
	)

	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Root:        *dir,
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Error("watcher start failed", "dir", *dir, "error", err)
			os.Exit(1)
		}
		logger.Info("mailbatch watching", "dir", *dir)
		for events != nil || errs != nil {
			select {
			case path, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				_ = queue.Enqueue(ctx, async.NewJob(path))
			case _, ok := <-errs:
				if !ok {
					errs = nil
				}
			}
		}
	} else {
		paths, err := ingest.ScanDir(*dir)
		if err != nil {
			logger.Error("scan failed", "dir", *dir, "error", err)
			os.Exit(1)
		}
		logger.Info("mailbatch scan", "dir", *dir, "files", len(paths))
		for _, p := range paths {
			_ = queue.Enqueue(ctx, async.NewJob(p))
		}
	}

	queue.Shutdown(context.Background())
	logger.Info("mailbatch done")
}
