package main

import (
	"context"
	"flag"
	"os"
	"time"

	"NewsPublisher/internal/app"
	"NewsPublisher/internal/config"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/usecase"
)

// Exit codes for the external scheduler: 0 a publish occurred, 2 the
// cycle was a silent skip, 1 a dependency or store failure.
const (
	exitPublished = 0
	exitFailed    = 1
	exitSkipped   = 2
)

func main() {
	mode := flag.String("mode", "cycle", "cycle | ingest | requeue | loop")
	input := flag.String("input", "-", "ingest mode: path to a JSON array of raw items, - for stdin")
	older := flag.Duration("older", 24*time.Hour, "requeue mode: minimum age of the last attempt")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(exitFailed)
	}
	defer application.Close()

	switch *mode {
	case "cycle":
		result := application.RunCycle(ctx)
		switch result.Status {
		case usecase.CyclePublished:
			logger.Info("cycle published", "candidate", result.CandidateID, "post", result.PlatformPostID)
			os.Exit(exitPublished)
		case usecase.CycleSkipped:
			logger.Info("cycle skipped", "reason", result.Reason)
			os.Exit(exitSkipped)
		default:
			logger.Error("cycle failed", "reason", result.Reason)
			os.Exit(exitFailed)
		}

	case "ingest":
		summary, err := application.Ingest(ctx, *input)
		if err != nil {
			logger.Error("ingest failed", "error", err)
			os.Exit(exitFailed)
		}
		logger.Info("ingest done",
			"accepted", summary.Accepted,
			"duplicates", summary.Duplicates,
			"rejected", summary.Rejected)

	case "requeue":
		count, err := application.Requeue(ctx, *older)
		if err != nil {
			logger.Error("requeue failed", "error", err)
			os.Exit(exitFailed)
		}
		logger.Info("requeue done", "count", count)

	case "loop":
		if err := application.RunLoop(ctx); err != nil {
			logger.Error("loop stopped", "error", err)
			os.Exit(exitFailed)
		}

	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(exitFailed)
	}
}
