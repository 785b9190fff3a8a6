package usecase

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

type recordSource interface {
	Pop(ctx context.Context) (entity.MatchRecord, error)
}

type matchRepo interface {
	CreateOrUpdate(ctx context.Context, record *entity.MatchRecord) error
}

// HistoryRecorder persists match records off the foreground goroutine.
type HistoryRecorder struct {
	logger *slog.Logger
	source recordSource
	repo   matchRepo
}

func NewHistoryRecorder(logger *slog.Logger, source recordSource, repo matchRepo) *HistoryRecorder {
	return &HistoryRecorder{
		logger: logger.With("component", "history"),
		source: source,
		repo:   repo,
	}
}

// Run - saves records as they arrive until ctx ends. A failed save is logged and skipped.
func (that *HistoryRecorder) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	for {
		record, err := that.source.Pop(ctx)
		if err != nil {
			log.Info("history recorder stopped", "reason", err)
			return nil
		}

		if err = that.repo.CreateOrUpdate(ctx, &record); err != nil {
			log.Error("failed to save match record", "match_id", record.ID, "error", err)
		}
	}
}
