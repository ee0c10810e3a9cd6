package ops

import (
	"context"

	"github.com/hpungsan/qet/internal/history"
)

// GetHistory returns up to limit records newest first; limit <= 0 returns all.
func (o *Orchestrator) GetHistory(ctx context.Context, limit int) ([]history.Record, error) {
	return o.history.Recent(ctx, limit)
}

// ClearHistory removes every history record.
func (o *Orchestrator) ClearHistory(ctx context.Context) error {
	if err := o.history.Clear(ctx); err != nil {
		return err
	}
	o.log.Info().Msg("history cleared")
	return nil
}
