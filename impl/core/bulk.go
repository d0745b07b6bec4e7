package core

import (
	"context"
	"fmt"
	"log/slog"

	"refsync/entity"
	"refsync/lib/sl"
)

// runBulk drives op over the items strictly one at a time. A failing
// item is recorded and skipped; the rest of the batch proceeds. This
// is deliberately the opposite policy of the intake dedup guard:
// bulk calc/payout operate on already-validated, independent ledger
// items, so availability wins over batch atomicity.
func (c *Core) runBulk(ctx context.Context, label string, ids []string, op func(context.Context, string) error) *entity.BulkResult {
	logger := c.log.With(sl.Module("core.bulk"), slog.String("op", label))
	result := &entity.BulkResult{}
	total := len(ids)

	for i, id := range ids {
		logger.Debug("bulk progress",
			slog.String("progress", fmt.Sprintf("%d/%d", i+1, total)),
			slog.String("item", id),
		)
		if err := op(ctx, id); err != nil {
			logger.Warn("bulk item failed", slog.String("item", id), sl.Err(err))
			result.Failed = append(result.Failed, entity.BulkFailure{ID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	logger.Info("bulk run finished",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", len(result.Failed)),
	)
	return result
}

// BulkCalculate runs the calculation engine over the given
// registration ids, or over the whole incoming queue (FIFO) when none
// are given.
func (c *Core) BulkCalculate(ctx context.Context, ids []string) (*entity.BulkResult, error) {
	if len(ids) == 0 {
		incoming, err := c.IncomingRegistrations(ctx)
		if err != nil {
			return nil, err
		}
		for _, reg := range incoming {
			ids = append(ids, reg.Email)
		}
	}
	return c.runBulk(ctx, "calculate", ids, func(ctx context.Context, id string) error {
		_, err := c.CalculateReward(ctx, id)
		return err
	}), nil
}

// BulkPayout settles the given ledger entry ids, or the whole
// READY_TO_SEND queue of the given type when none are given.
func (c *Core) BulkPayout(ctx context.Context, ids []string, typ entity.RewardType) (*entity.BulkResult, error) {
	if len(ids) == 0 {
		ready, err := c.PayoutQueue(ctx, typ)
		if err != nil {
			return nil, err
		}
		for _, calc := range ready {
			ids = append(ids, calc.ID)
		}
	}
	return c.runBulk(ctx, "payout", ids, c.Payout), nil
}
