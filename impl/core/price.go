package core

import (
	"context"
	"fmt"
	"log/slog"

	"refsync/entity"
)

// BasePrice returns the current transaction base every calculation
// uses. When no admin has set one yet, the configured default is
// served without being persisted.
func (c *Core) BasePrice(ctx context.Context) (*entity.PriceConfig, error) {
	return c.basePrice(ctx)
}

func (c *Core) basePrice(ctx context.Context) (*entity.PriceConfig, error) {
	price, err := c.store.PriceConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price config: %w", err)
	}
	if price == nil {
		price = &entity.PriceConfig{Amount: c.defaultPrice, UpdatedBy: "config"}
	}
	return price, nil
}

// SetBasePrice stores a new versioned price config. Every future
// calculation reads the new value; already-committed ledger entries
// keep the base they were stamped with.
func (c *Core) SetBasePrice(ctx context.Context, amount int64, updatedBy string) (*entity.PriceConfig, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("base price must be positive")
	}
	price := &entity.PriceConfig{
		Amount:      amount,
		EffectiveAt: c.now(),
		UpdatedBy:   updatedBy,
	}
	if err := c.store.SavePriceConfig(ctx, price); err != nil {
		return nil, fmt.Errorf("save price config: %w", err)
	}
	c.log.Info("base price updated",
		slog.Int64("amount", amount),
		slog.String("updated_by", updatedBy),
	)
	return price, nil
}
