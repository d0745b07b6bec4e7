// Package core implements the referral and reward settlement pipeline:
// intake of raw registration batches, queued payment confirmation,
// verification reconciliation, tiered reward calculation and
// idempotent balance payouts.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"refsync/entity"
	"refsync/lib/sl"
)

// Store is the document-store surface the pipeline runs on.
// Implemented by internal/database (MongoDB) and by the in-memory fake
// in the tests. Lookup methods return (nil, nil) when no document
// exists; multi-document commit methods are atomic, all-or-nothing.
type Store interface {
	// Registrations. List results are always sorted FIFO by creation
	// time; callers must not rely on store iteration order.
	InsertRegistrations(ctx context.Context, regs []*entity.RegistrationRequest) error
	Registrations(ctx context.Context) ([]*entity.RegistrationRequest, error)
	RegistrationByEmail(ctx context.Context, email string) (*entity.RegistrationRequest, error)
	RegistrationsByStatus(ctx context.Context, status entity.RegistrationStatus) ([]*entity.RegistrationRequest, error)
	SetRegistrationStatus(ctx context.Context, email string, status entity.RegistrationStatus) error
	DeleteRegistration(ctx context.Context, email string) error
	DeleteResettableRegistrations(ctx context.Context) (int64, error)
	CountRegistrationsSince(ctx context.Context, since time.Time) (int64, error)

	// Users.
	UserByEmail(ctx context.Context, email string) (*entity.User, error)
	UserByToken(ctx context.Context, token string) (*entity.User, error)
	UserByReferralCode(ctx context.Context, code string) (*entity.User, error)
	CountReferrals(ctx context.Context, code string) (int64, error)

	// Reward ledger.
	CommitCalculation(ctx context.Context, res *CalculationResult) error
	CommitPayout(ctx context.Context, calc *entity.RewardCalculation, sentAt time.Time, notif *entity.Notification) error
	CommitAchievement(ctx context.Context, calc *entity.RewardCalculation, notif *entity.Notification) error
	CalculationByID(ctx context.Context, id string) (*entity.RewardCalculation, error)
	CalculationsByStatus(ctx context.Context, status entity.CalculationStatus) ([]*entity.RewardCalculation, error)
	DeleteCalculationsByStatus(ctx context.Context, status entity.CalculationStatus) (int64, error)

	// Price configuration.
	PriceConfig(ctx context.Context) (*entity.PriceConfig, error)
	SavePriceConfig(ctx context.Context, p *entity.PriceConfig) error
}

// AuthService resolves API tokens to users.
type AuthService interface {
	UserByToken(ctx context.Context, token string) (*entity.User, error)
}

type Core struct {
	store        Store
	auth         AuthService
	log          *slog.Logger
	defaultPrice int64
	now          func() time.Time
}

func New(store Store, log *slog.Logger, defaultPrice int64) *Core {
	if store == nil {
		panic("store is nil")
	}
	return &Core{
		store:        store,
		log:          log.With(sl.Module("core")),
		defaultPrice: defaultPrice,
		now:          time.Now,
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(ctx, token)
}
