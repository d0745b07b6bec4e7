package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"refsync/entity"
)

// CalculationResult is everything one reward calculation commits as a
// single atomic write: the ledger entries, an optional referrer tier
// change, the notifications, and the source registration's
// reward-status flip.
type CalculationResult struct {
	Registration  *entity.RegistrationRequest
	Entries       []*entity.RewardCalculation
	LevelUpdate   *LevelUpdate
	Notifications []*entity.Notification
}

// LevelUpdate records a referrer tier change detected during
// calculation.
type LevelUpdate struct {
	Email string
	Level entity.Tier
}

// CalculateReward derives the ledger entries for one verified
// registration: a tiered referral bonus for the referrer when the used
// code resolves, and a cashback for the applicant depending on
// new-member or renewal status. Producing zero entries (no referral,
// Rookie renewal) is a valid outcome; the registration is still marked
// CALCULATED.
func (c *Core) CalculateReward(ctx context.Context, email string) ([]*entity.RewardCalculation, error) {
	reg, err := c.store.RegistrationByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, fmt.Errorf("registration %s not found", email)
	}
	if reg.Status != entity.StatusVerified {
		return nil, fmt.Errorf("registration %s is %s, rewards are calculated for verified accounts only", email, reg.Status)
	}
	if reg.Calculated() {
		return nil, fmt.Errorf("rewards for %s are already calculated", email)
	}

	price, err := c.basePrice(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	res := &CalculationResult{Registration: reg}

	if reg.HasReferral() {
		if err := c.referralBonus(ctx, reg, price, res); err != nil {
			return nil, err
		}
	}
	if err := c.cashback(ctx, reg, price, res); err != nil {
		return nil, err
	}
	for _, entry := range res.Entries {
		entry.CreatedAt = now
	}
	for _, notif := range res.Notifications {
		notif.CreatedAt = now
	}

	if err := c.store.CommitCalculation(ctx, res); err != nil {
		return nil, fmt.Errorf("commit calculation: %w", err)
	}
	c.log.Info("reward calculated",
		slog.String("registration", reg.Email),
		slog.Int("entries", len(res.Entries)),
	)
	return res.Entries, nil
}

// referralBonus resolves the used code to a referrer, recomputes the
// tier from the cumulative referral count and stages a REFERRAL_BONUS
// entry. An unresolvable code stages nothing; that is not an error.
func (c *Core) referralBonus(ctx context.Context, reg *entity.RegistrationRequest, price *entity.PriceConfig, res *CalculationResult) error {
	referrer, err := c.store.UserByReferralCode(ctx, reg.UsedReferralCode)
	if err != nil {
		return fmt.Errorf("resolve referrer: %w", err)
	}
	if referrer == nil {
		return nil
	}

	count, err := c.store.CountReferrals(ctx, reg.UsedReferralCode)
	if err != nil {
		return fmt.Errorf("count referrals: %w", err)
	}

	tier := entity.TierForCount(count)
	if referrer.Level != tier {
		res.LevelUpdate = &LevelUpdate{Email: referrer.Email, Level: tier}
		res.Notifications = append(res.Notifications, &entity.Notification{
			ID:        uuid.NewString(),
			UserEmail: referrer.Email,
			Title:     "Level Up!",
			Message:   fmt.Sprintf("Congratulations! Your level is now %s. Referral bonus rate: %.0f%%.", tier, tier.Percent()*100),
			Type:      entity.NotifSystem,
			Link:      "/dashboard",
		})
	}

	res.Entries = append(res.Entries, &entity.RewardCalculation{
		ID:              uuid.NewString(),
		SourceID:        reg.Email,
		Type:            entity.RewardReferralBonus,
		TargetEmail:     referrer.Email,
		TargetName:      referrer.FullName,
		Tier:            tier,
		ReferralCount:   count,
		Percentage:      tier.Percent(),
		TransactionBase: price.Amount,
		BonusAmount:     share(price.Amount, tier.Percent()),
		Description:     fmt.Sprintf("Referral Bonus (Tier %s) from: %s", tier, reg.FullName),
		Status:          entity.CalcReadyToSend,
	})
	return nil
}

// cashback stages a CASHBACK entry for the applicant: 5% for a brand
// new member, 5% for a Pro/Legend renewal, nothing for a Rookie
// renewal.
func (c *Core) cashback(ctx context.Context, reg *entity.RegistrationRequest, price *entity.PriceConfig, res *CalculationResult) error {
	member, err := c.store.UserByEmail(ctx, reg.Email)
	if err != nil {
		return fmt.Errorf("load member: %w", err)
	}

	var rate float64
	var desc string
	switch {
	case member == nil:
		rate, desc = 0.05, "Welcome Cashback (5%) - New Member"
	case member.Level.LoyaltyCashback():
		rate, desc = 0.05, fmt.Sprintf("Loyalty Cashback (5%%) - %s Renewal", member.Level)
	default:
		return nil
	}

	res.Entries = append(res.Entries, &entity.RewardCalculation{
		ID:              uuid.NewString(),
		SourceID:        reg.Email,
		Type:            entity.RewardCashback,
		TargetEmail:     reg.Email,
		TargetName:      reg.FullName,
		Percentage:      rate,
		TransactionBase: price.Amount,
		BonusAmount:     share(price.Amount, rate),
		Description:     desc,
		Status:          entity.CalcReadyToSend,
	})
	return nil
}

// Payout settles one READY_TO_SEND ledger entry: the store commit
// flips the status with a conditional write, increments the target
// balance atomically and emits the user notification, all-or-nothing.
// A lost conditional write surfaces as entity.ErrAlreadySent and
// leaves the balance untouched.
func (c *Core) Payout(ctx context.Context, id string) error {
	calc, err := c.store.CalculationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load calculation: %w", err)
	}
	if calc == nil {
		return fmt.Errorf("calculation %s not found", id)
	}
	if calc.Status != entity.CalcReadyToSend {
		return entity.ErrAlreadySent
	}

	sentAt := c.now()
	notif := &entity.Notification{
		ID:        uuid.NewString(),
		UserEmail: calc.TargetEmail,
		Title:     payoutTitle(calc.Type),
		Message:   fmt.Sprintf("Balance +%d. (%s)", calc.BonusAmount, calc.Description),
		Type:      entity.NotifReward,
		Link:      "/dashboard",
		CreatedAt: sentAt,
	}
	if err := c.store.CommitPayout(ctx, calc, sentAt, notif); err != nil {
		return err
	}
	c.log.Info("payout sent",
		slog.String("calculation", calc.ID),
		slog.String("target", calc.TargetEmail),
		slog.Int64("amount", calc.BonusAmount),
	)
	return nil
}

// IncomingRegistrations lists VERIFIED registrations awaiting
// calculation, oldest first.
func (c *Core) IncomingRegistrations(ctx context.Context) ([]*entity.RegistrationRequest, error) {
	verified, err := c.store.RegistrationsByStatus(ctx, entity.StatusVerified)
	if err != nil {
		return nil, fmt.Errorf("load verified registrations: %w", err)
	}
	incoming := verified[:0]
	for _, reg := range verified {
		if !reg.Calculated() {
			incoming = append(incoming, reg)
		}
	}
	return incoming, nil
}

// PayoutQueue lists READY_TO_SEND ledger entries, optionally narrowed
// to one reward type.
func (c *Core) PayoutQueue(ctx context.Context, typ entity.RewardType) ([]*entity.RewardCalculation, error) {
	ready, err := c.store.CalculationsByStatus(ctx, entity.CalcReadyToSend)
	if err != nil {
		return nil, fmt.Errorf("load payout queue: %w", err)
	}
	if typ == "" {
		return ready, nil
	}
	filtered := ready[:0]
	for _, calc := range ready {
		if calc.Type == typ {
			filtered = append(filtered, calc)
		}
	}
	return filtered, nil
}

// History lists settled (SENT) ledger entries.
func (c *Core) History(ctx context.Context) ([]*entity.RewardCalculation, error) {
	return c.store.CalculationsByStatus(ctx, entity.CalcSent)
}

// ResetHistory permanently deletes all SENT ledger entries.
// READY_TO_SEND entries are untouched.
func (c *Core) ResetHistory(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteCalculationsByStatus(ctx, entity.CalcSent)
	if err != nil {
		return 0, fmt.Errorf("reset history: %w", err)
	}
	c.log.Info("reward history reset", slog.Int64("deleted", deleted))
	return deleted, nil
}

// SendAchievement grants a manual event reward: the ledger entry is
// born SENT and the balance increment plus notification commit in one
// atomic write.
func (c *Core) SendAchievement(ctx context.Context, in *entity.AchievementInput) (*entity.RewardCalculation, error) {
	email := strings.ToLower(in.Email)
	user, err := c.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", email)
	}

	now := c.now()
	calc := &entity.RewardCalculation{
		ID:          uuid.NewString(),
		Type:        entity.RewardAchievement,
		TargetEmail: email,
		TargetName:  user.FullName,
		BonusAmount: in.Amount,
		Title:       in.Title,
		Description: in.Description,
		Status:      entity.CalcSent,
		CreatedAt:   now,
		SentAt:      &now,
	}
	notif := &entity.Notification{
		ID:        uuid.NewString(),
		UserEmail: email,
		Title:     fmt.Sprintf("Event Reward: %s", in.Title),
		Message:   fmt.Sprintf("+%d points! %s", in.Amount, in.Description),
		Type:      entity.NotifAchievement,
		CreatedAt: now,
	}
	if err := c.store.CommitAchievement(ctx, calc, notif); err != nil {
		return nil, fmt.Errorf("commit achievement: %w", err)
	}
	c.log.Info("achievement sent",
		slog.String("target", email),
		slog.Int64("amount", in.Amount),
	)
	return calc, nil
}

func payoutTitle(t entity.RewardType) string {
	if t == entity.RewardCashback {
		return "Cashback Received!"
	}
	return "Referral Reward Credited!"
}

// share computes base*pct in whole ledger units, rounded half away
// from zero.
func share(base int64, pct float64) int64 {
	return int64(math.Round(float64(base) * pct))
}
