package entity

import (
	"errors"
	"net/http"
	"time"

	"refsync/lib/validate"
)

// RewardType classifies a ledger entry.
type RewardType string

const (
	RewardCashback      RewardType = "CASHBACK"
	RewardReferralBonus RewardType = "REFERRAL_BONUS"
	RewardAchievement   RewardType = "ACHIEVEMENT"
)

// CalculationStatus is the payout lifecycle of a ledger entry.
type CalculationStatus string

const (
	CalcReadyToSend CalculationStatus = "READY_TO_SEND"
	CalcSent        CalculationStatus = "SENT"
)

// ErrAlreadySent is returned when a payout loses the conditional status
// write: the entry was paid out by another actor between read and
// commit. The target balance is untouched in that case.
var ErrAlreadySent = errors.New("calculation already sent")

// RewardCalculation is a computed, not-yet-paid or already-paid bonus
// or cashback ledger entry. An entry transitions READY_TO_SEND to SENT
// exactly once; the stored status is the durable proof of completion.
type RewardCalculation struct {
	ID              string            `json:"id" bson:"_id"`
	SourceID        string            `json:"source_id,omitempty" bson:"source_id,omitempty"`
	Type            RewardType        `json:"type" bson:"type"`
	TargetEmail     string            `json:"target_email" bson:"target_email"`
	TargetName      string            `json:"target_name" bson:"target_name"`
	Tier            Tier              `json:"tier,omitempty" bson:"tier,omitempty"`
	ReferralCount   int64             `json:"referral_count,omitempty" bson:"referral_count,omitempty"`
	Percentage      float64           `json:"percentage,omitempty" bson:"percentage,omitempty"`
	TransactionBase int64             `json:"transaction_base,omitempty" bson:"transaction_base,omitempty"`
	BonusAmount     int64             `json:"bonus_amount" bson:"bonus_amount"`
	Title           string            `json:"title,omitempty" bson:"title,omitempty"`
	Description     string            `json:"description" bson:"description"`
	Status          CalculationStatus `json:"status" bson:"status"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	SentAt          *time.Time        `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
}

// BulkFailure records one skipped item of a bulk run.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult is the outcome of a sequential bulk operation. Callers
// must inspect both the count and the failure list; a bulk run never
// fails as a whole because of a single bad item.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed,omitempty"`
}

// BulkRequest optionally narrows a bulk operation to specific ids.
// An empty list means "the whole eligible queue".
type BulkRequest struct {
	IDs []string `json:"ids"`
}

func (b *BulkRequest) Bind(_ *http.Request) error {
	return nil
}

// AchievementInput is a manually granted event reward.
type AchievementInput struct {
	Email       string `json:"email" validate:"required,email"`
	Title       string `json:"title" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description"`
}

func (a *AchievementInput) Bind(_ *http.Request) error {
	return validate.Struct(a)
}
