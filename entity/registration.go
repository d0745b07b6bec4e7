package entity

import (
	"net/http"
	"time"

	"refsync/lib/validate"
)

// RegistrationStatus is the queue lifecycle of a signup submission.
type RegistrationStatus string

const (
	StatusDraft    RegistrationStatus = "DRAFT"      // entered, unpaid
	StatusPaid     RegistrationStatus = "PAID"       // legacy, treated like DRAFT
	StatusSentToDB RegistrationStatus = "SENT_TO_DB" // payment confirmed, queued for account creation
	StatusVerified RegistrationStatus = "VERIFIED"   // account materialized in the user store
)

// Resettable reports whether a bulk queue reset may delete entries in
// this status. SENT_TO_DB and VERIFIED entries survive a reset.
func (s RegistrationStatus) Resettable() bool {
	return s == StatusDraft || s == StatusPaid
}

// RewardStatus tracks whether the reward engine has processed a
// verified registration.
type RewardStatus string

const (
	RewardPending    RewardStatus = "PENDING"
	RewardCalculated RewardStatus = "CALCULATED"
)

// NoReferral is the sentinel stored when an applicant signed up
// without a referral code.
const NoReferral = "-"

// RegistrationRequest is a raw signup submission awaiting payment
// confirmation and account creation. The document id is the email:
// one pending registration per applicant. Once VERIFIED the document
// persists as an audit record.
type RegistrationRequest struct {
	Email                 string             `json:"email" bson:"_id"`
	FullName              string             `json:"full_name" bson:"full_name"`
	Whatsapp              string             `json:"whatsapp" bson:"whatsapp"`
	UsedReferralCode      string             `json:"used_referral_code" bson:"used_referral_code"`
	GeneratedReferralCode string             `json:"generated_referral_code" bson:"generated_referral_code"`
	Status                RegistrationStatus `json:"status" bson:"status"`
	RewardStatus          RewardStatus       `json:"reward_status,omitempty" bson:"reward_status,omitempty"`
	CreatedAt             time.Time          `json:"created_at" bson:"created_at"`
	CreatedBy             string             `json:"created_by" bson:"created_by"`
}

// HasReferral reports whether the applicant used a real referral code.
func (r *RegistrationRequest) HasReferral() bool {
	return r.UsedReferralCode != "" && r.UsedReferralCode != NoReferral
}

// Calculated reports whether the reward engine already produced ledger
// entries for this registration.
func (r *RegistrationRequest) Calculated() bool {
	return r.RewardStatus == RewardCalculated
}

// Applicant is a single parsed intake row before a referral code is
// assigned.
type Applicant struct {
	FullName         string
	Whatsapp         string
	Email            string
	UsedReferralCode string
}

// ImportRequest carries the raw admin-pasted text of an intake batch.
type ImportRequest struct {
	RawText string `json:"raw_text" validate:"required"`
}

func (i *ImportRequest) Bind(_ *http.Request) error {
	return validate.Struct(i)
}
