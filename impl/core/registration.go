package core

import (
	"context"
	"fmt"
	"log/slog"

	"refsync/entity"
	"refsync/internal/intake"
	"refsync/lib/clock"
	"refsync/lib/refcode"
	"refsync/lib/sl"
)

// DuplicateEmailError aborts an entire import batch: the offending
// email already belongs to an activated account, and committing any
// row of the batch could re-issue its referral code.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %s is already registered as an active user", e.Email)
}

// ParseAndQueue parses a raw intake batch, guards every applicant
// against the user store, assigns referral codes and persists the
// whole batch as DRAFT registrations in one all-or-nothing write.
// The daily sequence feeding the code generator starts at today's
// registration count plus one and increments per row.
func (c *Core) ParseAndQueue(ctx context.Context, raw, createdBy string) (int, error) {
	applicants := intake.Parse(raw)
	if len(applicants) == 0 {
		return 0, fmt.Errorf("unrecognized format: expected full name, whatsapp and email per row")
	}

	now := c.now()
	todayCount, err := c.store.CountRegistrationsSince(ctx, clock.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("count today's registrations: %w", err)
	}

	seq := int(todayCount) + 1
	seen := make(map[string]bool, len(applicants))
	regs := make([]*entity.RegistrationRequest, 0, len(applicants))
	for _, a := range applicants {
		if seen[a.Email] {
			return 0, fmt.Errorf("email %s appears twice in the batch", a.Email)
		}
		seen[a.Email] = true

		existing, err := c.store.UserByEmail(ctx, a.Email)
		if err != nil {
			return 0, fmt.Errorf("check existing user %s: %w", a.Email, err)
		}
		if existing != nil {
			return 0, &DuplicateEmailError{Email: a.Email}
		}

		regs = append(regs, &entity.RegistrationRequest{
			Email:                 a.Email,
			FullName:              a.FullName,
			Whatsapp:              a.Whatsapp,
			UsedReferralCode:      a.UsedReferralCode,
			GeneratedReferralCode: refcode.Generate(a.Email, a.Whatsapp, a.UsedReferralCode, seq, now),
			Status:                entity.StatusDraft,
			CreatedAt:             now,
			CreatedBy:             createdBy,
		})
		seq++
	}

	if err := c.store.InsertRegistrations(ctx, regs); err != nil {
		return 0, fmt.Errorf("queue registrations: %w", err)
	}
	c.log.Info("registrations queued",
		slog.Int("count", len(regs)),
		slog.String("created_by", createdBy),
	)
	return len(regs), nil
}

// Registrations returns the whole queue, oldest first.
func (c *Core) Registrations(ctx context.Context) ([]*entity.RegistrationRequest, error) {
	return c.store.Registrations(ctx)
}

// ConfirmPayment moves one DRAFT registration into the processing
// queue. This is the trigger the account-materialization tooling acts
// on.
func (c *Core) ConfirmPayment(ctx context.Context, email string) error {
	reg, err := c.store.RegistrationByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return fmt.Errorf("registration %s not found", email)
	}
	if !reg.Status.Resettable() {
		return fmt.Errorf("registration %s is %s, only unpaid entries can be confirmed", email, reg.Status)
	}
	if err := c.store.SetRegistrationStatus(ctx, email, entity.StatusSentToDB); err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	c.log.Info("payment confirmed", slog.String("registration", email))
	return nil
}

// DeleteRegistration removes a single queue entry regardless of status.
func (c *Core) DeleteRegistration(ctx context.Context, email string) error {
	reg, err := c.store.RegistrationByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return fmt.Errorf("registration %s not found", email)
	}
	if err := c.store.DeleteRegistration(ctx, email); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	c.log.Info("registration deleted", slog.String("registration", email))
	return nil
}

// ResetDraftQueue deletes every DRAFT and legacy PAID entry. Queued
// (SENT_TO_DB) and VERIFIED entries are never touched by a reset.
func (c *Core) ResetDraftQueue(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteResettableRegistrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset draft queue: %w", err)
	}
	c.log.Info("draft queue reset", slog.Int64("deleted", deleted))
	return deleted, nil
}

// ReconcileVerifications promotes SENT_TO_DB registrations whose user
// account has been materialized by the external admin workflow. A
// failed existence check is logged and retried on the next tick; a
// registration is never promoted without a confirmed user document.
func (c *Core) ReconcileVerifications(ctx context.Context) int {
	pending, err := c.store.RegistrationsByStatus(ctx, entity.StatusSentToDB)
	if err != nil {
		c.log.Error("load pending verifications", sl.Err(err))
		return 0
	}

	promoted := 0
	for _, reg := range pending {
		user, err := c.store.UserByEmail(ctx, reg.Email)
		if err != nil {
			c.log.Warn("verification check failed",
				slog.String("registration", reg.Email), sl.Err(err))
			continue
		}
		if user == nil {
			continue
		}
		if err := c.store.SetRegistrationStatus(ctx, reg.Email, entity.StatusVerified); err != nil {
			c.log.Warn("promote to verified failed",
				slog.String("registration", reg.Email), sl.Err(err))
			continue
		}
		promoted++
	}
	return promoted
}
