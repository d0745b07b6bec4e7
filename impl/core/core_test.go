package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"refsync/entity"
)

var testTime = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func newTestCore(store *memStore) *Core {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(store, log, 100000)
	c.now = func() time.Time { return testTime }
	return c
}

func TestParseAndQueue(t *testing.T) {
	store := newMemStore()
	c := newTestCore(store)

	raw := "Fuad Hasan, 08123456789, fuad@example.com, ABC123\n" +
		"Jane Roe, 08987654321, jane@example.com"
	queued, err := c.ParseAndQueue(context.Background(), raw, "admin@example.com")
	if err != nil {
		t.Fatalf("ParseAndQueue: %v", err)
	}
	if queued != 2 {
		t.Fatalf("queued = %d, want 2", queued)
	}

	regs, err := c.Registrations(context.Background())
	if err != nil {
		t.Fatalf("Registrations: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("len(regs) = %d, want 2", len(regs))
	}
	codes := make(map[string]bool)
	for _, reg := range regs {
		if reg.Status != entity.StatusDraft {
			t.Errorf("%s status = %s, want DRAFT", reg.Email, reg.Status)
		}
		if reg.CreatedBy != "admin@example.com" {
			t.Errorf("%s created_by = %q", reg.Email, reg.CreatedBy)
		}
		if codes[reg.GeneratedReferralCode] {
			t.Errorf("duplicate referral code %s", reg.GeneratedReferralCode)
		}
		codes[reg.GeneratedReferralCode] = true
	}
}

func TestParseAndQueueDuplicateAbortsBatch(t *testing.T) {
	store := newMemStore()
	store.users["jane@example.com"] = &entity.User{Email: "jane@example.com"}
	c := newTestCore(store)

	raw := "Fuad Hasan, 08123456789, fuad@example.com\n" +
		"Jane Roe, 08987654321, jane@example.com"
	_, err := c.ParseAndQueue(context.Background(), raw, "admin@example.com")

	var dup *DuplicateEmailError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateEmailError", err)
	}
	if dup.Email != "jane@example.com" {
		t.Errorf("duplicate email = %q", dup.Email)
	}
	if len(store.regs) != 0 {
		t.Errorf("batch partially committed: %d registrations stored", len(store.regs))
	}
}

func TestParseAndQueueRejectsRepeatedEmailInBatch(t *testing.T) {
	store := newMemStore()
	c := newTestCore(store)

	raw := "Jane Roe, 08987654321, jane@example.com\n" +
		"Jane Again, 08123456789, jane@example.com"
	_, err := c.ParseAndQueue(context.Background(), raw, "admin@example.com")
	if err == nil {
		t.Fatal("expected error for repeated email in batch")
	}
	if !strings.Contains(err.Error(), "jane@example.com") {
		t.Errorf("err = %v, want offending email named", err)
	}
	if len(store.regs) != 0 {
		t.Errorf("batch partially committed: %d registrations stored", len(store.regs))
	}
}

func TestInsertRegistrationsRejectsQueuedEmail(t *testing.T) {
	store := newMemStore()
	store.regs["jane@example.com"] = &entity.RegistrationRequest{Email: "jane@example.com", Status: entity.StatusDraft}

	err := store.InsertRegistrations(context.Background(), []*entity.RegistrationRequest{
		{Email: "new@example.com"},
		{Email: "jane@example.com"},
	})
	if err == nil {
		t.Fatal("expected error for already queued email")
	}
	if !strings.Contains(err.Error(), "jane@example.com") {
		t.Errorf("err = %v, want offending email named", err)
	}
	if _, ok := store.regs["new@example.com"]; ok {
		t.Error("batch partially committed")
	}
}

func TestParseAndQueueRejectsUnparsableInput(t *testing.T) {
	c := newTestCore(newMemStore())
	if _, err := c.ParseAndQueue(context.Background(), "no emails here", "admin@example.com"); err == nil {
		t.Fatal("expected error for unparsable input")
	}
}

// The queue is FIFO by creation time no matter what order batches
// arrive in.
func TestRegistrationsFIFO(t *testing.T) {
	store := newMemStore()
	c := newTestCore(store)

	for _, reg := range []*entity.RegistrationRequest{
		{Email: "third@x.com", Status: entity.StatusVerified, CreatedAt: testTime.Add(2 * time.Hour)},
		{Email: "first@x.com", Status: entity.StatusVerified, CreatedAt: testTime},
		{Email: "second@x.com", Status: entity.StatusVerified, CreatedAt: testTime.Add(time.Hour)},
	} {
		if err := store.InsertRegistrations(context.Background(), []*entity.RegistrationRequest{reg}); err != nil {
			t.Fatalf("InsertRegistrations: %v", err)
		}
	}

	wantOrder := []string{"first@x.com", "second@x.com", "third@x.com"}

	regs, err := c.Registrations(context.Background())
	if err != nil {
		t.Fatalf("Registrations: %v", err)
	}
	if len(regs) != len(wantOrder) {
		t.Fatalf("len(regs) = %d, want %d", len(regs), len(wantOrder))
	}
	for i, want := range wantOrder {
		if regs[i].Email != want {
			t.Errorf("Registrations[%d] = %s, want %s", i, regs[i].Email, want)
		}
	}

	incoming, err := c.IncomingRegistrations(context.Background())
	if err != nil {
		t.Fatalf("IncomingRegistrations: %v", err)
	}
	if len(incoming) != len(wantOrder) {
		t.Fatalf("len(incoming) = %d, want %d", len(incoming), len(wantOrder))
	}
	for i, want := range wantOrder {
		if incoming[i].Email != want {
			t.Errorf("IncomingRegistrations[%d] = %s, want %s", i, incoming[i].Email, want)
		}
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	store := newMemStore()
	sent := testTime
	store.calcs["old"] = &entity.RewardCalculation{ID: "old", Status: entity.CalcSent, CreatedAt: testTime, SentAt: &sent}
	store.calcs["newest"] = &entity.RewardCalculation{ID: "newest", Status: entity.CalcSent, CreatedAt: testTime.Add(2 * time.Hour), SentAt: &sent}
	store.calcs["mid"] = &entity.RewardCalculation{ID: "mid", Status: entity.CalcSent, CreatedAt: testTime.Add(time.Hour), SentAt: &sent}
	c := newTestCore(store)

	history, err := c.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	for i, want := range []string{"newest", "mid", "old"} {
		if history[i].ID != want {
			t.Errorf("History[%d] = %s, want %s", i, history[i].ID, want)
		}
	}
}

func TestConfirmPayment(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.RegistrationStatus
		wantErr bool
	}{
		{"draft", entity.StatusDraft, false},
		{"legacy paid", entity.StatusPaid, false},
		{"already queued", entity.StatusSentToDB, true},
		{"already verified", entity.StatusVerified, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.regs["a@x.com"] = &entity.RegistrationRequest{Email: "a@x.com", Status: tt.status}
			c := newTestCore(store)

			err := c.ConfirmPayment(context.Background(), "a@x.com")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for status %s", tt.status)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConfirmPayment: %v", err)
			}
			if got := store.regs["a@x.com"].Status; got != entity.StatusSentToDB {
				t.Errorf("status = %s, want SENT_TO_DB", got)
			}
		})
	}
}

func TestConfirmPaymentUnknownRegistration(t *testing.T) {
	c := newTestCore(newMemStore())
	if err := c.ConfirmPayment(context.Background(), "ghost@x.com"); err == nil {
		t.Fatal("expected error for unknown registration")
	}
}

func TestReconcileVerifications(t *testing.T) {
	store := newMemStore()
	store.regs["done@x.com"] = &entity.RegistrationRequest{Email: "done@x.com", Status: entity.StatusSentToDB}
	store.regs["waiting@x.com"] = &entity.RegistrationRequest{Email: "waiting@x.com", Status: entity.StatusSentToDB}
	store.regs["draft@x.com"] = &entity.RegistrationRequest{Email: "draft@x.com", Status: entity.StatusDraft}
	store.users["done@x.com"] = &entity.User{Email: "done@x.com"}
	c := newTestCore(store)

	promoted := c.ReconcileVerifications(context.Background())
	if promoted != 1 {
		t.Fatalf("promoted = %d, want 1", promoted)
	}
	if got := store.regs["done@x.com"].Status; got != entity.StatusVerified {
		t.Errorf("done status = %s, want VERIFIED", got)
	}
	if got := store.regs["waiting@x.com"].Status; got != entity.StatusSentToDB {
		t.Errorf("waiting status = %s, want SENT_TO_DB", got)
	}
	if got := store.regs["draft@x.com"].Status; got != entity.StatusDraft {
		t.Errorf("draft status = %s, want DRAFT", got)
	}
}

// A referrer crossing the 10-referral line gets the Pro rate, a level
// update and a level-up notification; the new member gets welcome
// cashback.
func TestCalculateRewardWithTierPromotion(t *testing.T) {
	store := newMemStore()
	store.users["ref@x.com"] = &entity.User{
		Email:        "ref@x.com",
		FullName:     "Referrer",
		Level:        entity.TierRookie,
		ReferralCode: "REF123",
	}
	for _, email := range []string{
		"m1@x.com", "m2@x.com", "m3@x.com", "m4@x.com", "m5@x.com", "m6@x.com",
		"m7@x.com", "m8@x.com", "m9@x.com", "m10@x.com", "m11@x.com", "m12@x.com",
	} {
		store.users[email] = &entity.User{Email: email, ReferredBy: "REF123"}
	}
	store.regs["new@x.com"] = &entity.RegistrationRequest{
		Email:            "new@x.com",
		FullName:         "New Member",
		UsedReferralCode: "REF123",
		Status:           entity.StatusVerified,
	}
	c := newTestCore(store)

	entries, err := c.CalculateReward(context.Background(), "new@x.com")
	if err != nil {
		t.Fatalf("CalculateReward: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	var bonus, cashback *entity.RewardCalculation
	for _, e := range entries {
		switch e.Type {
		case entity.RewardReferralBonus:
			bonus = e
		case entity.RewardCashback:
			cashback = e
		}
	}
	if bonus == nil || cashback == nil {
		t.Fatalf("missing entry types: bonus=%v cashback=%v", bonus, cashback)
	}

	if bonus.Tier != entity.TierPro {
		t.Errorf("bonus tier = %s, want Pro", bonus.Tier)
	}
	if bonus.ReferralCount != 12 {
		t.Errorf("referral count = %d, want 12", bonus.ReferralCount)
	}
	if bonus.BonusAmount != 7000 {
		t.Errorf("bonus amount = %d, want 7000", bonus.BonusAmount)
	}
	if bonus.TargetEmail != "ref@x.com" {
		t.Errorf("bonus target = %s", bonus.TargetEmail)
	}

	if cashback.BonusAmount != 5000 {
		t.Errorf("cashback amount = %d, want 5000", cashback.BonusAmount)
	}
	if cashback.Description != "Welcome Cashback (5%) - New Member" {
		t.Errorf("cashback description = %q", cashback.Description)
	}

	if got := store.users["ref@x.com"].Level; got != entity.TierPro {
		t.Errorf("referrer level = %s, want Pro", got)
	}
	levelUp := false
	for _, n := range store.notifs {
		if n.UserEmail == "ref@x.com" && n.Type == entity.NotifSystem {
			levelUp = true
		}
	}
	if !levelUp {
		t.Error("level-up notification not emitted")
	}
	if !store.regs["new@x.com"].Calculated() {
		t.Error("registration not marked CALCULATED")
	}
}

func TestCalculateRewardCashbackEligibility(t *testing.T) {
	tests := []struct {
		name        string
		member      *entity.User
		wantEntries int
		wantAmount  int64
	}{
		{"new member", nil, 1, 5000},
		{"rookie renewal", &entity.User{Email: "r@x.com", Level: entity.TierRookie}, 0, 0},
		{"pro renewal", &entity.User{Email: "r@x.com", Level: entity.TierPro}, 1, 5000},
		{"legend renewal", &entity.User{Email: "r@x.com", Level: entity.TierLegend}, 1, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.member != nil {
				store.users["r@x.com"] = tt.member
			}
			store.regs["r@x.com"] = &entity.RegistrationRequest{
				Email:            "r@x.com",
				UsedReferralCode: entity.NoReferral,
				Status:           entity.StatusVerified,
			}
			c := newTestCore(store)

			entries, err := c.CalculateReward(context.Background(), "r@x.com")
			if err != nil {
				t.Fatalf("CalculateReward: %v", err)
			}
			if len(entries) != tt.wantEntries {
				t.Fatalf("len(entries) = %d, want %d", len(entries), tt.wantEntries)
			}
			if tt.wantEntries > 0 && entries[0].BonusAmount != tt.wantAmount {
				t.Errorf("amount = %d, want %d", entries[0].BonusAmount, tt.wantAmount)
			}
			// zero entries is still a completed calculation
			if !store.regs["r@x.com"].Calculated() {
				t.Error("registration not marked CALCULATED")
			}
		})
	}
}

func TestCalculateRewardGuards(t *testing.T) {
	store := newMemStore()
	store.regs["draft@x.com"] = &entity.RegistrationRequest{Email: "draft@x.com", Status: entity.StatusDraft}
	store.regs["done@x.com"] = &entity.RegistrationRequest{
		Email:        "done@x.com",
		Status:       entity.StatusVerified,
		RewardStatus: entity.RewardCalculated,
	}
	c := newTestCore(store)

	if _, err := c.CalculateReward(context.Background(), "draft@x.com"); err == nil {
		t.Error("expected error for unverified registration")
	}
	if _, err := c.CalculateReward(context.Background(), "done@x.com"); err == nil {
		t.Error("expected error for already calculated registration")
	}
	if _, err := c.CalculateReward(context.Background(), "ghost@x.com"); err == nil {
		t.Error("expected error for unknown registration")
	}
}

func TestPayoutSettlesOnce(t *testing.T) {
	store := newMemStore()
	store.users["u@x.com"] = &entity.User{Email: "u@x.com", Balance: 100}
	store.calcs["calc-1"] = &entity.RewardCalculation{
		ID:          "calc-1",
		Type:        entity.RewardReferralBonus,
		TargetEmail: "u@x.com",
		BonusAmount: 7000,
		Status:      entity.CalcReadyToSend,
	}
	c := newTestCore(store)

	if err := c.Payout(context.Background(), "calc-1"); err != nil {
		t.Fatalf("Payout: %v", err)
	}
	if got := store.users["u@x.com"].Balance; got != 7100 {
		t.Fatalf("balance = %d, want 7100", got)
	}
	if got := store.calcs["calc-1"].Status; got != entity.CalcSent {
		t.Errorf("status = %s, want SENT", got)
	}
	if store.calcs["calc-1"].SentAt == nil {
		t.Error("sent_at not stamped")
	}
	if len(store.notifs) != 1 {
		t.Fatalf("len(notifs) = %d, want 1", len(store.notifs))
	}
	if store.notifs[0].Type != entity.NotifReward {
		t.Errorf("notification type = %s, want REWARD", store.notifs[0].Type)
	}

	// repeat settles nothing
	err := c.Payout(context.Background(), "calc-1")
	if !errors.Is(err, entity.ErrAlreadySent) {
		t.Fatalf("second payout err = %v, want ErrAlreadySent", err)
	}
	if got := store.users["u@x.com"].Balance; got != 7100 {
		t.Errorf("balance after repeat = %d, want 7100", got)
	}
	if len(store.notifs) != 1 {
		t.Errorf("len(notifs) after repeat = %d, want 1", len(store.notifs))
	}
}

// A payout working from a stale read loses the conditional write and
// must not touch the balance.
func TestCommitPayoutStaleRead(t *testing.T) {
	store := newMemStore()
	store.users["u@x.com"] = &entity.User{Email: "u@x.com"}
	store.calcs["calc-1"] = &entity.RewardCalculation{
		ID:          "calc-1",
		TargetEmail: "u@x.com",
		BonusAmount: 5000,
		Status:      entity.CalcReadyToSend,
	}

	stale, _ := store.CalculationByID(context.Background(), "calc-1")

	notif := &entity.Notification{ID: "n1", UserEmail: "u@x.com"}
	if err := store.CommitPayout(context.Background(), stale, testTime, notif); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	err := store.CommitPayout(context.Background(), stale, testTime, notif)
	if !errors.Is(err, entity.ErrAlreadySent) {
		t.Fatalf("stale commit err = %v, want ErrAlreadySent", err)
	}
	if got := store.users["u@x.com"].Balance; got != 5000 {
		t.Errorf("balance = %d, want 5000", got)
	}
}

func TestBulkPayoutIsolation(t *testing.T) {
	store := newMemStore()
	store.users["u@x.com"] = &entity.User{Email: "u@x.com"}
	ids := []string{"c1", "c2", "ghost", "c3", "c4"}
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		store.calcs[id] = &entity.RewardCalculation{
			ID:          id,
			TargetEmail: "u@x.com",
			BonusAmount: 1000,
			Status:      entity.CalcReadyToSend,
		}
	}
	c := newTestCore(store)

	result, err := c.BulkPayout(context.Background(), ids, "")
	if err != nil {
		t.Fatalf("BulkPayout: %v", err)
	}
	if result.Succeeded != 4 {
		t.Errorf("succeeded = %d, want 4", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("len(failed) = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].ID != "ghost" {
		t.Errorf("failed id = %s, want ghost", result.Failed[0].ID)
	}
	if got := store.users["u@x.com"].Balance; got != 4000 {
		t.Errorf("balance = %d, want 4000", got)
	}
}

func TestBulkCalculateDrainsIncomingQueue(t *testing.T) {
	store := newMemStore()
	store.regs["a@x.com"] = &entity.RegistrationRequest{
		Email: "a@x.com", UsedReferralCode: entity.NoReferral,
		Status: entity.StatusVerified, CreatedAt: testTime,
	}
	store.regs["b@x.com"] = &entity.RegistrationRequest{
		Email: "b@x.com", UsedReferralCode: entity.NoReferral,
		Status: entity.StatusVerified, CreatedAt: testTime.Add(time.Minute),
	}
	store.regs["draft@x.com"] = &entity.RegistrationRequest{Email: "draft@x.com", Status: entity.StatusDraft}
	c := newTestCore(store)

	result, err := c.BulkCalculate(context.Background(), nil)
	if err != nil {
		t.Fatalf("BulkCalculate: %v", err)
	}
	if result.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", result.Succeeded)
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %v, want none", result.Failed)
	}

	incoming, err := c.IncomingRegistrations(context.Background())
	if err != nil {
		t.Fatalf("IncomingRegistrations: %v", err)
	}
	if len(incoming) != 0 {
		t.Errorf("incoming after drain = %d, want 0", len(incoming))
	}
}

func TestResetHistoryKeepsQueue(t *testing.T) {
	store := newMemStore()
	sent := testTime
	store.calcs["s1"] = &entity.RewardCalculation{ID: "s1", Status: entity.CalcSent, SentAt: &sent}
	store.calcs["s2"] = &entity.RewardCalculation{ID: "s2", Status: entity.CalcSent, SentAt: &sent}
	store.calcs["ready"] = &entity.RewardCalculation{ID: "ready", Status: entity.CalcReadyToSend}
	c := newTestCore(store)

	deleted, err := c.ResetHistory(context.Background())
	if err != nil {
		t.Fatalf("ResetHistory: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if _, ok := store.calcs["ready"]; !ok {
		t.Error("READY_TO_SEND entry deleted by history reset")
	}
}

func TestResetDraftQueueKeepsProcessing(t *testing.T) {
	store := newMemStore()
	store.regs["d@x.com"] = &entity.RegistrationRequest{Email: "d@x.com", Status: entity.StatusDraft}
	store.regs["p@x.com"] = &entity.RegistrationRequest{Email: "p@x.com", Status: entity.StatusPaid}
	store.regs["q@x.com"] = &entity.RegistrationRequest{Email: "q@x.com", Status: entity.StatusSentToDB}
	store.regs["v@x.com"] = &entity.RegistrationRequest{Email: "v@x.com", Status: entity.StatusVerified}
	c := newTestCore(store)

	deleted, err := c.ResetDraftQueue(context.Background())
	if err != nil {
		t.Fatalf("ResetDraftQueue: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	for _, email := range []string{"q@x.com", "v@x.com"} {
		if _, ok := store.regs[email]; !ok {
			t.Errorf("%s deleted by queue reset", email)
		}
	}
}

func TestSendAchievement(t *testing.T) {
	store := newMemStore()
	store.users["u@x.com"] = &entity.User{Email: "u@x.com", FullName: "User", Balance: 50}
	c := newTestCore(store)

	calc, err := c.SendAchievement(context.Background(), &entity.AchievementInput{
		Email:  "U@x.com",
		Title:  "Quiz Winner",
		Amount: 2500,
	})
	if err != nil {
		t.Fatalf("SendAchievement: %v", err)
	}
	if calc.Status != entity.CalcSent {
		t.Errorf("status = %s, want SENT", calc.Status)
	}
	if calc.SentAt == nil {
		t.Error("sent_at not stamped")
	}
	if got := store.users["u@x.com"].Balance; got != 2550 {
		t.Errorf("balance = %d, want 2550", got)
	}
	if len(store.notifs) != 1 || store.notifs[0].Type != entity.NotifAchievement {
		t.Errorf("achievement notification missing: %v", store.notifs)
	}
}

func TestSendAchievementUnknownUser(t *testing.T) {
	c := newTestCore(newMemStore())
	_, err := c.SendAchievement(context.Background(), &entity.AchievementInput{
		Email: "ghost@x.com", Title: "X", Amount: 1,
	})
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestBasePriceVersions(t *testing.T) {
	store := newMemStore()
	c := newTestCore(store)

	price, err := c.BasePrice(context.Background())
	if err != nil {
		t.Fatalf("BasePrice: %v", err)
	}
	if price.Amount != 100000 {
		t.Errorf("default amount = %d, want 100000", price.Amount)
	}
	if store.price != nil {
		t.Error("default price must not be persisted")
	}

	if _, err = c.SetBasePrice(context.Background(), 0, "admin@x.com"); err == nil {
		t.Error("expected error for non-positive price")
	}

	updated, err := c.SetBasePrice(context.Background(), 150000, "admin@x.com")
	if err != nil {
		t.Fatalf("SetBasePrice: %v", err)
	}
	if updated.UpdatedBy != "admin@x.com" || !updated.EffectiveAt.Equal(testTime) {
		t.Errorf("version fields = %+v", updated)
	}

	// new calculations pick up the new base
	store.regs["n@x.com"] = &entity.RegistrationRequest{
		Email: "n@x.com", UsedReferralCode: entity.NoReferral, Status: entity.StatusVerified,
	}
	entries, err := c.CalculateReward(context.Background(), "n@x.com")
	if err != nil {
		t.Fatalf("CalculateReward: %v", err)
	}
	if len(entries) != 1 || entries[0].BonusAmount != 7500 {
		t.Fatalf("entries = %+v, want one 7500 cashback", entries)
	}
}

func TestAuthenticateByToken(t *testing.T) {
	store := newMemStore()
	store.users["u@x.com"] = &entity.User{Email: "u@x.com", Token: "secret"}
	c := newTestCore(store)

	if _, err := c.AuthenticateByToken(context.Background(), "secret"); err == nil {
		t.Fatal("expected error before auth service is connected")
	}

	c.SetAuthService(authStub{store})
	user, err := c.AuthenticateByToken(context.Background(), "secret")
	if err != nil {
		t.Fatalf("AuthenticateByToken: %v", err)
	}
	if user.Email != "u@x.com" {
		t.Errorf("user = %s", user.Email)
	}
}

type authStub struct{ store *memStore }

func (a authStub) UserByToken(ctx context.Context, token string) (*entity.User, error) {
	user, err := a.store.UserByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("unknown token")
	}
	return user, nil
}
