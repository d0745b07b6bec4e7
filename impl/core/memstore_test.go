package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"refsync/entity"
)

// memStore is an in-memory Store used by the pipeline tests. It keeps
// the same contracts as the Mongo implementation: lookups return
// (nil, nil) when no document exists, list results come back FIFO by
// creation time, and the commit methods are all-or-nothing with the
// payout commit conditional on READY_TO_SEND.
type memStore struct {
	regs   map[string]*entity.RegistrationRequest
	users  map[string]*entity.User
	calcs  map[string]*entity.RewardCalculation
	notifs []*entity.Notification
	price  *entity.PriceConfig
}

func newMemStore() *memStore {
	return &memStore{
		regs:  make(map[string]*entity.RegistrationRequest),
		users: make(map[string]*entity.User),
		calcs: make(map[string]*entity.RewardCalculation),
	}
}

func (m *memStore) InsertRegistrations(_ context.Context, regs []*entity.RegistrationRequest) error {
	for _, reg := range regs {
		if _, ok := m.regs[reg.Email]; ok {
			return fmt.Errorf("registration %s is already queued", reg.Email)
		}
	}
	for _, reg := range regs {
		c := *reg
		m.regs[reg.Email] = &c
	}
	return nil
}

func (m *memStore) Registrations(_ context.Context) ([]*entity.RegistrationRequest, error) {
	return m.sortedRegs(func(*entity.RegistrationRequest) bool { return true }), nil
}

func (m *memStore) RegistrationsByStatus(_ context.Context, status entity.RegistrationStatus) ([]*entity.RegistrationRequest, error) {
	return m.sortedRegs(func(r *entity.RegistrationRequest) bool { return r.Status == status }), nil
}

func (m *memStore) sortedRegs(keep func(*entity.RegistrationRequest) bool) []*entity.RegistrationRequest {
	var out []*entity.RegistrationRequest
	for _, reg := range m.regs {
		if keep(reg) {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func (m *memStore) RegistrationByEmail(_ context.Context, email string) (*entity.RegistrationRequest, error) {
	reg, ok := m.regs[email]
	if !ok {
		return nil, nil
	}
	c := *reg
	return &c, nil
}

func (m *memStore) SetRegistrationStatus(_ context.Context, email string, status entity.RegistrationStatus) error {
	if reg, ok := m.regs[email]; ok {
		reg.Status = status
	}
	return nil
}

func (m *memStore) DeleteRegistration(_ context.Context, email string) error {
	delete(m.regs, email)
	return nil
}

func (m *memStore) DeleteResettableRegistrations(_ context.Context) (int64, error) {
	var deleted int64
	for email, reg := range m.regs {
		if reg.Status.Resettable() {
			delete(m.regs, email)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) CountRegistrationsSince(_ context.Context, since time.Time) (int64, error) {
	var count int64
	for _, reg := range m.regs {
		if !reg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*entity.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

func (m *memStore) UserByToken(_ context.Context, token string) (*entity.User, error) {
	for _, user := range m.users {
		if user.Token == token {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) UserByReferralCode(_ context.Context, code string) (*entity.User, error) {
	for _, user := range m.users {
		if user.ReferralCode == code {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) CountReferrals(_ context.Context, code string) (int64, error) {
	var count int64
	for _, user := range m.users {
		if user.ReferredBy == code {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CommitCalculation(_ context.Context, res *CalculationResult) error {
	for _, entry := range res.Entries {
		c := *entry
		m.calcs[entry.ID] = &c
	}
	if res.LevelUpdate != nil {
		if user, ok := m.users[res.LevelUpdate.Email]; ok {
			user.Level = res.LevelUpdate.Level
		}
	}
	m.notifs = append(m.notifs, res.Notifications...)
	if reg, ok := m.regs[res.Registration.Email]; ok {
		reg.RewardStatus = entity.RewardCalculated
	}
	return nil
}

func (m *memStore) CommitPayout(_ context.Context, calc *entity.RewardCalculation, sentAt time.Time, notif *entity.Notification) error {
	stored, ok := m.calcs[calc.ID]
	if !ok || stored.Status != entity.CalcReadyToSend {
		return entity.ErrAlreadySent
	}
	stored.Status = entity.CalcSent
	stored.SentAt = &sentAt
	if user, ok := m.users[calc.TargetEmail]; ok {
		user.Balance += calc.BonusAmount
	}
	m.notifs = append(m.notifs, notif)
	return nil
}

func (m *memStore) CommitAchievement(_ context.Context, calc *entity.RewardCalculation, notif *entity.Notification) error {
	if user, ok := m.users[calc.TargetEmail]; ok {
		user.Balance += calc.BonusAmount
	}
	c := *calc
	m.calcs[calc.ID] = &c
	m.notifs = append(m.notifs, notif)
	return nil
}

func (m *memStore) CalculationByID(_ context.Context, id string) (*entity.RewardCalculation, error) {
	calc, ok := m.calcs[id]
	if !ok {
		return nil, nil
	}
	c := *calc
	return &c, nil
}

func (m *memStore) CalculationsByStatus(_ context.Context, status entity.CalculationStatus) ([]*entity.RewardCalculation, error) {
	var out []*entity.RewardCalculation
	for _, calc := range m.calcs {
		if calc.Status == status {
			out = append(out, calc)
		}
	}
	// newest first, same contract as the Mongo store
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) DeleteCalculationsByStatus(_ context.Context, status entity.CalculationStatus) (int64, error) {
	var deleted int64
	for id, calc := range m.calcs {
		if calc.Status == status {
			delete(m.calcs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) PriceConfig(_ context.Context) (*entity.PriceConfig, error) {
	if m.price == nil {
		return nil, nil
	}
	c := *m.price
	return &c, nil
}

func (m *memStore) SavePriceConfig(_ context.Context, p *entity.PriceConfig) error {
	c := *p
	m.price = &c
	return nil
}
