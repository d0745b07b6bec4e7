package entity

import "time"

// Role is the normalized admin role used for permission checks.
// The legacy platform stored roles as free text ("admin lord",
// "admin referral code", ...), so every value read from the store goes
// through NormalizeRole before any capability check.
type Role string

const (
	RoleUser              Role = "user"
	RoleAdminReferral     Role = "admin_referral"
	RoleAdminDatabase     Role = "admin_database"
	RoleAdminReward       Role = "admin_reward"
	RoleAdminNotification Role = "admin_notification"
	RoleAdminLord         Role = "admin_lord" // super admin
)

// NormalizeRole maps known legacy role strings to Role variants.
// Unknown values fall back to the least-privileged RoleUser.
func NormalizeRole(raw string) Role {
	switch normalizeRoleKey(raw) {
	case "adminlord", "admin":
		return RoleAdminLord
	case "adminreferralcode", "adminreferral":
		return RoleAdminReferral
	case "admindatabase":
		return RoleAdminDatabase
	case "adminreward":
		return RoleAdminReward
	case "adminnotification":
		return RoleAdminNotification
	default:
		return RoleUser
	}
}

// normalizeRoleKey strips spaces, underscores and case so that
// "admin referral code", "admin_referral" and "adminReferral" collapse
// to the same key.
func normalizeRoleKey(raw string) string {
	key := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			key = append(key, r)
		case r >= 'A' && r <= 'Z':
			key = append(key, r+('a'-'A'))
		}
	}
	return string(key)
}

func (r Role) IsLord() bool {
	return r == RoleAdminLord
}

func (r Role) CanManageReferrals() bool {
	return r == RoleAdminReferral || r == RoleAdminLord
}

func (r Role) CanManageRewards() bool {
	return r == RoleAdminReward || r == RoleAdminLord
}

func (r Role) CanManageUsers() bool {
	return r == RoleAdminDatabase || r == RoleAdminLord
}

// User is an activated member account. The document id is the email,
// which is also the join key between registrations and the ledger.
// Balance only ever changes through atomic increments tied to a reward
// ledger entry; nothing overwrites it wholesale.
type User struct {
	Email        string    `json:"email" bson:"_id"`
	FullName     string    `json:"full_name" bson:"full_name"`
	Role         string    `json:"role" bson:"role"`
	Token        string    `json:"-" bson:"token"`
	Balance      int64     `json:"balance" bson:"balance"`
	Level        Tier      `json:"level" bson:"level"`
	ReferralCode string    `json:"referral_code" bson:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty" bson:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

func (u *User) NormalizedRole() Role {
	return NormalizeRole(u.Role)
}
