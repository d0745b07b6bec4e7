package entity

import "time"

type NotificationType string

const (
	NotifReward      NotificationType = "REWARD"
	NotifSystem      NotificationType = "SYSTEM"
	NotifAchievement NotificationType = "ACHIEVEMENT"
)

// Notification is a user-facing message emitted alongside a payout,
// level change or manual event reward. The surrounding UI renders and
// marks these; the pipeline only creates them.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	UserEmail string           `json:"user_email" bson:"user_email"`
	Title     string           `json:"title" bson:"title"`
	Message   string           `json:"message" bson:"message"`
	Type      NotificationType `json:"type" bson:"type"`
	IsRead    bool             `json:"is_read" bson:"is_read"`
	Link      string           `json:"link,omitempty" bson:"link,omitempty"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}
