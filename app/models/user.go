package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	SUBSCRIPTION_FREE     = "free"
	SUBSCRIPTION_STANDARD = "standard"
	SUBSCRIPTION_PRO      = "pro"
)

// User is the per-Telegram-account record carrying the subscription tier
// and the usage counters the quota policy decides on. Exactly one of the
// two counters is authoritative at a time: DailyMessagesUsed for free
// users, MessagesUsed for standard users. Pro has no counter.
type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	TelegramID            string         `gorm:"uniqueIndex;type:varchar(64);not null" json:"telegram_id" validate:"required,max=64"`
	Username              string         `gorm:"type:varchar(150)" json:"username" validate:"max=150"`
	FirstName             string         `gorm:"type:varchar(150)" json:"first_name" validate:"max=150"`
	LastName              string         `gorm:"type:varchar(150)" json:"last_name" validate:"max=150"`
	Role                  string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Subscription          string         `gorm:"type:varchar(20);default:'free';index" json:"subscription" validate:"oneof=free standard pro"`
	SubscriptionStart     *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_start,omitempty"`
	SubscriptionDateEnd   *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_date_end,omitempty"`
	MessagesUsed          int            `gorm:"not null;default:0" json:"messages_used" validate:"min=0"`
	DailyMessagesUsed     int            `gorm:"not null;default:0" json:"daily_messages_used" validate:"min=0"`
	LastDailyReset        *time.Time     `gorm:"type:timestamp;default:null" json:"last_daily_reset,omitempty"`
	DialogsCompleted      int            `gorm:"not null;default:0" json:"dialogs_completed"`
	DialogsCompletedToday int            `gorm:"not null;default:0" json:"dialogs_completed_today"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewUser creates a free-tier user record for a Telegram account on
// first contact.
func NewUser(telegramID, username, firstName, lastName string) (*User, error) {
	u := &User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         ROLE_USER,
		Subscription: SUBSCRIPTION_FREE,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// IsPaid reports whether the user currently holds a paid tier.
func (u *User) IsPaid() bool {
	return u.Subscription != SUBSCRIPTION_FREE
}

// HasSubscriptionWindow reports whether both term boundaries are
// recorded. Standard users without a window fail the quota check.
func (u *User) HasSubscriptionWindow() bool {
	return u.SubscriptionStart != nil && u.SubscriptionDateEnd != nil
}
