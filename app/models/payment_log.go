package models

import "time"

const (
	PAYMENT_STATUS_PENDING   = "pending"
	PAYMENT_STATUS_SUCCEEDED = "succeeded"
	PAYMENT_STATUS_CANCELED  = "canceled"
)

// PaymentLog tracks a single checkout attempt. PurchaseID is the
// provider's payment identifier and doubles as the idempotency key:
// a confirmation for an already-succeeded purchase is a no-op.
type PaymentLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PurchaseID   string    `gorm:"uniqueIndex;type:varchar(191);not null" json:"purchase_id"`
	TelegramID   string    `gorm:"type:varchar(64);not null;index" json:"telegram_id"`
	Username     string    `gorm:"type:varchar(150)" json:"username"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Currency     string    `gorm:"type:varchar(8);not null;default:'rub'" json:"currency"`
	MonthsSub    int       `gorm:"not null;default:1" json:"months_sub"`
	Subscription string    `gorm:"type:varchar(20);not null" json:"subscription"`
	Status       string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Link         string    `gorm:"type:text" json:"link"`
	Description  string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
