package models

import "time"

const (
	DIALOG_ROLE_USER      = "user"
	DIALOG_ROLE_ASSISTANT = "assistant"
)

// DialogLog is the durable, append-only record of a single conversation
// turn. The Redis history buffer only feeds the LLM context window; this
// table is the permanent record and is never mutated after creation.
type DialogLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_dialog_logs_user_created,priority:1" json:"user_id"`
	SessionID string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Scope     string    `gorm:"type:varchar(50);not null;index" json:"scope"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_dialog_logs_user_created,priority:2" json:"created_at"`
}
