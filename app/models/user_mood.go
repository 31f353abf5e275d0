package models

import (
	"fmt"
	"time"
)

const (
	MoodMin = 0
	MoodMax = 10
)

// UserMood is a daily mood check-in on a 0..10 scale. At most one entry
// per user per UTC day is expected; the repository enforces the window.
type UserMood struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_user_moods_user_created,priority:1" json:"user_id"`
	Mood      int       `gorm:"not null" json:"mood"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_user_moods_user_created,priority:2" json:"created_at"`
}

func (m *UserMood) Validate() error {
	if m.Mood < MoodMin || m.Mood > MoodMax {
		return fmt.Errorf("mood value %d out of range %d..%d", m.Mood, MoodMin, MoodMax)
	}
	return nil
}
