package models

import "time"

// UserCharacteristic is an LLM-derived psychological profile snapshot
// generated from a user's dialog and mood history. List-valued fields
// are stored as JSON text columns.
type UserCharacteristic struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_user_characteristics_user_created,priority:1" json:"user_id"`

	// mood analysis
	CurrentMood   string `gorm:"type:varchar(255)" json:"current_mood"`
	MoodTrend     string `gorm:"type:varchar(255)" json:"mood_trend"`
	MoodStability string `gorm:"type:varchar(255)" json:"mood_stability"`

	// risk assessment
	RiskGroup    string `gorm:"type:varchar(255)" json:"risk_group"`
	StressLevel  string `gorm:"type:varchar(255)" json:"stress_level"`
	AnxietyLevel string `gorm:"type:varchar(255)" json:"anxiety_level"`

	// personality traits
	Strengths          string `gorm:"type:text" json:"strengths"`
	Weaknesses         string `gorm:"type:text" json:"weaknesses"`
	CommunicationStyle string `gorm:"type:varchar(255)" json:"communication_style"`

	PersonalInsights string `gorm:"type:text" json:"personal_insights"`
	Recommendations  string `gorm:"type:text" json:"recommendations"`

	CharacteristicAccuracy string `gorm:"type:varchar(32)" json:"characteristic_accuracy"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_user_characteristics_user_created,priority:2" json:"created_at"`
}
