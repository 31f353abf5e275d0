package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/app/repository"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/assistant"
)

var (
	// ErrMoodAlreadySet means the user already checked in today.
	ErrMoodAlreadySet = errors.New("profile: mood already set today")
	// ErrTooSoon means the last characteristic is younger than the
	// minimum generation interval.
	ErrTooSoon = errors.New("profile: characteristic generated too recently")
	// ErrNotEnoughData means the user has no dialog history to profile.
	ErrNotEnoughData = errors.New("profile: not enough dialog history")
)

// Completer is the LLM surface used for characteristic generation.
type Completer interface {
	Complete(ctx context.Context, req assistant.Request) (string, error)
}

const characteristicPrompt = "You are a psychological profiling assistant. " +
	"From the user's message history and daily mood scores (0-10), produce a JSON object with exactly these string fields: " +
	"current_mood, mood_trend, mood_stability, risk_group, stress_level, anxiety_level, communication_style, characteristic_accuracy " +
	"(accuracy as a percentage), and these string-array fields: strengths, weaknesses, personal_insights, recommendations. " +
	"Base every statement only on the supplied data. Respond with JSON only."

// characteristicPayload mirrors the JSON shape the model is asked for.
type characteristicPayload struct {
	CurrentMood            string   `json:"current_mood"`
	MoodTrend              string   `json:"mood_trend"`
	MoodStability          string   `json:"mood_stability"`
	RiskGroup              string   `json:"risk_group"`
	StressLevel            string   `json:"stress_level"`
	AnxietyLevel           string   `json:"anxiety_level"`
	Strengths              []string `json:"strengths"`
	Weaknesses             []string `json:"weaknesses"`
	CommunicationStyle     string   `json:"communication_style"`
	PersonalInsights       []string `json:"personal_insights"`
	Recommendations        []string `json:"recommendations"`
	CharacteristicAccuracy string   `json:"characteristic_accuracy"`
}

// Service owns mood check-ins and LLM-generated profile snapshots.
type Service struct {
	profile repository.ProfileRepository
	logs    repository.DialogLogRepository
	llm     Completer
	minDays int
	now     func() time.Time
}

// NewService wires the profile service. minDays is the minimum gap in
// days between two characteristic generations for the same user.
func NewService(profile repository.ProfileRepository, logs repository.DialogLogRepository, llm Completer, minDays int) *Service {
	if minDays <= 0 {
		minDays = 7
	}
	return &Service{
		profile: profile,
		logs:    logs,
		llm:     llm,
		minDays: minDays,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test seam.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SetMood records today's mood check-in. One entry per UTC day.
func (s *Service) SetMood(userID uint, mood int) error {
	entry := &models.UserMood{UserID: userID, Mood: mood}
	if err := entry.Validate(); err != nil {
		return err
	}

	set, err := s.profile.IsMoodSetToday(userID, s.now())
	if err != nil {
		return fmt.Errorf("check today's mood for user %d: %w", userID, err)
	}
	if set {
		return ErrMoodAlreadySet
	}

	return s.profile.CreateMood(entry)
}

// IsMoodSetToday reports whether the user already checked in today.
func (s *Service) IsMoodSetToday(userID uint) (bool, error) {
	return s.profile.IsMoodSetToday(userID, s.now())
}

// MayGenerate reports whether a new characteristic may be generated:
// always for a first-timer, otherwise only after the minimum interval.
// Errors fail closed.
func (s *Service) MayGenerate(userID uint) (bool, error) {
	latest, err := s.profile.LatestCharacteristic(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("fetch latest characteristic for user %d: %w", userID, err)
	}
	if latest == nil {
		return true, nil
	}

	days := int(s.now().Sub(latest.CreatedAt).Hours() / 24)
	return days >= s.minDays, nil
}

// LatestCharacteristic returns the most recent snapshot for a user.
func (s *Service) LatestCharacteristic(userID uint) (*models.UserCharacteristic, error) {
	return s.profile.LatestCharacteristic(userID)
}

// Generate builds a characteristic from the user's dialog and mood
// history and persists it. The interval gate applies.
func (s *Service) Generate(ctx context.Context, userID uint) (*models.UserCharacteristic, error) {
	ok, err := s.MayGenerate(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTooSoon
	}

	since := s.now().AddDate(0, -1, 0)
	records, err := s.logs.ListByUserSince(userID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch dialog history for user %d: %w", userID, err)
	}

	var messages []string
	for _, r := range records {
		if r.Role == models.DIALOG_ROLE_USER {
			messages = append(messages, r.Message)
		}
	}
	if len(messages) == 0 {
		return nil, ErrNotEnoughData
	}

	moods, err := s.profile.ListRecentMoods(userID, 30)
	if err != nil {
		log.Warnf("profile: mood history fetch failed for user %d, generating without it: %v", userID, err)
		moods = nil
	}
	moodValues := make([]string, 0, len(moods))
	for _, m := range moods {
		moodValues = append(moodValues, fmt.Sprintf("%d", m.Mood))
	}

	query := fmt.Sprintf("user_message_history: %s\n\nuser_mood_history: %s",
		strings.Join(messages, ", "), strings.Join(moodValues, ", "))

	raw, err := s.llm.Complete(ctx, assistant.Request{
		SystemPrompt: characteristicPrompt,
		Message:      query,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate characteristic for user %d: %w", userID, err)
	}

	var payload characteristicPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse characteristic response for user %d: %w", userID, err)
	}

	characteristic := &models.UserCharacteristic{
		UserID:                 userID,
		CurrentMood:            payload.CurrentMood,
		MoodTrend:              payload.MoodTrend,
		MoodStability:          payload.MoodStability,
		RiskGroup:              payload.RiskGroup,
		StressLevel:            payload.StressLevel,
		AnxietyLevel:           payload.AnxietyLevel,
		Strengths:              marshalList(payload.Strengths),
		Weaknesses:             marshalList(payload.Weaknesses),
		CommunicationStyle:     payload.CommunicationStyle,
		PersonalInsights:       marshalList(payload.PersonalInsights),
		Recommendations:        marshalList(payload.Recommendations),
		CharacteristicAccuracy: payload.CharacteristicAccuracy,
	}
	if err := s.profile.CreateCharacteristic(characteristic); err != nil {
		return nil, fmt.Errorf("persist characteristic for user %d: %w", userID, err)
	}

	log.Infof("profile: characteristic generated for user %d from %d messages and %d moods",
		userID, len(messages), len(moodValues))
	return characteristic, nil
}

// extractJSON peels a markdown code fence off a model response that
// ignored the JSON-only instruction.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
