package model

import (
	"strings"
	"time"
)

// FollowUpStage tracks where a lead sits in the follow-up cadence.
type FollowUpStage string

const (
	StageScheduled FollowUpStage = "scheduled"
	StageFirst     FollowUpStage = "first"
	StageSecond    FollowUpStage = "second"
	StageThird     FollowUpStage = "third"
	StageFourth    FollowUpStage = "fourth"
	StageFinal     FollowUpStage = "final"
	StageExhausted FollowUpStage = "exhausted"
)

// StageOrder is the progression of follow-up stages. Exhausted is terminal
// and only entered when the send count hits the cap.
var StageOrder = []FollowUpStage{
	StageScheduled, StageFirst, StageSecond, StageThird, StageFourth, StageFinal,
}

// Next returns the stage after s, capped at final. Exhausted stays exhausted.
func (s FollowUpStage) Next() FollowUpStage {
	for i, st := range StageOrder {
		if st == s {
			if i+1 < len(StageOrder) {
				return StageOrder[i+1]
			}
			return StageFinal
		}
	}
	return s
}

// ChatMessage is one entry in a lead's transcript.
type ChatMessage struct {
	Sender string    `json:"sender"` // "lead" or "assistant"
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Lead is the persisted state for one phone number. Qualification fields use
// the empty string for "unknown"; phase is always derived, never stored.
type Lead struct {
	ID    string `json:"id"`
	Phone string `json:"phone"` // E.164, unique key

	// Required qualification fields.
	MoveInDate string `json:"move_in_date"`
	Price      string `json:"price"`
	Beds       string `json:"beds"`
	Baths      string `json:"baths"`
	Location   string `json:"location"`
	Amenities  string `json:"amenities"`

	// Optional qualification fields.
	BostonRentalExperience string `json:"boston_rental_experience"`

	// Contact fields. Never gate phase progression.
	Name  string `json:"name"`
	Email string `json:"email"`

	TourAvailability string        `json:"tour_availability"`
	TourReady        bool          `json:"tour_ready"`
	ChatHistory      []ChatMessage `json:"chat_history"`

	FollowUpCount       int           `json:"follow_up_count"`
	FollowUpStage       FollowUpStage `json:"follow_up_stage"`
	NextFollowUpTime    *time.Time    `json:"next_follow_up_time,omitempty"`
	FollowUpPausedUntil *time.Time    `json:"follow_up_paused_until,omitempty"`
	OptionalAsked       int           `json:"optional_asked"`

	DateConnected time.Time `json:"date_connected"`
	LastContacted time.Time `json:"last_contacted"`

	// Version is the optimistic-concurrency token; Save rejects writes whose
	// version does not match the stored row.
	Version int64 `json:"version"`
}

// NewLead returns a lead with all-default values for a normalized phone.
func NewLead(phone string, now time.Time) *Lead {
	return &Lead{
		Phone:         phone,
		FollowUpStage: StageScheduled,
		DateConnected: now,
	}
}

// Field returns the value of a qualification or contact field by registry key.
func (l *Lead) Field(key string) string {
	switch key {
	case FieldMoveInDate:
		return l.MoveInDate
	case FieldPrice:
		return l.Price
	case FieldBeds:
		return l.Beds
	case FieldBaths:
		return l.Baths
	case FieldLocation:
		return l.Location
	case FieldAmenities:
		return l.Amenities
	case FieldBostonRentalExperience:
		return l.BostonRentalExperience
	case FieldTourAvailability:
		return l.TourAvailability
	case FieldName:
		return l.Name
	case FieldEmail:
		return l.Email
	}
	return ""
}

// SetField sets a field by registry key. Unknown keys are ignored so that
// extraction output with extra keys cannot corrupt the record.
func (l *Lead) SetField(key, value string) {
	switch key {
	case FieldMoveInDate:
		l.MoveInDate = value
	case FieldPrice:
		l.Price = value
	case FieldBeds:
		l.Beds = value
	case FieldBaths:
		l.Baths = value
	case FieldLocation:
		l.Location = value
	case FieldAmenities:
		l.Amenities = value
	case FieldBostonRentalExperience:
		l.BostonRentalExperience = value
	case FieldTourAvailability:
		l.TourAvailability = value
	case FieldName:
		l.Name = value
	case FieldEmail:
		l.Email = value
	}
}

// MergeExtracted applies extraction output under the monotonic rule: only
// non-empty trimmed values are written, so a failed extraction can never
// clear a field that was previously answered. Returns the keys that changed.
func (l *Lead) MergeExtracted(extracted map[string]string) []string {
	var changed []string
	for key, value := range extracted {
		v := strings.TrimSpace(value)
		if v == "" {
			continue
		}
		if l.Field(key) == v {
			continue
		}
		prev := l.Field(key)
		l.SetField(key, v)
		if l.Field(key) != prev {
			changed = append(changed, key)
		}
	}
	return changed
}

// AppendMessage appends to the transcript. The transcript is append-only.
func (l *Lead) AppendMessage(sender, text string, at time.Time) {
	l.ChatHistory = append(l.ChatHistory, ChatMessage{Sender: sender, Text: text, SentAt: at})
}

// PausedAt reports whether follow-ups are suppressed at the given instant.
func (l *Lead) PausedAt(now time.Time) bool {
	return l.FollowUpPausedUntil != nil && l.FollowUpPausedUntil.After(now)
}

// Transcript renders the chat history as readable lines for prompt context.
func (l *Lead) Transcript() string {
	if len(l.ChatHistory) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range l.ChatHistory {
		b.WriteString(m.SentAt.Format("2006-01-02 15:04"))
		b.WriteString(" - ")
		if m.Sender == "lead" {
			b.WriteString("Lead: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
