package model

// ActionType enumerates what the conversation should do next.
type ActionType string

const (
	ActionAskRequired         ActionType = "ask_required"
	ActionAskOptional         ActionType = "ask_optional"
	ActionRequestAvailability ActionType = "request_availability"
	ActionHandOff             ActionType = "hand_off"
	ActionAcknowledge         ActionType = "acknowledge"
)

// NextAction is the phase machine's decision for the outbound turn.
type NextAction struct {
	Type ActionType
	// FieldKey names the field to ask for, for the ask actions.
	FieldKey string
}
