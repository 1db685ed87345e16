package model

// Phase is the conversation phase, derived from field state on every turn.
// It is never stored as ground truth.
type Phase string

const (
	PhaseQualification     Phase = "QUALIFICATION"
	PhaseOptionalQuestions Phase = "OPTIONAL_QUESTIONS"
	PhaseTourScheduling    Phase = "TOUR_SCHEDULING"
	PhaseComplete          Phase = "COMPLETE"
)
