package reply

import (
	"fmt"

	"github.com/sells-group/lead-sms/internal/model"
)

// fallbacks are the deterministic phase-keyed replies used when generation
// fails. Keeping these boring is the point: a transient AI failure must never
// leave a lead without a response.
var fallbacks = map[model.Phase]string{
	model.PhaseQualification:     "Thanks! Quick question: %s",
	model.PhaseOptionalQuestions: "Thanks! One more thing if you don't mind: %s",
	model.PhaseTourScheduling:    "Great, I have everything I need about the apartment. When are you generally available for tours?",
	model.PhaseComplete:          "Perfect! I have all the information I need. My teammate will be in touch soon to set up an exact tour time.",
}

const genericFallback = "Thanks for your message! Could you tell me a bit more about what you're looking for?"

// Fallback returns the deterministic templated reply for a phase and action.
func Fallback(phase model.Phase, act model.NextAction, registry *model.FieldRegistry) string {
	tmpl, ok := fallbacks[phase]
	if !ok {
		return genericFallback
	}

	switch act.Type {
	case model.ActionAskRequired, model.ActionAskOptional:
		question := "what you're looking for?"
		if f := registry.ByKey(act.FieldKey); f != nil && f.Question != "" {
			question = f.Question
		}
		return fmt.Sprintf(tmpl, question)
	default:
		return tmpl
	}
}

// Clarify is the reply used when extraction failed outright and the turn
// proceeds with no field changes.
const Clarify = "Sorry, I didn't quite catch that. Could you say it another way?"

// PauseAcknowledgement returns the reply for a detected pause request.
func PauseAcknowledgement(days int) string {
	switch {
	case days == 1:
		return "No problem! I'll check back in with you tomorrow. Feel free to text me anytime before then."
	case days <= 7:
		return fmt.Sprintf("No problem! I'll check back in with you in %d days. Feel free to text me anytime before then.", days)
	case days <= 30:
		weeks := days / 7
		if weeks == 1 {
			return "No problem! I'll check back in with you in a week. Feel free to text me anytime before then."
		}
		return fmt.Sprintf("No problem! I'll check back in with you in %d weeks. Feel free to text me anytime before then.", weeks)
	default:
		return "No problem! I'll check back in with you later. Feel free to text me anytime."
	}
}

// followUpMessages are the stage-keyed check-in texts for the batch pass.
var followUpMessages = map[model.FollowUpStage]string{
	model.StageFirst:  "Hi! Just wanted to check in - are you still looking for an apartment? I'm here if you have any questions!",
	model.StageSecond: "Hope you're doing well! I wanted to follow up on your apartment search. Let me know if you'd like to continue where we left off.",
	model.StageThird:  "Hi there! Still thinking about your apartment search? I have all our previous conversation saved if you'd like to pick up where we left off.",
	model.StageFourth: "Just checking in one more time - are you still interested in finding an apartment? I'm here to help whenever you're ready!",
	model.StageFinal:  "This will be my last check-in - if you're still looking for an apartment, just send me a message and I'll be happy to help!",
}

// FollowUpMessage returns the check-in text for a follow-up stage.
func FollowUpMessage(stage model.FollowUpStage) string {
	if msg, ok := followUpMessages[stage]; ok {
		return msg
	}
	return followUpMessages[model.StageFirst]
}

// OpeningMessage is the first text sent on manual outreach.
func OpeningMessage(name string) string {
	if name != "" {
		return fmt.Sprintf("Hi %s! I'm reaching out about your apartment search. When are you looking to move in?", name)
	}
	return "Hi! I'm reaching out about your apartment search. When are you looking to move in?"
}
