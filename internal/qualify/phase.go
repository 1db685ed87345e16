// Package qualify implements the lead qualification state machine: phase
// resolution, delay interpretation, follow-up scheduling, and the inbound
// message processor that ties them together.
package qualify

import (
	"github.com/sells-group/lead-sms/internal/model"
)

// MissingRequired returns the required field keys the lead has not answered,
// in registry order.
func MissingRequired(lead *model.Lead, registry *model.FieldRegistry) []string {
	var missing []string
	for _, f := range registry.Required() {
		if !model.Known(lead.Field(f.Key)) {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// MissingOptional returns the optional field keys the lead has not answered,
// in registry order.
func MissingOptional(lead *model.Lead, registry *model.FieldRegistry) []string {
	var missing []string
	for _, f := range registry.Optional() {
		if !model.Known(lead.Field(f.Key)) {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// ResolvePhase derives the conversation phase and the next action from lead
// state alone. Phase is never stored; re-deriving it from the same state
// always yields the same answer.
//
// The progression is strict: required fields in registry order, then optional
// fields while the attempt budget lasts, then tour availability, then done.
func ResolvePhase(lead *model.Lead, registry *model.FieldRegistry, optionalAttempts int) (model.Phase, model.NextAction) {
	if missing := MissingRequired(lead, registry); len(missing) > 0 {
		return model.PhaseQualification, model.NextAction{
			Type:     model.ActionAskRequired,
			FieldKey: missing[0],
		}
	}

	if missing := MissingOptional(lead, registry); len(missing) > 0 && lead.OptionalAsked < optionalAttempts {
		return model.PhaseOptionalQuestions, model.NextAction{
			Type:     model.ActionAskOptional,
			FieldKey: missing[0],
		}
	}

	if !model.Known(lead.TourAvailability) {
		return model.PhaseTourScheduling, model.NextAction{
			Type: model.ActionRequestAvailability,
		}
	}

	return model.PhaseComplete, model.NextAction{Type: model.ActionHandOff}
}
