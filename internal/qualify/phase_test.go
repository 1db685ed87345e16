package qualify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-sms/internal/model"
)

func newLeadWith(fields map[string]string) *model.Lead {
	lead := model.NewLead("+16175551234", time.Now().UTC())
	for k, v := range fields {
		lead.SetField(k, v)
	}
	return lead
}

func allRequired() map[string]string {
	return map[string]string{
		model.FieldMoveInDate: "2026-09-01",
		model.FieldPrice:      "under 3000",
		model.FieldBeds:       "2",
		model.FieldBaths:      "1",
		model.FieldLocation:   "Allston",
		model.FieldAmenities:  "in-unit laundry",
	}
}

func TestResolvePhaseQualification(t *testing.T) {
	registry := model.DefaultFieldRegistry()

	tests := []struct {
		name      string
		fields    map[string]string
		wantField string
	}{
		{"empty lead asks first field", nil, model.FieldMoveInDate},
		{"skips answered fields", map[string]string{model.FieldMoveInDate: "September"}, model.FieldPrice},
		{"asks first gap not last", map[string]string{
			model.FieldMoveInDate: "September",
			model.FieldBeds:       "2",
		}, model.FieldPrice},
		{"one field left", func() map[string]string {
			f := allRequired()
			delete(f, model.FieldAmenities)
			return f
		}(), model.FieldAmenities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, action := ResolvePhase(newLeadWith(tt.fields), registry, 2)
			assert.Equal(t, model.PhaseQualification, phase)
			assert.Equal(t, model.ActionAskRequired, action.Type)
			assert.Equal(t, tt.wantField, action.FieldKey)
		})
	}
}

func TestResolvePhaseOptionalQuestions(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	lead := newLeadWith(allRequired())

	phase, action := ResolvePhase(lead, registry, 2)
	assert.Equal(t, model.PhaseOptionalQuestions, phase)
	assert.Equal(t, model.ActionAskOptional, action.Type)
	assert.Equal(t, model.FieldBostonRentalExperience, action.FieldKey)
}

func TestResolvePhaseOptionalBudgetSpent(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	lead := newLeadWith(allRequired())
	lead.OptionalAsked = 2

	phase, action := ResolvePhase(lead, registry, 2)
	assert.Equal(t, model.PhaseTourScheduling, phase)
	assert.Equal(t, model.ActionRequestAvailability, action.Type)
}

func TestResolvePhaseOptionalAnswered(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	fields := allRequired()
	fields[model.FieldBostonRentalExperience] = "first time renter"
	lead := newLeadWith(fields)

	phase, _ := ResolvePhase(lead, registry, 2)
	assert.Equal(t, model.PhaseTourScheduling, phase)
}

func TestResolvePhaseComplete(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	fields := allRequired()
	fields[model.FieldBostonRentalExperience] = "yes"
	fields[model.FieldTourAvailability] = "Saturday afternoon"
	lead := newLeadWith(fields)

	phase, action := ResolvePhase(lead, registry, 2)
	assert.Equal(t, model.PhaseComplete, phase)
	assert.Equal(t, model.ActionHandOff, action.Type)
}

func TestResolvePhaseIsDeterministic(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	lead := newLeadWith(map[string]string{model.FieldMoveInDate: "ASAP"})

	p1, a1 := ResolvePhase(lead, registry, 2)
	p2, a2 := ResolvePhase(lead, registry, 2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, a1, a2)
}

func TestResolvePhaseNoOptionalFields(t *testing.T) {
	registry := model.RegistryFromKeys([]string{model.FieldMoveInDate}, nil)
	lead := newLeadWith(map[string]string{model.FieldMoveInDate: "June"})

	phase, _ := ResolvePhase(lead, registry, 2)
	assert.Equal(t, model.PhaseTourScheduling, phase)
}

func TestMissingRequiredOrder(t *testing.T) {
	registry := model.DefaultFieldRegistry()
	lead := newLeadWith(map[string]string{
		model.FieldPrice:    "3000",
		model.FieldLocation: "Fenway",
	})

	missing := MissingRequired(lead, registry)
	assert.Equal(t, []string{
		model.FieldMoveInDate, model.FieldBeds, model.FieldBaths, model.FieldAmenities,
	}, missing)
}
