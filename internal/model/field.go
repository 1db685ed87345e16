package model

import "strings"

// Field keys for the qualification conversation. Declaration order of the
// required list is the asking order.
const (
	FieldMoveInDate             = "move_in_date"
	FieldPrice                  = "price"
	FieldBeds                   = "beds"
	FieldBaths                  = "baths"
	FieldLocation               = "location"
	FieldAmenities              = "amenities"
	FieldBostonRentalExperience = "boston_rental_experience"
	FieldTourAvailability       = "tour_availability"
	FieldName                   = "name"
	FieldEmail                  = "email"
)

// FieldSpec describes one qualification field and the question that fills it.
type FieldSpec struct {
	Key      string
	Question string
	Required bool
}

// FieldRegistry is an ordered, indexed collection of field specs. Ordering is
// fixed so the same lead state always yields the same next question.
type FieldRegistry struct {
	Fields   []FieldSpec
	byKey    map[string]*FieldSpec
	required []*FieldSpec
	optional []*FieldSpec
}

// NewFieldRegistry creates a FieldRegistry with indexed lookups.
func NewFieldRegistry(fields []FieldSpec) *FieldRegistry {
	r := &FieldRegistry{
		Fields: fields,
		byKey:  make(map[string]*FieldSpec, len(fields)),
	}
	for i := range r.Fields {
		f := &r.Fields[i]
		r.byKey[f.Key] = f
		if f.Required {
			r.required = append(r.required, f)
		} else {
			r.optional = append(r.optional, f)
		}
	}
	return r
}

// DefaultFieldRegistry returns the registry for the standard Boston rental
// qualification flow.
func DefaultFieldRegistry() *FieldRegistry {
	return NewFieldRegistry([]FieldSpec{
		{Key: FieldMoveInDate, Question: "When are you looking to move in?", Required: true},
		{Key: FieldPrice, Question: "What's your monthly budget?", Required: true},
		{Key: FieldBeds, Question: "How many bedrooms do you need?", Required: true},
		{Key: FieldBaths, Question: "How many bathrooms would you like?", Required: true},
		{Key: FieldLocation, Question: "Which neighborhoods are you considering?", Required: true},
		{Key: FieldAmenities, Question: "Any must-have amenities (parking, laundry, pets)?", Required: true},
		{Key: FieldBostonRentalExperience, Question: "Have you rented in Boston before, or is this your first time?", Required: false},
	})
}

// RegistryFromKeys builds a registry from configured key lists, keeping the
// default question text where a key is known.
func RegistryFromKeys(required, optional []string) *FieldRegistry {
	defaults := DefaultFieldRegistry()
	var fields []FieldSpec
	add := func(key string, req bool) {
		spec := FieldSpec{Key: key, Required: req}
		if d := defaults.ByKey(key); d != nil {
			spec.Question = d.Question
		}
		fields = append(fields, spec)
	}
	for _, k := range required {
		add(k, true)
	}
	for _, k := range optional {
		add(k, false)
	}
	return NewFieldRegistry(fields)
}

// ByKey returns the spec for the given key, or nil if not found.
func (r *FieldRegistry) ByKey(key string) *FieldSpec {
	return r.byKey[key]
}

// Required returns the required field specs in declaration order.
func (r *FieldRegistry) Required() []*FieldSpec {
	return r.required
}

// Optional returns the optional field specs in declaration order.
func (r *FieldRegistry) Optional() []*FieldSpec {
	return r.optional
}

// RequiredKeys returns the required field keys in declaration order.
func (r *FieldRegistry) RequiredKeys() []string {
	keys := make([]string, len(r.required))
	for i, f := range r.required {
		keys[i] = f.Key
	}
	return keys
}

// OptionalKeys returns the optional field keys in declaration order.
func (r *FieldRegistry) OptionalKeys() []string {
	keys := make([]string, len(r.optional))
	for i, f := range r.optional {
		keys[i] = f.Key
	}
	return keys
}

// Known reports whether a trimmed field value counts as answered.
func Known(value string) bool {
	return strings.TrimSpace(value) != ""
}
