// Package extract provides the information-extraction capability: pulling
// qualification field values and delay requests out of inbound SMS text.
package extract

import (
	"context"

	"github.com/sells-group/lead-sms/internal/model"
)

// Delay describes a detected request to pause outreach.
type Delay struct {
	// Days is the requested pause length. Zero means the lead asked for a
	// pause without an explicit duration.
	Days int
	// Kind categorizes the request ("explicit", "general", "stop").
	Kind string
}

// Extractor is the information-extraction contract consumed by the lead
// processor. Implementations must return an empty map rather than inventing
// values when nothing was said.
type Extractor interface {
	// Extract returns field key → value for whatever the message answered.
	// Missing fields are simply absent (or empty) in the result.
	Extract(ctx context.Context, message string, lead *model.Lead) (map[string]string, error)

	// DetectDelay reports whether the message asks to pause outreach.
	// A nil result means no delay was requested.
	DetectDelay(ctx context.Context, message string) (*Delay, error)
}
