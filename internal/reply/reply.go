// Package reply provides the reply-generation capability: turning a resolved
// phase and next action into outbound SMS text, with deterministic fallbacks
// so a lead is never left without a response.
package reply

import (
	"context"

	"github.com/sells-group/lead-sms/internal/model"
)

// Request carries everything the generator needs for one turn.
type Request struct {
	Phase     model.Phase
	Action    model.NextAction
	Lead      *model.Lead
	Inbound   string
	Extracted map[string]string
}

// Generator is the reply-generation contract consumed by the lead processor.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
