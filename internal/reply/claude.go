package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/pkg/anthropic"
)

const generatorSystem = `You are a friendly SMS leasing assistant qualifying apartment leads in Boston.
Keep replies short (1-3 sentences, SMS length), warm, and never pushy.
Acknowledge what the lead just told you before asking anything.
Never repeat a question the conversation history shows was already answered.

%s

Conversation so far:
%s

Lead record (EMPTY means unknown):
%s`

// phaseInstructions mirror the conversation phases: what the assistant should
// do next given where qualification stands.
var phaseInstructions = map[model.Phase]string{
	model.PhaseQualification: `Phase: QUALIFICATION. Still missing required details: %s.
Ask about the "%s" question next. You may pair at most two related questions in one text.
Only ask about missing fields; never re-ask anything already answered.`,
	model.PhaseOptionalQuestions: `Phase: OPTIONAL QUESTIONS. All required info is complete.
Ask naturally about: %s. Don't force it; if the lead seems uninterested, a light touch is fine.`,
	model.PhaseTourScheduling: `Phase: TOUR SCHEDULING. All qualification info is complete.
Ask ONLY about tour availability, meaning when they're generally free for property tours. Nothing else.`,
	model.PhaseComplete: `Phase: COMPLETE. All information is collected.
Send a short completion message: your teammate will contact them directly to schedule the tour.`,
}

// Claude implements Generator on top of the Anthropic client.
type Claude struct {
	client   anthropic.Client
	model    string
	maxToks  int64
	registry *model.FieldRegistry
}

// NewClaude creates a Claude-backed reply generator.
func NewClaude(client anthropic.Client, modelID string, maxTokens int64, registry *model.FieldRegistry) *Claude {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Claude{client: client, model: modelID, maxToks: maxTokens, registry: registry}
}

func (c *Claude) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxToks,
		System:    c.systemPrompt(req),
		Messages:  []anthropic.Message{{Role: "user", Content: req.Inbound}},
	})
	if err != nil {
		return "", eris.Wrap(err, "reply: create message")
	}
	resp.Usage.LogUsage(c.model, "generate")

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.New("reply: empty generation")
	}
	return text, nil
}

func (c *Claude) systemPrompt(req Request) string {
	return fmt.Sprintf(generatorSystem,
		c.instructions(req),
		orPlaceholder(req.Lead.Transcript(), "(no prior messages)"),
		fieldStatus(req.Lead, c.registry),
	)
}

func (c *Claude) instructions(req Request) string {
	tmpl := phaseInstructions[req.Phase]
	switch req.Phase {
	case model.PhaseQualification:
		missing := missingList(req.Lead, c.registry.RequiredKeys())
		question := req.Action.FieldKey
		if f := c.registry.ByKey(req.Action.FieldKey); f != nil {
			question = f.Question
		}
		return fmt.Sprintf(tmpl, strings.Join(missing, ", "), question)
	case model.PhaseOptionalQuestions:
		missing := missingList(req.Lead, c.registry.OptionalKeys())
		return fmt.Sprintf(tmpl, strings.Join(missing, ", "))
	default:
		return tmpl
	}
}

func missingList(lead *model.Lead, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !model.Known(lead.Field(k)) {
			missing = append(missing, k)
		}
	}
	return missing
}

func fieldStatus(lead *model.Lead, registry *model.FieldRegistry) string {
	var b strings.Builder
	for _, f := range registry.Fields {
		v := lead.Field(f.Key)
		mark := "MISSING"
		if model.Known(v) {
			mark = v
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Key, mark)
	}
	fmt.Fprintf(&b, "- tour_availability: %s\n", orPlaceholder(lead.TourAvailability, "MISSING"))
	return b.String()
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
