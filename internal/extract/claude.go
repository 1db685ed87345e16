package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/pkg/anthropic"
)

const extractionSystem = `You are an assistant extracting apartment-search details from a renter's SMS message.

Current known values (EMPTY means unknown):
%s

Return a JSON object with only the fields the message actually answers, using
these keys: move_in_date, price, beds, baths, location, amenities,
boston_rental_experience, tour_availability, name, email.
Rules:
- Only include a field when the message clearly states it. Never guess.
- Values are short strings ("2", "$2500", "Back Bay", "September 1").
- "no preference" or "none needed" counts as an answer (e.g. amenities: "none").
- Return {} when the message answers nothing.
Return ONLY the JSON object, no prose.`

const delaySystem = `You decide whether an SMS message asks to pause or delay the apartment-search conversation ("text me next week", "stop for now", "call me in 3 days").

Return ONLY a JSON object:
{"delay_requested": <bool>, "delay_days": <int, 0 when no explicit duration>, "delay_type": "<explicit|general|stop>"}
"next week" means 7 days, "a few days" means 3, "next month" means 30.
When the message does not ask for a pause, return {"delay_requested": false, "delay_days": 0, "delay_type": "none"}.`

// Claude implements Extractor on top of the Anthropic client.
type Claude struct {
	client anthropic.Client
	model  string
}

// NewClaude creates a Claude-backed extractor.
func NewClaude(client anthropic.Client, modelID string) *Claude {
	return &Claude{client: client, model: modelID}
}

func lowTemp() *float64 {
	t := 0.1
	return &t
}

func (c *Claude) Extract(ctx context.Context, message string, lead *model.Lead) (map[string]string, error) {
	known := knownFieldsBlock(lead)

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   300,
		System:      fmt.Sprintf(extractionSystem, known),
		Messages:    []anthropic.Message{{Role: "user", Content: "Extract ALL information from: " + message}},
		Temperature: lowTemp(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogUsage(c.model, "extract")

	fields, err := ParseFieldJSON(resp.Text)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse output %q", resp.Text)
	}
	return fields, nil
}

func (c *Claude) DetectDelay(ctx context.Context, message string) (*Delay, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   100,
		System:      delaySystem,
		Messages:    []anthropic.Message{{Role: "user", Content: message}},
		Temperature: lowTemp(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: detect delay")
	}

	var out struct {
		DelayRequested bool   `json:"delay_requested"`
		DelayDays      int    `json:"delay_days"`
		DelayType      string `json:"delay_type"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &out); err != nil {
		return nil, eris.Wrapf(err, "extract: parse delay output %q", resp.Text)
	}

	if !out.DelayRequested {
		return nil, nil
	}
	if out.DelayDays < 0 {
		zap.L().Warn("extract: negative delay days clamped", zap.Int("days", out.DelayDays))
		out.DelayDays = 0
	}
	return &Delay{Days: out.DelayDays, Kind: out.DelayType}, nil
}

// knownFieldsBlock renders the lead's current values for the extraction prompt.
func knownFieldsBlock(lead *model.Lead) string {
	keys := []string{
		model.FieldMoveInDate, model.FieldPrice, model.FieldBeds, model.FieldBaths,
		model.FieldLocation, model.FieldAmenities, model.FieldBostonRentalExperience,
		model.FieldTourAvailability, model.FieldName, model.FieldEmail,
	}
	var b strings.Builder
	for _, k := range keys {
		v := lead.Field(k)
		if v == "" {
			v = "EMPTY"
		}
		fmt.Fprintf(&b, "- %s: %s\n", k, v)
	}
	return b.String()
}

// ParseFieldJSON parses a field-map JSON object from model output, tolerating
// markdown code fences and non-string scalars (numbers become strings).
func ParseFieldJSON(text string) (map[string]string, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return map[string]string{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "unmarshal field object")
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = strings.TrimSpace(val)
		case float64:
			fields[k] = strings.TrimSuffix(fmt.Sprintf("%v", val), ".0")
		case bool:
			fields[k] = fmt.Sprintf("%t", val)
		case nil:
			// null means "not answered", skip it
		default:
			// Nested objects/arrays are malformed output for this schema.
			return nil, eris.Errorf("unexpected value type for %s", k)
		}
	}
	return fields, nil
}

// stripFences removes a surrounding markdown code fence, if present, and
// trims whitespace.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
