package qualify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/extract"
)

// PauseDirective is a resolved request to pause outreach.
type PauseDirective struct {
	// Days is the pause length actually applied, after defaulting.
	Days int
	// ResumeAt is when follow-ups may resume.
	ResumeAt time.Time
}

// DelayInterpreter turns a detected delay request into a concrete pause.
// A lead who asks for a pause but names no duration gets the default.
type DelayInterpreter struct {
	extractor   extract.Extractor
	defaultDays int
}

func NewDelayInterpreter(extractor extract.Extractor, defaultDays int) *DelayInterpreter {
	if defaultDays <= 0 {
		defaultDays = 3
	}
	return &DelayInterpreter{extractor: extractor, defaultDays: defaultDays}
}

// Interpret checks the message for a pause request. Detection failures are
// swallowed: an unreadable message is treated as no pause request rather
// than blocking the turn.
func (d *DelayInterpreter) Interpret(ctx context.Context, message string, now time.Time) *PauseDirective {
	delay, err := d.extractor.DetectDelay(ctx, message)
	if err != nil {
		zap.L().Warn("delay detection failed, assuming no pause", zap.Error(err))
		return nil
	}
	if delay == nil {
		return nil
	}

	days := delay.Days
	if days <= 0 {
		days = d.defaultDays
	}
	return &PauseDirective{
		Days:     days,
		ResumeAt: now.AddDate(0, 0, days),
	}
}
