package qualify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/config"
	"github.com/sells-group/lead-sms/internal/extract"
	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/reply"
	"github.com/sells-group/lead-sms/internal/resilience"
	"github.com/sells-group/lead-sms/internal/store"
)

// Processor handles one inbound SMS end to end: load or create the lead,
// interpret pause requests, extract field values, resolve the phase, generate
// the reply, and persist under optimistic concurrency.
type Processor struct {
	store     store.Store
	extractor extract.Extractor
	generator reply.Generator
	sms       Sender
	scheduler *Scheduler
	delays    *DelayInterpreter
	registry  *model.FieldRegistry
	breakers  *resilience.ServiceBreakers
	retry     resilience.RetryConfig

	agentPhone       string
	optionalAttempts int
	saveRetries      int
}

// NewProcessor wires a Processor. sms may be nil for dry runs, in which case
// no SMS leaves the building and callers use Result.ReplyText themselves.
func NewProcessor(
	st store.Store,
	extractor extract.Extractor,
	generator reply.Generator,
	sms Sender,
	scheduler *Scheduler,
	registry *model.FieldRegistry,
	cfg config.QualifyConfig,
	agentPhone string,
) *Processor {
	if cfg.OptionalAttempts <= 0 {
		cfg.OptionalAttempts = 2
	}
	if cfg.SaveRetries <= 0 {
		cfg.SaveRetries = 3
	}
	return &Processor{
		store:            st,
		extractor:        extractor,
		generator:        generator,
		sms:              sms,
		scheduler:        scheduler,
		delays:           NewDelayInterpreter(extractor, cfg.DefaultPauseDays),
		registry:         registry,
		breakers:         resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		retry:            claudeRetryConfig(),
		agentPhone:       agentPhone,
		optionalAttempts: cfg.OptionalAttempts,
		saveRetries:      cfg.SaveRetries,
	}
}

// claudeRetryConfig keeps model-call retries short; a lead is waiting on the
// other end of the SMS, so long backoffs help nobody.
func claudeRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.MaxBackoff = 5 * time.Second
	cfg.OnRetry = resilience.RetryLogger("anthropic", "message")
	return cfg
}

// Result is the outcome of one processed inbound message.
type Result struct {
	ReplyText   string
	Lead        *model.Lead
	Phase       model.Phase
	Paused      bool
	NotifyAgent bool
}

// ProcessMessage runs the full turn for one inbound SMS. Version conflicts
// are retried from a fresh read; every other failure inside the turn degrades
// to a fallback reply so the lead always hears back.
func (p *Processor) ProcessMessage(ctx context.Context, phone, text string, now time.Time) (*Result, error) {
	normalized, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, eris.Wrapf(err, "qualify: process message from %q", phone)
	}

	var res *Result
	for attempt := 0; attempt < p.saveRetries; attempt++ {
		res, err = p.processOnce(ctx, normalized, text, now)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		zap.L().Info("retrying turn after version conflict",
			zap.String("phone", normalized),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "qualify: gave up after %d conflicts", p.saveRetries)
	}

	p.deliver(ctx, res)
	return res, nil
}

func (p *Processor) processOnce(ctx context.Context, phone, text string, now time.Time) (*Result, error) {
	lead, err := p.store.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		lead, err = p.store.Create(ctx, model.NewLead(phone, now))
		if err != nil {
			return nil, err
		}
		zap.L().Info("new lead created", zap.String("phone", phone))
	}

	lead.AppendMessage("lead", text, now)

	if directive := p.delays.Interpret(ctx, text, now); directive != nil {
		return p.applyPause(ctx, lead, directive, now)
	}

	extracted, extractErr := p.extract(ctx, text, lead)
	changed := lead.MergeExtracted(extracted)

	phase, action := ResolvePhase(lead, p.registry, p.optionalAttempts)
	if action.Type == model.ActionAskOptional {
		lead.OptionalAsked++
	}

	notify := false
	if phase == model.PhaseComplete && !lead.TourReady {
		lead.TourReady = true
		notify = true
	}

	replyText := p.generate(ctx, reply.Request{
		Phase:     phase,
		Action:    action,
		Lead:      lead,
		Inbound:   text,
		Extracted: extracted,
	}, extractErr)

	lead.AppendMessage("assistant", replyText, now)
	lead.LastContacted = now
	p.scheduler.Reschedule(lead, now)

	if err := p.store.Save(ctx, lead); err != nil {
		return nil, err
	}

	zap.L().Info("processed inbound message",
		zap.String("phone", phone),
		zap.String("phase", string(phase)),
		zap.Strings("fields_updated", changed),
		zap.Bool("tour_ready", lead.TourReady))

	return &Result{
		ReplyText:   replyText,
		Lead:        lead,
		Phase:       phase,
		NotifyAgent: notify,
	}, nil
}

func (p *Processor) applyPause(ctx context.Context, lead *model.Lead, directive *PauseDirective, now time.Time) (*Result, error) {
	resume := directive.ResumeAt
	lead.FollowUpPausedUntil = &resume
	if lead.NextFollowUpTime != nil && lead.NextFollowUpTime.Before(resume) {
		lead.NextFollowUpTime = &resume
	}

	replyText := reply.PauseAcknowledgement(directive.Days)
	lead.AppendMessage("assistant", replyText, now)
	lead.LastContacted = now

	if err := p.store.Save(ctx, lead); err != nil {
		return nil, err
	}

	zap.L().Info("outreach paused",
		zap.String("phone", lead.Phone),
		zap.Int("days", directive.Days),
		zap.Time("resume_at", resume))

	phase, _ := ResolvePhase(lead, p.registry, p.optionalAttempts)
	return &Result{
		ReplyText: replyText,
		Lead:      lead,
		Phase:     phase,
		Paused:    true,
	}, nil
}

// extract runs field extraction behind a circuit breaker. Failure yields an
// empty map so the merge is a no-op and previously answered fields survive.
func (p *Processor) extract(ctx context.Context, text string, lead *model.Lead) (map[string]string, error) {
	cb := p.breakers.Get("anthropic-extract")
	extracted, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (map[string]string, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (map[string]string, error) {
			return p.extractor.Extract(ctx, text, lead)
		})
	})
	if err != nil {
		zap.L().Warn("extraction failed, keeping prior field state",
			zap.String("phone", lead.Phone),
			zap.Error(err))
		return map[string]string{}, err
	}
	return extracted, nil
}

// generate produces the outbound text. A failed extraction means the model
// could not read the message at all, so ask the lead to rephrase; a failed
// generation falls back to the canned phase reply.
func (p *Processor) generate(ctx context.Context, req reply.Request, extractErr error) string {
	if extractErr != nil {
		return reply.Clarify
	}

	cb := p.breakers.Get("anthropic-generate")
	text, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
			return p.generator.Generate(ctx, req)
		})
	})
	if err != nil {
		zap.L().Warn("reply generation failed, using fallback",
			zap.String("phone", req.Lead.Phone),
			zap.Error(err))
		return reply.Fallback(req.Phase, req.Action, p.registry)
	}
	return text
}

// deliver sends the reply and, on completion, the agent hand-off note. Send
// failures are logged; the turn's state is already saved.
func (p *Processor) deliver(ctx context.Context, res *Result) {
	if p.sms == nil {
		return
	}

	if err := p.sms.SendSMS(ctx, res.Lead.Phone, res.ReplyText); err != nil {
		zap.L().Error("reply send failed",
			zap.String("phone", res.Lead.Phone),
			zap.Error(err))
	}

	if res.NotifyAgent && p.agentPhone != "" {
		note := agentNote(res.Lead)
		if err := p.sms.SendSMS(ctx, p.agentPhone, note); err != nil {
			zap.L().Error("agent notification failed",
				zap.String("agent", p.agentPhone),
				zap.Error(err))
		}
	}
}

// StartOutreach opens a conversation with a new lead and schedules the first
// follow-up. An existing lead for the phone is an error; outreach never
// resets live state.
func (p *Processor) StartOutreach(ctx context.Context, phone, name string, now time.Time) (*model.Lead, error) {
	normalized, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, eris.Wrapf(err, "qualify: start outreach to %q", phone)
	}

	existing, err := p.store.GetByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, eris.Errorf("qualify: lead %s already exists", normalized)
	}

	lead := model.NewLead(normalized, now)
	lead.Name = name
	lead, err = p.store.Create(ctx, lead)
	if err != nil {
		return nil, err
	}

	opening := reply.OpeningMessage(name)
	lead.AppendMessage("assistant", opening, now)
	lead.LastContacted = now
	p.scheduler.Reschedule(lead, now)

	if err := p.store.Save(ctx, lead); err != nil {
		return nil, err
	}

	if p.sms != nil {
		if err := p.sms.SendSMS(ctx, normalized, opening); err != nil {
			return nil, eris.Wrap(err, "qualify: send opening message")
		}
	}

	zap.L().Info("outreach started", zap.String("phone", normalized))
	return lead, nil
}

func agentNote(lead *model.Lead) string {
	name := lead.Name
	if name == "" {
		name = lead.Phone
	}
	return fmt.Sprintf(
		"Lead %s is tour-ready. Move-in: %s | Budget: %s | Beds: %s | Baths: %s | Area: %s | Availability: %s",
		name, lead.MoveInDate, lead.Price, lead.Beds, lead.Baths, lead.Location, lead.TourAvailability,
	)
}
