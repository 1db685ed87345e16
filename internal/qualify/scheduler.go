package qualify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-sms/internal/config"
	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/reply"
	"github.com/sells-group/lead-sms/internal/store"
)

// Sender delivers outbound SMS. Satisfied by telnyx.Client.
type Sender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// Scheduler owns the follow-up cadence: when the next nudge goes out, how
// stages advance, and the batch run that sends due follow-ups.
type Scheduler struct {
	store store.Store
	sms   Sender
	cfg   config.FollowUpConfig
}

func NewScheduler(st store.Store, sms Sender, cfg config.FollowUpConfig) *Scheduler {
	if cfg.MaxFollowUps <= 0 {
		cfg.MaxFollowUps = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.SendsPerSecond <= 0 {
		cfg.SendsPerSecond = 2.0
	}
	return &Scheduler{store: st, sms: sms, cfg: cfg}
}

// cadenceDays returns the wait before the next follow-up for a lead at the
// given stage. Stages past the configured cadence reuse the last offset.
func (s *Scheduler) cadenceDays(stage model.FollowUpStage) int {
	if d, ok := s.cfg.CadenceDays[string(stage)]; ok && d > 0 {
		return d
	}
	last := 1
	for _, st := range model.StageOrder {
		if d, ok := s.cfg.CadenceDays[string(st)]; ok && d > 0 {
			last = d
		}
	}
	return last
}

// ComputeNext returns when the lead's next follow-up is due, or nil when no
// follow-up should be scheduled. A pause that ends after the cadence offset
// pushes the follow-up to the resume time.
func (s *Scheduler) ComputeNext(lead *model.Lead, now time.Time) *time.Time {
	if lead.TourReady {
		return nil
	}
	if lead.FollowUpCount >= s.cfg.MaxFollowUps {
		return nil
	}

	next := now.AddDate(0, 0, s.cadenceDays(lead.FollowUpStage))
	if lead.FollowUpPausedUntil != nil && lead.FollowUpPausedUntil.After(next) {
		next = *lead.FollowUpPausedUntil
	}
	return &next
}

// Advance records a sent follow-up: bump the count, move to the next stage,
// and either schedule the next nudge or mark the lead exhausted.
func (s *Scheduler) Advance(lead *model.Lead, now time.Time) {
	lead.FollowUpCount++
	if lead.FollowUpCount >= s.cfg.MaxFollowUps {
		lead.FollowUpStage = model.StageExhausted
		lead.NextFollowUpTime = nil
		return
	}
	lead.FollowUpStage = lead.FollowUpStage.Next()
	lead.NextFollowUpTime = s.ComputeNext(lead, now)
}

// Reschedule resets the follow-up clock after an inbound reply. An engaged
// lead gets the full cadence offset again from now.
func (s *Scheduler) Reschedule(lead *model.Lead, now time.Time) {
	lead.NextFollowUpTime = s.ComputeNext(lead, now)
}

// LeadsDue returns the leads whose follow-up is due at now, oldest first,
// bounded by the batch size.
func (s *Scheduler) LeadsDue(ctx context.Context, now time.Time) ([]model.Lead, error) {
	leads, err := s.store.ListDueForFollowUp(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "qualify: list due leads")
	}
	return leads, nil
}

// RunResult summarizes one batch of follow-up sends.
type RunResult struct {
	Due       int
	Sent      int
	Failed    int
	Exhausted int
}

// ProcessDue sends follow-ups to every due lead, bounded by batch size,
// concurrency, and send rate. Per-lead failures are counted, not fatal; a
// version conflict means the lead replied mid-run and is simply skipped.
func (s *Scheduler) ProcessDue(ctx context.Context, now time.Time) (RunResult, error) {
	leads, err := s.LeadsDue(ctx, now)
	if err != nil {
		return RunResult{}, err
	}

	var mu sync.Mutex
	res := RunResult{Due: len(leads)}

	limiter := rate.NewLimiter(rate.Limit(s.cfg.SendsPerSecond), 1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for i := range leads {
		lead := leads[i]
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}

			outcome, err := s.sendFollowUp(ctx, &lead, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("follow-up send failed",
					zap.String("phone", lead.Phone),
					zap.Error(err))
				res.Failed++
				return nil
			}
			res.Sent++
			if outcome == model.StageExhausted {
				res.Exhausted++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, eris.Wrap(err, "qualify: follow-up batch")
	}

	zap.L().Info("follow-up batch complete",
		zap.Int("due", res.Due),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("exhausted", res.Exhausted))
	return res, nil
}

func (s *Scheduler) sendFollowUp(ctx context.Context, lead *model.Lead, now time.Time) (model.FollowUpStage, error) {
	text := reply.FollowUpMessage(lead.FollowUpStage.Next())
	if err := s.sms.SendSMS(ctx, lead.Phone, text); err != nil {
		return lead.FollowUpStage, eris.Wrap(err, "qualify: send follow-up")
	}

	lead.AppendMessage("assistant", text, now)
	lead.LastContacted = now
	s.Advance(lead, now)

	if err := s.store.Save(ctx, lead); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// The lead replied while the batch ran; the processor's state wins.
			zap.L().Info("follow-up save skipped on conflict", zap.String("phone", lead.Phone))
			return lead.FollowUpStage, nil
		}
		return lead.FollowUpStage, eris.Wrap(err, "qualify: save after follow-up")
	}
	return lead.FollowUpStage, nil
}
