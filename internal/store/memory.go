package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-sms/internal/model"
)

// MemoryStore is an in-memory Store, used in tests and for local dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*model.Lead
}

func NewMemory() *MemoryStore {
	return &MemoryStore{leads: make(map[string]*model.Lead)}
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetByPhone(_ context.Context, phone string) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[phone]
	if !ok {
		return nil, nil
	}
	cp := cloneLead(lead)
	return cp, nil
}

func (s *MemoryStore) Create(_ context.Context, lead *model.Lead) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.leads[lead.Phone]; exists {
		return nil, eris.Errorf("memory: lead %s already exists", lead.Phone)
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.DateConnected.IsZero() {
		lead.DateConnected = time.Now().UTC()
	}
	if lead.FollowUpStage == "" {
		lead.FollowUpStage = model.StageScheduled
	}
	lead.Version = 1
	s.leads[lead.Phone] = cloneLead(lead)
	return lead, nil
}

func (s *MemoryStore) Save(_ context.Context, lead *model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leads[lead.Phone]
	if !ok {
		return eris.Wrapf(ErrNotFound, "phone %s", lead.Phone)
	}
	if current.Version != lead.Version {
		return eris.Wrapf(ErrConflict, "phone %s", lead.Phone)
	}
	lead.Version++
	s.leads[lead.Phone] = cloneLead(lead)
	return nil
}

func (s *MemoryStore) ListDueForFollowUp(_ context.Context, now time.Time, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []model.Lead
	for _, lead := range s.leads {
		if lead.NextFollowUpTime == nil || lead.NextFollowUpTime.After(now) {
			continue
		}
		if lead.FollowUpStage == model.StageExhausted || lead.TourReady {
			continue
		}
		if lead.FollowUpPausedUntil != nil && lead.FollowUpPausedUntil.After(now) {
			continue
		}
		due = append(due, *cloneLead(lead))
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextFollowUpTime.Before(*due[j].NextFollowUpTime)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leads := make([]model.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		leads = append(leads, *cloneLead(lead))
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].DateConnected.After(leads[j].DateConnected)
	})
	return leads, nil
}

func cloneLead(lead *model.Lead) *model.Lead {
	cp := *lead
	cp.ChatHistory = append([]model.ChatMessage(nil), lead.ChatHistory...)
	if lead.NextFollowUpTime != nil {
		t := *lead.NextFollowUpTime
		cp.NextFollowUpTime = &t
	}
	if lead.FollowUpPausedUntil != nil {
		t := *lead.FollowUpPausedUntil
		cp.FollowUpPausedUntil = &t
	}
	return &cp
}
