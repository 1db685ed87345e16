package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-sms/internal/config"
	"github.com/sells-group/lead-sms/internal/extract"
	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/qualify"
	"github.com/sells-group/lead-sms/internal/reply"
	"github.com/sells-group/lead-sms/internal/store"
)

type stubExtractor struct {
	fields map[string]string
}

func (s *stubExtractor) Extract(_ context.Context, _ string, _ *model.Lead) (map[string]string, error) {
	if s.fields == nil {
		return map[string]string{}, nil
	}
	return s.fields, nil
}

func (s *stubExtractor) DetectDelay(_ context.Context, _ string) (*extract.Delay, error) {
	return nil, nil
}

type stubGenerator struct {
	text string
}

func (s *stubGenerator) Generate(_ context.Context, _ reply.Request) (string, error) {
	return s.text, nil
}

type stubSender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (s *stubSender) SendSMS(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]string)
	}
	s.sent[to] = append(s.sent[to], text)
	return nil
}

func (s *stubSender) sentTo(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[to]
}

func newTestProcessor(t *testing.T, ext *stubExtractor) (*qualify.Processor, store.Store, *stubSender) {
	t.Helper()

	mem := store.NewMemory()
	sms := &stubSender{}
	registry := model.DefaultFieldRegistry()
	scheduler := qualify.NewScheduler(mem, sms, config.FollowUpConfig{
		CadenceDays:  map[string]int{"scheduled": 1},
		MaxFollowUps: 5,
	})
	p := qualify.NewProcessor(mem, ext, &stubGenerator{text: "Thanks! What's your budget?"},
		sms, scheduler, registry, config.QualifyConfig{}, "+16175559000")
	return p, mem, sms
}

func webhookBody(eventType, phone, text string) string {
	return `{"data":{"event_type":"` + eventType + `","payload":{"from":{"phone_number":"` + phone + `"},"text":"` + text + `"}}}`
}

func TestServeHealth(t *testing.T) {
	p, _, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeWebhookInbound(t *testing.T) {
	ext := &stubExtractor{fields: map[string]string{model.FieldMoveInDate: "September"}}
	p, mem, sms := newTestProcessor(t, ext)
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	body := webhookBody("message.received", "+16175551234", "moving in September")
	resp, err := http.Post(srv.URL+"/webhook/sms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	lead, err := mem.GetByPhone(context.Background(), "+16175551234")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "September", lead.MoveInDate)
	assert.NotEmpty(t, sms.sentTo("+16175551234"))
}

func TestServeWebhookIgnoresReceipts(t *testing.T) {
	p, mem, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	body := webhookBody("message.finalized", "+16175551234", "delivered")
	resp, err := http.Post(srv.URL+"/webhook/sms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	lead, err := mem.GetByPhone(context.Background(), "+16175551234")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestServeWebhookBadBody(t *testing.T) {
	p, _, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook/sms", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeWebhookInvalidPhone(t *testing.T) {
	p, _, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	body := webhookBody("message.received", "totally-bogus", "hello")
	resp, err := http.Post(srv.URL+"/webhook/sms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeWebhookMissingFields(t *testing.T) {
	p, _, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	body := webhookBody("message.received", "", "hello")
	resp, err := http.Post(srv.URL+"/webhook/sms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeOutreach(t *testing.T) {
	p, mem, sms := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/outreach", "application/json",
		strings.NewReader(`{"phone":"617-555-1234","name":"Jordan"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	lead, err := mem.GetByPhone(context.Background(), "+16175551234")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Jordan", lead.Name)
	require.NotNil(t, lead.NextFollowUpTime)
	assert.True(t, lead.NextFollowUpTime.After(time.Now()))
	assert.NotEmpty(t, sms.sentTo("+16175551234"))

	// Repeat outreach to the same number is rejected.
	resp2, err := http.Post(srv.URL+"/outreach", "application/json",
		strings.NewReader(`{"phone":"617-555-1234"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)
}

func TestServeOutreachInvalidPhone(t *testing.T) {
	p, _, _ := newTestProcessor(t, &stubExtractor{})
	srv := httptest.NewServer(newRouter(p))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/outreach", "application/json",
		strings.NewReader(`{"phone":"not-a-number"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
