package qualify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-sms/internal/extract"
	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/reply"
)

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, message string, lead *model.Lead) (map[string]string, error) {
	args := m.Called(ctx, message, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockExtractor) DetectDelay(ctx context.Context, message string) (*extract.Delay, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Delay), args.Error(1)
}

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req reply.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// --- Sender Mock ---

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendSMS(ctx context.Context, to, text string) error {
	args := m.Called(ctx, to, text)
	return args.Error(0)
}
