package services

import (
	"context"
	"sync"

	"github.com/roomrent/backend/internal/realtime"
	"github.com/stretchr/testify/mock"
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogLedger(eventType, reference, accountID, amount string, details map[string]string) {
	m.Called(eventType, reference, accountID, amount, details)
}

func (m *MockAuditLogger) LogError(reference, accountID string, err error) {
	m.Called(reference, accountID, err)
}

// recordingPublisher keeps every published event for later inspection
type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events(table string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Event
	for _, ev := range p.events {
		if ev.Table == table {
			out = append(out, ev)
		}
	}
	return out
}
