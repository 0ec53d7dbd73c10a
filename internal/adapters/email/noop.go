package email

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NoopSender logs sends but does not deliver them. It is used when no provider key
// is configured and in tests, where Sent exposes what would have gone out.
type NoopSender struct {
	log *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender. A nil logger discards.
func NewNoopSender(log *zap.Logger) *NoopSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopSender{log: log, now: time.Now}
}

// Send records and logs the email without delivering it.
// PRE: req is a valid SendRequest
// POST: Returns a noop result
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()

	now := s.now()
	s.log.Info("noop_email_send", zap.Strings("to", req.To), zap.String("subject", req.Subject))
	return SendResult{MessageID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}

// Sent returns a copy of every request seen so far.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
