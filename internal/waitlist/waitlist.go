package waitlist

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/metrics"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// Recorder persists signups. created is false for an address already present.
type Recorder interface {
	HasWaitlistEntry(email string) (bool, error)
	AddWaitlistEntry(email string) (created bool, err error)
}

// Appender mirrors signups to an external list.
type Appender interface {
	Append(ctx context.Context, email string, at time.Time) error
}

type Service struct {
	recorder Recorder
	sink     Appender
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service. sink may be nil when no external list is
// configured.
func NewService(recorder Recorder, sink Appender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{recorder: recorder, sink: sink, logger: logger, now: time.Now}
}

// Submit validates an email address, mirrors it to the sink and records it.
// Repeat signups succeed without being mirrored a second time.
func (s *Service) Submit(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		metrics.WaitlistSubmissions.WithLabelValues("rejected").Inc()
		return ErrEmailRequired
	}
	if !Valid(email) {
		metrics.WaitlistSubmissions.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%q: %w", email, ErrInvalidEmail)
	}

	exists, err := s.recorder.HasWaitlistEntry(email)
	if err != nil {
		metrics.WaitlistSubmissions.WithLabelValues("error").Inc()
		return fmt.Errorf("check signup: %w", err)
	}
	if exists {
		metrics.WaitlistSubmissions.WithLabelValues("duplicate").Inc()
		s.logger.Debug("waitlist signup already recorded")
		return nil
	}

	// Nothing is recorded until the sink has the row, so a retry appends again.
	if s.sink != nil {
		if err := s.sink.Append(ctx, email, s.now().UTC()); err != nil {
			metrics.WaitlistSubmissions.WithLabelValues("error").Inc()
			return fmt.Errorf("append signup: %w", err)
		}
	}

	created, err := s.recorder.AddWaitlistEntry(email)
	if err != nil {
		metrics.WaitlistSubmissions.WithLabelValues("error").Inc()
		return fmt.Errorf("record signup: %w", err)
	}
	if !created {
		// A concurrent submit for the same address won the insert.
		metrics.WaitlistSubmissions.WithLabelValues("duplicate").Inc()
		return nil
	}

	metrics.WaitlistSubmissions.WithLabelValues("ok").Inc()
	s.logger.Info("waitlist signup recorded", zap.Bool("mirrored", s.sink != nil))
	return nil
}

// Valid reports whether email is a bare address with a dotted domain.
func Valid(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
