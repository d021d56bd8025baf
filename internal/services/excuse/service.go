package excuse

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/telemetry"
	"github.com/benvon/excuse-deck/internal/validation"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one remote excuse attempt
const DefaultTimeout = 8 * time.Second

// ErrNoRemote is returned by Remote when no generator is configured
var ErrNoRemote = errors.New("no remote excuse generator configured")

// Service hands out excuses. The remote generator is optional.
type Service struct {
	remote  Generator
	local   *LocalGenerator
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates an excuse service. remote may be nil, local defaults to
// the built-in tables and a non-positive timeout uses DefaultTimeout.
func NewService(remote Generator, local *LocalGenerator, timeout time.Duration, logger *zap.Logger) *Service {
	if local == nil {
		local = NewLocalGenerator()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{remote: remote, local: local, timeout: timeout, logger: logger}
}

// HasRemote reports whether a remote generator is configured
func (s *Service) HasRemote() bool {
	return s.remote != nil
}

// Excuse returns an excuse for skipping the event. It never fails: one
// remote attempt is made within the timeout, then the local tables are used.
func (s *Service) Excuse(ctx context.Context, title, eventType string) string {
	return s.ExcuseForContext(ctx, models.ExcuseContext(title, eventType))
}

// ExcuseForContext is Excuse with a prebuilt context string
func (s *Service) ExcuseForContext(ctx context.Context, eventContext string) string {
	if s.remote == nil {
		return s.local.Excuse()
	}

	text, err := s.Remote(ctx, eventContext)
	if err != nil {
		s.logger.Warn("excuse_remote_failed",
			zap.String("reason", Reason(err)),
			zap.String("context", SanitizePrompt(eventContext, false)),
			zap.Error(err))
		return s.local.Excuse()
	}
	return text
}

// Remote makes a single remote attempt bounded by the service timeout
func (s *Service) Remote(ctx context.Context, eventContext string) (string, error) {
	if s.remote == nil {
		return "", ErrNoRemote
	}

	ctx, span := telemetry.Tracer().Start(ctx, "excuse.remote")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.remote.Generate(ctx, eventContext)
	if err == nil {
		text = validation.SanitizeText(text)
		if text == "" {
			err = ErrEmptyExcuse
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Reason(err))
		return "", err
	}
	return text, nil
}

// Local returns an excuse from the local tables
func (s *Service) Local() string {
	return s.local.Excuse()
}
