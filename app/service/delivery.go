package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/dto"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"github.com/vibast-solutions/ms-go-contact/app/provider"
)

const EventSubmissionUnsent = "contact.submission.unsent"

// OperatorLog records operator-facing events. Implementations must not
// block the caller or report failures.
type OperatorLog interface {
	Record(ctx context.Context, event string, detail map[string]string)
}

// RetryPolicy bounds the attempts made against one backend. The wait before
// attempt n+1 is n * BackoffStep.
type RetryPolicy struct {
	MaxAttempts int
	BackoffStep time.Duration
}

// DefaultRetryPolicy is three attempts with a one second linear step.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffStep: time.Second}
}

type DeliveryService struct {
	backends  []provider.EmailBackend
	recipient provider.Recipient
	policy    RetryPolicy
	oplog     OperatorLog
	logger    logrus.FieldLogger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewDeliveryService builds the delivery chain. Backends are tried in the
// given order; the slice is copied and never changes afterwards.
func NewDeliveryService(backends []provider.EmailBackend, recipient provider.Recipient, policy RetryPolicy, oplog OperatorLog, logger logrus.FieldLogger) *DeliveryService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if policy.BackoffStep < 0 {
		policy.BackoffStep = 0
	}
	chain := make([]provider.EmailBackend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			chain = append(chain, b)
		}
	}
	return &DeliveryService{
		backends:  chain,
		recipient: recipient,
		policy:    policy,
		oplog:     oplog,
		logger:    logger.WithField("component", "delivery"),
		sleep:     sleepWithContext,
	}
}

// Backends returns a copy of the configured chain.
func (s *DeliveryService) Backends() []provider.EmailBackend {
	return append([]provider.EmailBackend(nil), s.backends...)
}

// Deliver composes the notification and walks the backend chain. It never
// returns an error; failures are described by the outcome.
func (s *DeliveryService) Deliver(ctx context.Context, req dto.SubmissionRequest) entity.DeliveryOutcome {
	payload := composer.Compose(req)
	logger := s.logger
	if id, ok := SubmissionIDFromContext(ctx); ok && id != "" {
		logger = logger.WithField("submission_id", id)
	}

	if len(s.backends) == 0 {
		if s.oplog != nil {
			s.oplog.Record(ctx, EventSubmissionUnsent, map[string]string{
				"name":    req.Name,
				"email":   req.Email,
				"message": req.Message,
			})
		}
		return entity.DeliveryOutcome{Success: true, BackendUsed: entity.BackendNone}
	}

	outcome := entity.DeliveryOutcome{}
	record := func(a entity.DeliveryAttempt) {
		outcome.Attempts = append(outcome.Attempts, a)
	}

	for i, backend := range s.backends {
		result, err := s.tryBackend(ctx, logger, backend, payload, record)
		if result == entity.AttemptSuccess {
			outcome.Success = true
			outcome.BackendUsed = backend.Kind()
			outcome.ErrorDetail = ""
			return outcome
		}

		outcome.ErrorDetail = fmt.Sprintf("%s: %v", backend.Name(), err)
		if i < len(s.backends)-1 {
			logger.WithFields(logrus.Fields{
				"backend": backend.Name(),
				"result":  string(result),
				"next":    s.backends[i+1].Name(),
			}).Warn("email backend failed, falling back")
		}
	}

	return outcome
}

// tryBackend runs the retry policy for one backend and returns Success,
// AuthFailure or Exhausted.
func (s *DeliveryService) tryBackend(ctx context.Context, logger logrus.FieldLogger, backend provider.EmailBackend, payload composer.Payload, record func(entity.DeliveryAttempt)) (entity.AttemptOutcome, error) {
	var lastErr error

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * s.policy.BackoffStep
			if err := s.sleep(ctx, wait); err != nil {
				return entity.AttemptExhausted, fmt.Errorf("%v (retry aborted: %w)", lastErr, err)
			}
		}

		err := backend.Send(ctx, s.recipient, payload)
		if err == nil {
			record(entity.DeliveryAttempt{Backend: backend.Kind(), AttemptNumber: attempt, Outcome: entity.AttemptSuccess})
			logger.WithFields(logrus.Fields{"backend": backend.Name(), "attempt": attempt}).Info("email sent")
			return entity.AttemptSuccess, nil
		}
		lastErr = err

		entry := logger.WithFields(logrus.Fields{
			"backend":      backend.Name(),
			"attempt":      attempt,
			"max_attempts": s.policy.MaxAttempts,
		}).WithError(err)

		if provider.IsAuthFailure(err) {
			record(entity.DeliveryAttempt{Backend: backend.Kind(), AttemptNumber: attempt, Outcome: entity.AttemptAuthFailure, Error: err.Error()})
			entry.Error("email backend rejected credentials, not retrying")
			return entity.AttemptAuthFailure, err
		}

		if attempt == s.policy.MaxAttempts {
			record(entity.DeliveryAttempt{Backend: backend.Kind(), AttemptNumber: attempt, Outcome: entity.AttemptExhausted, Error: err.Error()})
			entry.Warn("email send attempt failed, retries exhausted")
			break
		}

		record(entity.DeliveryAttempt{Backend: backend.Kind(), AttemptNumber: attempt, Outcome: entity.AttemptRetryableFailure, Error: err.Error()})
		entry.Warn("email send attempt failed")
	}

	return entity.AttemptExhausted, lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
