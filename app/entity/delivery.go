package entity

import "time"

type Backend string

const (
	BackendNone       Backend = ""
	BackendPrimaryAPI Backend = "primary_api"
	BackendSMTPRelay  Backend = "smtp_relay"
)

func (b Backend) String() string {
	if b == BackendNone {
		return "none"
	}
	return string(b)
}

type AttemptOutcome string

const (
	AttemptSuccess          AttemptOutcome = "success"
	AttemptRetryableFailure AttemptOutcome = "retryable_failure"
	AttemptAuthFailure      AttemptOutcome = "auth_failure"
	AttemptExhausted        AttemptOutcome = "exhausted"
)

// DeliveryAttempt is one try against one backend.
type DeliveryAttempt struct {
	Backend       Backend
	AttemptNumber int
	Outcome       AttemptOutcome
	Error         string
}

// DeliveryOutcome is the final result of delivering one submission.
type DeliveryOutcome struct {
	Success     bool
	BackendUsed Backend
	ErrorDetail string
	Attempts    []DeliveryAttempt
}

// AttemptsFor returns the attempts made against a single backend.
func (o DeliveryOutcome) AttemptsFor(backend Backend) []DeliveryAttempt {
	var out []DeliveryAttempt
	for _, a := range o.Attempts {
		if a.Backend == backend {
			out = append(out, a)
		}
	}
	return out
}

type OperatorEvent struct {
	Event      string
	Detail     map[string]string
	OccurredAt time.Time
}
