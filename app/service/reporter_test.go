package service

import (
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

func TestReporterSuccess(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	status, resp := NewReporter(false, logger).Report(entity.DeliveryOutcome{Success: true, BackendUsed: entity.BackendSMTPRelay})

	if status != http.StatusOK || resp.Message != MessageSent || !resp.Success || resp.Error != "" {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel || entry.Data["backend"] != "smtp_relay" {
		t.Fatalf("expected info log naming the backend, got %+v", entry)
	}
}

func TestReporterUnconfiguredLogsWarning(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	status, resp := NewReporter(false, logger).Report(entity.DeliveryOutcome{Success: true})

	if status != http.StatusOK || resp.Message != MessageSent {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected warning for unconfigured delivery, got %+v", entry)
	}
}

func TestReporterFailureDetails(t *testing.T) {
	t.Parallel()

	outcome := entity.DeliveryOutcome{Success: false, ErrorDetail: "smtp:gmail: status=535"}

	tests := []struct {
		name        string
		diagnostic  bool
		wantDetails string
	}{
		{name: "production hides details", diagnostic: false, wantDetails: ""},
		{name: "diagnostic shows details", diagnostic: true, wantDetails: "smtp:gmail: status=535"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			logger, hook := test.NewNullLogger()
			status, resp := NewReporter(tc.diagnostic, logger).Report(outcome)
			if status != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", status)
			}
			if resp.Error != MessageFailed || resp.Success || resp.Message != "" {
				t.Fatalf("unexpected response %+v", resp)
			}
			if resp.Details != tc.wantDetails {
				t.Fatalf("expected details %q, got %q", tc.wantDetails, resp.Details)
			}
			if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel {
				t.Fatalf("expected error log, got %+v", entry)
			}
		})
	}
}
