package service

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

const (
	MessageSent   = "Message sent successfully!"
	MessageFailed = "Failed to send message. Please try again later."
)

// ContactResponse is the body returned to the visitor.
type ContactResponse struct {
	Message string `json:"message,omitempty"`
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// Reporter turns a delivery outcome into the visitor response.
type Reporter struct {
	diagnostic bool
	logger     logrus.FieldLogger
}

// NewReporter builds a reporter; diagnostic enables error details in
// failure responses.
func NewReporter(diagnostic bool, logger logrus.FieldLogger) *Reporter {
	return &Reporter{diagnostic: diagnostic, logger: logger.WithField("component", "reporter")}
}

// Report maps the outcome to an HTTP status and body and logs one line.
func (r *Reporter) Report(outcome entity.DeliveryOutcome) (int, ContactResponse) {
	fields := logrus.Fields{
		"backend":  outcome.BackendUsed.String(),
		"attempts": len(outcome.Attempts),
	}

	if outcome.Success {
		if outcome.BackendUsed == entity.BackendNone {
			r.logger.WithFields(fields).Warn("no email backend configured, submission recorded in operator log only")
		} else {
			r.logger.WithFields(fields).Info("contact message delivered")
		}
		return http.StatusOK, ContactResponse{Message: MessageSent, Success: true}
	}

	r.logger.WithFields(fields).WithField("error", outcome.ErrorDetail).Error("contact message delivery failed on every backend")

	resp := ContactResponse{Error: MessageFailed}
	if r.diagnostic {
		resp.Details = outcome.ErrorDetail
	}
	return http.StatusInternalServerError, resp
}
