package dto

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages returned to the visitor for rejected fields.
const (
	MsgInvalidName    = "Name is required and must be less than 100 characters"
	MsgInvalidEmail   = "Please provide a valid email address"
	MsgInvalidMessage = "Message must be between 10 and 5000 characters"
)

const (
	maxNameLength    = 100
	minMessageLength = 10
	maxMessageLength = 5000
)

// SubmissionRequest is a contact form submission.
type SubmissionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// FromEchoContext binds and normalizes a request from Echo.
func FromEchoContext(ctx echo.Context) (SubmissionRequest, error) {
	var req SubmissionRequest
	if err := ctx.Bind(&req); err != nil {
		return SubmissionRequest{}, err
	}
	req.normalize()
	return req, nil
}

// FromStruct converts and normalizes a gRPC struct payload.
func FromStruct(s *structpb.Struct) SubmissionRequest {
	if s == nil {
		return SubmissionRequest{}
	}
	fields := s.GetFields()
	req := SubmissionRequest{
		Name:    fields["name"].GetStringValue(),
		Email:   fields["email"].GetStringValue(),
		Message: fields["message"].GetStringValue(),
	}
	req.normalize()
	return req
}

// Validate checks length bounds and the email format. All failing fields
// are reported together.
func (r *SubmissionRequest) Validate() error {
	var fields []FieldError

	if n := utf8.RuneCountInString(r.Name); n < 1 || n > maxNameLength {
		fields = append(fields, FieldError{Field: "name", Message: MsgInvalidName})
	}
	if !validEmail(r.Email) {
		fields = append(fields, FieldError{Field: "email", Message: MsgInvalidEmail})
	}
	if n := utf8.RuneCountInString(r.Message); n < minMessageLength || n > maxMessageLength {
		fields = append(fields, FieldError{Field: "message", Message: MsgInvalidMessage})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// normalize trims name and message and lower-cases the email address.
func (r *SubmissionRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Message = strings.TrimSpace(r.Message)
}

// validEmail accepts a bare address only; display names are rejected.
func validEmail(value string) bool {
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at+1:], ".")
}
