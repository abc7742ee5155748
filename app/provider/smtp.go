package provider

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"gopkg.in/gomail.v2"
)

// SMTP reply codes that mean the credentials were rejected.
var smtpAuthReplyCodes = map[int]struct{}{
	530: {},
	534: {},
	535: {},
}

// MailDialer is satisfied by *gomail.Dialer.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends through an SMTP relay.
type SMTPProvider struct {
	dialer   MailDialer
	source   string
	from     string
	fromName string
}

// NewSMTPProvider builds a relay provider. Port 465 uses implicit TLS,
// other ports upgrade with STARTTLS when the server offers it.
func NewSMTPProvider(source string, host string, port int, username string, password string, from string) (*SMTPProvider, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	return NewSMTPProviderWithDialer(gomail.NewDialer(host, port, username, password), source, from, "Portfolio Contact Form")
}

// NewSMTPProviderWithDialer builds a relay provider on an existing dialer.
func NewSMTPProviderWithDialer(dialer MailDialer, source string, from string, fromName string) (*SMTPProvider, error) {
	if dialer == nil {
		return nil, fmt.Errorf("mail dialer is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("sender email is required")
	}
	return &SMTPProvider{dialer: dialer, source: source, from: from, fromName: fromName}, nil
}

func (p *SMTPProvider) Kind() entity.Backend { return entity.BackendSMTPRelay }

func (p *SMTPProvider) Name() string {
	if p.source == "" {
		return "smtp"
	}
	return "smtp:" + p.source
}

// Send dials the relay and delivers one message. gomail has no context
// support, so cancellation is only checked before dialing.
func (p *SMTPProvider) Send(ctx context.Context, to Recipient, payload composer.Payload) error {
	if err := ctx.Err(); err != nil {
		return &Error{Provider: p.Name(), Message: "send aborted", Cause: err}
	}
	if to.Email == "" {
		return fmt.Errorf("recipient is required")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", p.from, p.fromName)
	msg.SetAddressHeader("To", to.Email, to.Name)
	if payload.ReplyTo != "" {
		msg.SetAddressHeader("Reply-To", payload.ReplyTo, payload.ReplyToName)
	}
	msg.SetHeader("Subject", payload.Subject)
	msg.SetBody("text/html", payload.HTMLBody)

	if err := p.dialer.DialAndSend(msg); err != nil {
		return classifySMTPError(p.Name(), err)
	}
	return nil
}

func classifySMTPError(name string, err error) error {
	providerErr := &Error{Provider: name, Message: "dial and send", Cause: err}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		providerErr.StatusCode = protoErr.Code
		if _, ok := smtpAuthReplyCodes[protoErr.Code]; ok {
			providerErr.Auth = true
		}
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "authentication failed") || strings.Contains(lower, "username and password not accepted") {
		providerErr.Auth = true
	}

	return providerErr
}
