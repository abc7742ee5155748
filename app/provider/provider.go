package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

// Recipient is the site owner's inbox.
type Recipient struct {
	Email string
	Name  string
}

// EmailBackend delivers a composed payload to the recipient.
type EmailBackend interface {
	// Kind is the delivery chain slot the backend fills.
	Kind() entity.Backend
	// Name identifies the concrete service for logs.
	Name() string
	Send(ctx context.Context, to Recipient, p composer.Payload) error
}
