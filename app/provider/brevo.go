package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

const (
	defaultBrevoTimeout = 10 * time.Second
	brevoSendPath       = "/v3/smtp/email"
)

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	ReplyTo     *brevoContact  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoSendResponse struct {
	MessageID string `json:"messageId"`
}

type brevoErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BrevoProvider sends through the Brevo transactional email REST API.
type BrevoProvider struct {
	client *resty.Client
	sender brevoContact
}

// NewBrevoProvider builds a provider for the given API key and base URL.
func NewBrevoProvider(baseURL string, apiKey string, senderEmail string, senderName string) (*BrevoProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultBrevoTimeout)
	return NewBrevoProviderWithClient(client, baseURL, apiKey, senderEmail, senderName)
}

// NewBrevoProviderWithClient builds a provider on top of an existing resty client.
func NewBrevoProviderWithClient(client *resty.Client, baseURL string, apiKey string, senderEmail string, senderName string) (*BrevoProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("brevo api key is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid brevo base url: %w", err)
	}
	if strings.TrimSpace(senderEmail) == "" {
		return nil, fmt.Errorf("sender email is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultBrevoTimeout)
	}
	// Retries are owned by the delivery service.
	client.SetRetryCount(0)
	client.SetBaseURL(baseURL)
	client.SetHeader("api-key", apiKey)
	client.SetHeader("Accept", "application/json")

	return &BrevoProvider{
		client: client,
		sender: brevoContact{Email: senderEmail, Name: senderName},
	}, nil
}

func (p *BrevoProvider) Kind() entity.Backend { return entity.BackendPrimaryAPI }

func (p *BrevoProvider) Name() string { return "brevo" }

// Send posts one transactional email.
func (p *BrevoProvider) Send(ctx context.Context, to Recipient, payload composer.Payload) error {
	body := brevoSendRequest{
		Sender:      p.sender,
		To:          []brevoContact{{Email: to.Email, Name: to.Name}},
		Subject:     payload.Subject,
		HTMLContent: payload.HTMLBody,
	}
	if payload.ReplyTo != "" {
		body.ReplyTo = &brevoContact{Email: payload.ReplyTo, Name: payload.ReplyToName}
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&brevoSendResponse{}).
		SetError(&brevoErrorBody{}).
		Post(brevoSendPath)
	if err != nil && (response == nil || response.StatusCode() == 0) {
		return &Error{
			Provider: p.Name(),
			Message:  "request failed",
			Cause:    err,
		}
	}

	status := response.StatusCode()
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	providerErr := &Error{
		Provider:   p.Name(),
		StatusCode: status,
		Auth:       status == http.StatusUnauthorized || status == http.StatusForbidden,
	}
	if apiErr, ok := response.Error().(*brevoErrorBody); ok && apiErr != nil {
		providerErr.Code = apiErr.Code
		providerErr.Message = apiErr.Message
		if strings.EqualFold(apiErr.Code, "unauthorized") {
			providerErr.Auth = true
		}
	}
	if providerErr.Message == "" {
		providerErr.Message = strings.TrimSpace(response.String())
	}
	if providerErr.Message == "" {
		providerErr.Message = http.StatusText(status)
	}
	return providerErr
}
