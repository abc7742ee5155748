package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

var sesAuthErrorCodes = map[string]struct{}{
	"AccessDeniedException":       {},
	"ExpiredTokenException":       {},
	"IncompleteSignature":         {},
	"InvalidClientTokenId":        {},
	"MissingAuthenticationToken":  {},
	"SignatureDoesNotMatch":       {},
	"UnrecognizedClientException": {},
}

type SESProvider struct {
	client *sesv2.Client
	source string
}

// NewSESProvider builds a provider that sends email via AWS SES.
func NewSESProvider(cfg aws.Config, source string, optFns ...func(*sesv2.Options)) *SESProvider {
	return &SESProvider{
		client: sesv2.NewFromConfig(cfg, optFns...),
		source: source,
	}
}

func (p *SESProvider) Kind() entity.Backend { return entity.BackendPrimaryAPI }

func (p *SESProvider) Name() string { return "ses" }

// Send renders a raw MIME email and sends it via SES.
func (p *SESProvider) Send(ctx context.Context, to Recipient, payload composer.Payload) error {
	if to.Email == "" {
		return fmt.Errorf("recipient is required")
	}

	raw, err := composer.BuildRaw(p.source, to.Email, payload)
	if err != nil {
		return fmt.Errorf("build raw email: %w", err)
	}

	_, err = p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(p.source),
		Destination: &types.Destination{
			ToAddresses: []string{to.Email},
		},
		ReplyToAddresses: replyToAddresses(payload),
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return classifySESError(err)
	}

	return nil
}

func replyToAddresses(payload composer.Payload) []string {
	if payload.ReplyTo == "" {
		return nil
	}
	return []string{payload.ReplyTo}
}

// classifySESError maps SDK errors onto *Error, flagging credential and
// permission problems.
func classifySESError(err error) error {
	providerErr := &Error{Provider: "ses", Message: "send raw email", Cause: err}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		providerErr.StatusCode = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		providerErr.Code = apiErr.ErrorCode()
		if _, ok := sesAuthErrorCodes[providerErr.Code]; ok {
			providerErr.Auth = true
		}
	}

	if providerErr.StatusCode == http.StatusUnauthorized || providerErr.StatusCode == http.StatusForbidden {
		providerErr.Auth = true
	}

	return providerErr
}
