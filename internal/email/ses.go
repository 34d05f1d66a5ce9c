// Package email sends transactional mail through AWS SES.
package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sendAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends account mail.
type SESSender struct {
	client    sendAPI
	fromEmail string
	fromName  string
	baseURL   string
}

// NewSESSender creates a sender. baseURL is the web app origin that hosts the
// password reset page.
func NewSESSender(ctx context.Context, region, fromEmail, fromName, baseURL string) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESSender{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// ResetURL is the link placed in a reset email.
func (e *SESSender) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", e.baseURL, url.QueryEscape(token))
}

// SendPasswordReset mails a single-use reset link valid for one hour.
func (e *SESSender) SendPasswordReset(ctx context.Context, toEmail, displayName, token string) error {
	link := e.ResetURL(token)
	greeting := "Hi"
	if displayName != "" {
		greeting = "Hi " + displayName
	}

	subject := "Reset your Showcase password"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #222;">
  <div style="max-width: 560px; margin: 0 auto; padding: 20px;">
    <p>%s,</p>
    <p>Someone asked to reset the password on your Showcase account. The link below works once and expires in one hour.</p>
    <p><a href="%s" style="display: inline-block; padding: 10px 20px; background: #4f46e5; color: #fff; border-radius: 6px; text-decoration: none;">Choose a new password</a></p>
    <p style="word-break: break-all; color: #666;">%s</p>
    <p>If it wasn't you, ignore this email and your password stays the same.</p>
  </div>
</body>
</html>`, greeting, link, link)
	textBody := fmt.Sprintf("%s,\n\nReset your Showcase password (single use, expires in one hour):\n\n%s\n\nIf it wasn't you, ignore this email.\n", greeting, link)

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{toEmail}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
