package service

import (
	"context"

	"github.com/internhub/internship-back-office/internal/infrastructure/external/mailer"
)

// CertificateMailerAdapter adapts the mailer.Client to the
// command.CertificateMailer interface.
type CertificateMailerAdapter struct {
	client *mailer.Client
}

// NewCertificateMailerAdapter creates the adapter.
func NewCertificateMailerAdapter(client *mailer.Client) *CertificateMailerAdapter {
	return &CertificateMailerAdapter{client: client}
}

// Send delivers a certificate as a PDF attachment.
func (a *CertificateMailerAdapter) Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error {
	return a.client.Send(ctx, mailer.Message{
		To:      to,
		Subject: subject,
		Body:    body,
		Attach: []mailer.Attachment{
			{Filename: filename, ContentType: "application/pdf", Content: attachment},
		},
	})
}
