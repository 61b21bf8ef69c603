package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier delivers messages through the SendGrid v3 mail API.
type SendGridNotifier struct {
	client sendgridClient
	from   *mail.Email
}

// NewSendGridNotifier constructs a notifier using apiKey.
func NewSendGridNotifier(apiKey, from string) *SendGridNotifier {
	return &SendGridNotifier{client: sendgrid.NewSendClient(apiKey), from: mail.NewEmail("", from)}
}

func (n *SendGridNotifier) Notify(ctx context.Context, msg Message) error {
	to := msg.Recipients()
	if len(to) == 0 {
		return ErrNoRecipients
	}

	email := mail.NewV3Mail()
	email.SetFrom(n.from)
	email.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	email.AddPersonalizations(p)
	email.AddContent(mail.NewContent("text/plain", msg.Body))

	for _, a := range msg.Attachments {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		attachment.SetType(a.ContentType)
		attachment.SetFilename(a.Filename)
		attachment.SetDisposition("attachment")
		email.AddAttachment(attachment)
	}

	resp, err := n.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("notify: sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
