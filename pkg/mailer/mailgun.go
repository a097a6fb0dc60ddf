package mailer

import (
	"context"
	"strings"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends rendered emails. Messages are tagged with the email type so Mailgun analytics
// can split welcome, password and family notifications.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

// NewMailgun builds the client once. region "eu" targets the EU API host.
func NewMailgun(domain, apiKey, sender, region string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if strings.EqualFold(region, "eu") {
		client.SetAPIBase(mg.APIBaseEU)
	}
	return &Mailgun{Sender: sender, client: client}
}

// Send delivers one message. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string, tags ...string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			if err := msg.AddTag(t); err != nil {
				return err
			}
		}
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
