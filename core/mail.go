package core

import (
	"context"
	"net/mail"
	"strings"
)

type (
	Attachment struct {
		Content     []byte
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Subject     string
		Body        string // text/plain
		Attachments []Attachment
	}

	// EmailService is any service that can send emails
	EmailService interface {
		Send(ctx context.Context, msg EmailMessage) error
	}
)

func (m *EmailMessage) Attach(content []byte, filename, contentType string) {
	m.Attachments = append(m.Attachments, Attachment{Content: content, ContentType: contentType, Filename: filename})
}

func (m EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m EmailMessage) HasContent() bool     { return m.Body != "" }
func (m EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseAddresses parses a list of addresses, skipping blanks.
func ParseAddresses(list []string) ([]mail.Address, error) {
	addrs := make([]mail.Address, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		a, err := mail.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, *a)
	}
	return addrs, nil
}
