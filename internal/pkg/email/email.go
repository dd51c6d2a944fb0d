package email

import (
	"context"
	"fmt"
	"strings"
)

// Message is one outbound email
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers messages over a mail transport
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a transport
type Config struct {
	// Provider is "smtp", "sendgrid" or "log"
	Provider       string
	FromName       string
	FromEmail      string
	SMTP           SMTPConfig
	SendGridAPIKey string
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

func (m Message) validate() error {
	if strings.TrimSpace(m.ToEmail) == "" {
		return fmt.Errorf("email: message has no recipient")
	}
	if m.Subject == "" {
		return fmt.Errorf("email: message has no subject")
	}
	return nil
}
