package email

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NewSender builds the transport named by cfg.Provider. An smtp or sendgrid
// provider without credentials falls back to the log transport.
func NewSender(cfg Config, logger zerolog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTP.Username == "" || cfg.SMTP.Password == "" {
			logger.Warn().Msg("SMTP credentials not configured - emails will be logged instead of sent")
			return NewLogSender(logger), nil
		}
		return NewSMTPSender(cfg.SMTP, cfg.FromName, cfg.FromEmail, logger), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			logger.Warn().Msg("SendGrid API key not configured - emails will be logged instead of sent")
			return NewLogSender(logger), nil
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail), nil
	case "log", "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
