package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info().
		Str("toEmail", msg.ToEmail).
		Str("toName", msg.ToName).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("Email transport not configured - message logged")
	return nil
}
