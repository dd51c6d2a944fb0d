package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusgpt/admission/internal/pkg/email"
)

// Notifier sends applicant emails. Delivery problems never reach the caller.
type Notifier interface {
	NotifyEligible(ctx context.Context, notice email.EligibilityNotice)
	NotifyAdmitted(ctx context.Context, notice email.AdmissionNotice)
}

// NotificationService renders notices and hands them to a mail transport
type NotificationService struct {
	sender      email.Sender
	timeout     time.Duration
	institution string
	logger      zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(sender email.Sender, timeout time.Duration, institution string, logger zerolog.Logger) *NotificationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		sender:      sender,
		timeout:     timeout,
		institution: institution,
		logger:      logger.With().Str("component", "notifications").Logger(),
	}
}

// NotifyEligible sends the stage-3 eligibility notice
func (s *NotificationService) NotifyEligible(ctx context.Context, notice email.EligibilityNotice) {
	notice.Institution = s.institution
	msg, err := notice.Message()
	if err != nil {
		s.logger.Error().Err(err).Str("applicationId", notice.ApplicationID).Msg("Failed to render eligibility notice")
		return
	}
	s.send(ctx, "eligibility", msg)
}

// NotifyAdmitted sends the admission confirmation with the issued credentials
func (s *NotificationService) NotifyAdmitted(ctx context.Context, notice email.AdmissionNotice) {
	notice.Institution = s.institution
	msg, err := notice.Message()
	if err != nil {
		s.logger.Error().Err(err).Str("rollNumber", notice.RollNumber).Msg("Failed to render admission notice")
		return
	}
	s.send(ctx, "admission", msg)
}

// send runs detached from the request's cancellation but bounded by the timeout.
func (s *NotificationService) send(ctx context.Context, kind string, msg email.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).
			Str("kind", kind).
			Str("to", msg.ToEmail).
			Dur("elapsed", time.Since(start)).
			Msg("Notification not delivered")
		return
	}
	s.logger.Info().Str("kind", kind).Str("to", msg.ToEmail).Msg("Notification sent")
}
