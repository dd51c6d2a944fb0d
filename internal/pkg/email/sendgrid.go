package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers messages through the SendGrid v3 API
type SendGridSender struct {
	request rest.Request
	client  *rest.Client
	from    *sgmail.Email
}

func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", "")
	req.Method = rest.Post
	return &SendGridSender{
		request: req,
		client:  &rest.Client{HTTPClient: &http.Client{}},
		from:    sgmail.NewEmail(fromName, fromEmail),
	}
}

// Send posts one message. Each call builds its own request so concurrent
// sends never share a body.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	req := s.request
	req.Body = sgmail.GetRequestBody(s.prepare(msg))
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return fmt.Errorf("sendgrid request build failed: %w", err)
	}

	raw, err := s.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	res, err := rest.BuildResponse(raw)
	if err != nil {
		return fmt.Errorf("sendgrid response unreadable: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextBody),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)
	return m
}
