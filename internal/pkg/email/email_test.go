package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityNoticeMessage(t *testing.T) {
	msg, err := EligibilityNotice{
		Institution:   "Superior University",
		ApplicationID: "APP-1A2B3C4D",
		ApplicantName: "Ayesha <Khan>",
		Email:         "a@x.com",
		Program:       "BSCS",
		Score:         65,
		ContinueURL:   "http://localhost:8080/admission/stage4/APP-1A2B3C4D/",
	}.Message()
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", msg.ToEmail)
	assert.Contains(t, msg.Subject, "BSCS")
	assert.Contains(t, msg.TextBody, "65.00")
	assert.Contains(t, msg.TextBody, "/admission/stage4/APP-1A2B3C4D/")
	assert.Contains(t, msg.HTMLBody, "Ayesha &lt;Khan&gt;")
}

func TestAdmissionNoticeMessage(t *testing.T) {
	msg, err := AdmissionNotice{
		Institution:        "Superior University",
		ApplicantName:      "Ayesha Khan",
		Email:              "a@x.com",
		Program:            "BSCS",
		Intake:             "fall",
		RollNumber:         "26-bscs-f26-001",
		InstitutionalEmail: "student.26-bscs-f26-001@superior.edu.pk",
		LoginURL:           "http://localhost:8080/login/",
	}.Message()
	require.NoError(t, err)

	assert.True(t, strings.Contains(msg.TextBody, "26-bscs-f26-001"))
	assert.Contains(t, msg.HTMLBody, "student.26-bscs-f26-001@superior.edu.pk")
}

func TestNewSender_FallsBackToLog(t *testing.T) {
	s, err := NewSender(Config{Provider: "smtp"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(Config{Provider: "sendgrid"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	_, err = NewSender(Config{Provider: "pigeon"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zerolog.Nop())
	assert.NoError(t, s.Send(context.Background(), Message{ToEmail: "a@x.com", Subject: "hi"}))
	assert.Error(t, s.Send(context.Background(), Message{Subject: "hi"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{ToEmail: "a@x.com", Subject: "hi"}), context.Canceled)
}

func TestSMTPBuildMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587}, "Admissions", "adm@x.com", zerolog.Nop())
	raw := string(s.buildMessage(Message{ToEmail: "a@x.com", ToName: "A", Subject: "Hello", HTMLBody: "<p>x</p>"}))

	assert.True(t, strings.HasPrefix(raw, "From: Admissions <adm@x.com>\r\n"))
	assert.Contains(t, raw, "To: A <a@x.com>\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>x</p>"))
}

func sendGridAt(t *testing.T, h http.HandlerFunc) *SendGridSender {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s := NewSendGridSender("sg-key", "Admissions", "adm@x.com")
	s.request.BaseURL = srv.URL + "/v3/mail/send"
	return s
}

func TestSendGridSender_Send(t *testing.T) {
	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			Subject string `json:"subject"`
		} `json:"personalizations"`
	}
	s := sendGridAt(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	})

	msg := Message{ToEmail: "a@x.com", Subject: "Hello", TextBody: "x", HTMLBody: "<p>x</p>"}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, "adm@x.com", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "Hello", body.Personalizations[0].Subject)
}

func TestSendGridSender_Rejected(t *testing.T) {
	s := sendGridAt(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid from"}]}`))
	})

	err := s.Send(context.Background(), Message{ToEmail: "a@x.com", Subject: "Hello", TextBody: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid from")
}

func TestSendGridSender_HonorsContext(t *testing.T) {
	s := sendGridAt(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Send(ctx, Message{ToEmail: "a@x.com", Subject: "Hello", TextBody: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
