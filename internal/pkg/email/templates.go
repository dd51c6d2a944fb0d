package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// EligibilityNotice is sent when stage 3 finds the applicant eligible
type EligibilityNotice struct {
	Institution   string
	ApplicationID string
	ApplicantName string
	Email         string
	Program       string
	Score         float64
	ContinueURL   string
}

// AdmissionNotice is sent once payment is finalized and credentials exist
type AdmissionNotice struct {
	Institution        string
	ApplicantName      string
	Email              string
	Program            string
	Intake             string
	RollNumber         string
	InstitutionalEmail string
	LoginURL           string
}

const eligibilityHTML = `<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">You are eligible for {{.Program}}</h2>
		<p>Dear {{.ApplicantName}},</p>
		<p>Your application <strong>{{.ApplicationID}}</strong> meets the admission criteria for {{.Program}} with an eligibility score of <strong>{{printf "%.2f" .Score}}</strong>.</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.ContinueURL}}" style="background-color: #4a86e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Continue your application</a>
		</div>
		<p>Best regards,<br>{{.Institution}} Admissions Team</p>
	</div>
</body>
</html>`

const eligibilityText = `Dear {{.ApplicantName}},

Your application {{.ApplicationID}} meets the admission criteria for {{.Program}} with an eligibility score of {{printf "%.2f" .Score}}.
Continue your application: {{.ContinueURL}}

{{.Institution}} Admissions Team
`

const admissionHTML = `<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">Welcome to {{.Institution}}!</h2>
		<p>Dear {{.ApplicantName}},</p>
		<p>Your admission to <strong>{{.Program}}</strong> ({{.Intake}} intake) is confirmed.</p>
		<table style="margin: 20px 0;">
			<tr><td>Roll number</td><td><strong>{{.RollNumber}}</strong></td></tr>
			<tr><td>University email</td><td><strong>{{.InstitutionalEmail}}</strong></td></tr>
		</table>
		<p>You can sign in at <a href="{{.LoginURL}}">{{.LoginURL}}</a>.</p>
		<p>Best regards,<br>{{.Institution}} Admissions Team</p>
	</div>
</body>
</html>`

const admissionText = `Dear {{.ApplicantName}},

Your admission to {{.Program}} ({{.Intake}} intake) is confirmed.
Roll number: {{.RollNumber}}
University email: {{.InstitutionalEmail}}
Sign in at {{.LoginURL}}

{{.Institution}} Admissions Team
`

var (
	eligibilityHTMLTmpl = template.Must(template.New("eligibility").Parse(eligibilityHTML))
	eligibilityTextTmpl = texttemplate.Must(texttemplate.New("eligibility").Parse(eligibilityText))
	admissionHTMLTmpl   = template.Must(template.New("admission").Parse(admissionHTML))
	admissionTextTmpl   = texttemplate.Must(texttemplate.New("admission").Parse(admissionText))
)

func render(html *template.Template, text *texttemplate.Template, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// Message builds the eligibility email
func (n EligibilityNotice) Message() (Message, error) {
	htmlBody, textBody, err := render(eligibilityHTMLTmpl, eligibilityTextTmpl, n)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ToEmail:  n.Email,
		ToName:   n.ApplicantName,
		Subject:  fmt.Sprintf("You are eligible for %s - %s", n.Program, n.Institution),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// Message builds the admission confirmation email
func (n AdmissionNotice) Message() (Message, error) {
	htmlBody, textBody, err := render(admissionHTMLTmpl, admissionTextTmpl, n)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ToEmail:  n.Email,
		ToName:   n.ApplicantName,
		Subject:  fmt.Sprintf("Admission confirmed - %s", n.Institution),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}
