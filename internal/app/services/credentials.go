package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/helpers"
)

// CredentialGenerator derives roll numbers and institutional emails
type CredentialGenerator struct {
	emailDomain string
	clock       helpers.Clock
}

// NewCredentialGenerator creates a generator for the given mail domain
func NewCredentialGenerator(emailDomain string, clock helpers.Clock) *CredentialGenerator {
	if clock == nil {
		clock = helpers.SystemClock
	}
	return &CredentialGenerator{
		emailDomain: strings.TrimPrefix(strings.TrimSpace(emailDomain), "@"),
		clock:       clock,
	}
}

// TermCode is the intake letter followed by the two-digit year, e.g. f26.
func TermCode(intake models.Intake, yy int) string {
	letter := "f"
	if intake == models.IntakeSpring {
		letter = "s"
	}
	return fmt.Sprintf("%s%02d", letter, yy)
}

// Generate formats the credentials for one reserved sequence number.
func (g *CredentialGenerator) Generate(program string, intake models.Intake, yy, sequence int) (rollNumber, institutionalEmail string) {
	rollNumber = fmt.Sprintf("%02d-%s-%s-%03d", yy, strings.ToLower(program), TermCode(intake, yy), sequence)
	institutionalEmail = fmt.Sprintf("student.%s@%s", rollNumber, g.emailDomain)
	return rollNumber, institutionalEmail
}

// Issue reserves a sequence and stamps credentials on app. It must run
// inside the approval transaction. An application that already has a roll
// number is left untouched and no sequence is consumed.
func (g *CredentialGenerator) Issue(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application, program string, intake models.Intake) error {
	if app.HasCredentials() {
		return nil
	}

	year := g.clock().Year()
	seq, err := repo.NextRollSequence(ctx, models.RollSequenceKey{Year: year, Program: program, Intake: intake})
	if err != nil {
		return fmt.Errorf("error reserving roll sequence: %w", err)
	}

	roll, email := g.Generate(program, intake, year%100, seq)
	app.RollNumber = &roll
	app.InstitutionalEmail = &email
	return nil
}
