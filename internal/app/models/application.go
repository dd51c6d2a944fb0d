package models

import "time"

// Application is one applicant's admission record spanning all five stages
type Application struct {
	ID                 int64           `json:"-" db:"id"`
	ApplicationID      string          `json:"applicationId" db:"application_id" example:"APP-1A2B3C4D"`
	Email              string          `json:"email" db:"email" example:"applicant@example.com"`
	CurrentStage       Stage           `json:"currentStage" db:"current_stage" example:"stage_1"`
	AdmissionStatus    AdmissionStatus `json:"admissionStatus" db:"admission_status" example:"pending"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus" db:"payment_status" example:"pending"`
	PreferredProgram   *string         `json:"preferredProgram,omitempty" db:"preferred_program" example:"BSCS"`
	RollNumber         *string         `json:"rollNumber,omitempty" db:"roll_number" example:"26-bscs-f26-001"`
	InstitutionalEmail *string         `json:"institutionalEmail,omitempty" db:"institutional_email"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
	SubmittedAt        *time.Time      `json:"submittedAt,omitempty" db:"submitted_at"`
	ApprovedAt         *time.Time      `json:"approvedAt,omitempty" db:"approved_at"`
}

// HasCredentials reports whether a roll number has been issued
func (a *Application) HasCredentials() bool {
	return a.RollNumber != nil && *a.RollNumber != ""
}

// ApplicationFilter narrows staff listings; empty fields match everything.
type ApplicationFilter struct {
	Stage   Stage
	Status  AdmissionStatus
	Program string
}

// Dossier is an application together with whichever stage records exist.
type Dossier struct {
	Application  *Application         `json:"application"`
	PersonalInfo *PersonalInfo        `json:"personalInfo,omitempty"`
	Education    *EducationRecord     `json:"education,omitempty"`
	Selection    *ProgramSelection    `json:"selection,omitempty"`
	Confirmation *ProgramConfirmation `json:"confirmation,omitempty"`
	Payment      *PaymentRecord       `json:"payment,omitempty"`
}

// RollSequenceKey identifies one roll-number counter
type RollSequenceKey struct {
	Year    int
	Program string
	Intake  Intake
}
