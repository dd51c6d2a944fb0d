package models

import "fmt"

// Stage is a position in the admission pipeline
type Stage string

const (
	StagePersonalInfo        Stage = "stage_1"
	StageEducation           Stage = "stage_2"
	StageProgramSelection    Stage = "stage_3"
	StageProgramConfirmation Stage = "stage_4"
	StagePayment             Stage = "stage_5"
	StageCompleted           Stage = "completed"
)

var stageOrder = []Stage{
	StagePersonalInfo,
	StageEducation,
	StageProgramSelection,
	StageProgramConfirmation,
	StagePayment,
	StageCompleted,
}

// Ordinal returns the 1-based position of the stage, or 0 for an unknown value.
func (s Stage) Ordinal() int {
	for i, st := range stageOrder {
		if st == s {
			return i + 1
		}
	}
	return 0
}

func (s Stage) Valid() bool { return s.Ordinal() > 0 }

// Next returns the stage that follows s. Completed is its own successor.
func (s Stage) Next() Stage {
	o := s.Ordinal()
	if o == 0 || o >= len(stageOrder) {
		return StageCompleted
	}
	return stageOrder[o]
}

// Max returns whichever of the two stages is further along.
func (s Stage) Max(other Stage) Stage {
	if other.Ordinal() > s.Ordinal() {
		return other
	}
	return s
}

// StageByNumber maps the 1..5 stage numbers used in URLs to stages.
func StageByNumber(n int) (Stage, error) {
	if n < 1 || n > 5 {
		return "", fmt.Errorf("unknown stage number %d", n)
	}
	return stageOrder[n-1], nil
}

// AdmissionStatus is the review outcome of an application
type AdmissionStatus string

const (
	AdmissionPending     AdmissionStatus = "pending"
	AdmissionUnderReview AdmissionStatus = "under_review"
	AdmissionEligible    AdmissionStatus = "eligible"
	AdmissionIneligible  AdmissionStatus = "ineligible"
	AdmissionApproved    AdmissionStatus = "approved"
	AdmissionRejected    AdmissionStatus = "rejected"
)

func (s AdmissionStatus) Valid() bool {
	switch s {
	case AdmissionPending, AdmissionUnderReview, AdmissionEligible, AdmissionIneligible, AdmissionApproved, AdmissionRejected:
		return true
	}
	return false
}

// PaymentStatus tracks stage-5 capture
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// Intake is the enrollment term
type Intake string

const (
	IntakeFall   Intake = "fall"
	IntakeSpring Intake = "spring"
)

func (i Intake) Valid() bool { return i == IntakeFall || i == IntakeSpring }

// Gender values accepted at stage 1
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// PaymentMethod values accepted at stage 5
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOnline       PaymentMethod = "online"
	PaymentCheque       PaymentMethod = "cheque"
)

// PaymentMethods lists the methods offered on the payment stage.
var PaymentMethods = []PaymentMethod{PaymentBankTransfer, PaymentOnline, PaymentCheque}

// RoleType defines the staff role type
type RoleType string

const (
	RoleAdmin   RoleType = "ADMIN"
	RoleOfficer RoleType = "OFFICER"
)
