package models

import "time"

// PersonalInfo is the stage-1 record
type PersonalInfo struct {
	ApplicationPK int64     `json:"-" db:"application_pk"`
	FullName      string    `json:"fullName" db:"full_name" example:"Ayesha Khan"`
	FatherName    string    `json:"fatherName" db:"father_name" example:"Imran Khan"`
	DateOfBirth   time.Time `json:"dateOfBirth" db:"date_of_birth" example:"2006-04-12T00:00:00Z"`
	Gender        Gender    `json:"gender" db:"gender" example:"F"`
	CNIC          string    `json:"cnic" db:"cnic" example:"35202-1234567-1"`
	Phone         string    `json:"phone" db:"phone" example:"+923001234567"`
	WhatsApp      string    `json:"whatsapp" db:"whatsapp"`
	Address       string    `json:"address" db:"address"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// EducationRecord is the stage-2 record
type EducationRecord struct {
	ApplicationPK            int64     `json:"-" db:"application_pk"`
	FscBoard                 string    `json:"fscBoard" db:"fsc_board" example:"BISE Lahore"`
	FscYear                  int       `json:"fscYear" db:"fsc_year" example:"2025"`
	FscMarks                 float64   `json:"fscMarks" db:"fsc_marks" example:"880"`
	FscPercentage            float64   `json:"fscPercentage" db:"fsc_percentage" example:"80"`
	MatricBoard              string    `json:"matricBoard" db:"matric_board" example:"BISE Lahore"`
	MatricYear               int       `json:"matricYear" db:"matric_year" example:"2023"`
	MatricMarks              float64   `json:"matricMarks" db:"matric_marks" example:"945"`
	MatricPercentage         float64   `json:"matricPercentage" db:"matric_percentage" example:"90"`
	AdditionalQualifications string    `json:"additionalQualifications" db:"additional_qualifications"`
	FscCertificate           *string   `json:"fscCertificate,omitempty" db:"fsc_certificate"`
	MatricCertificate        *string   `json:"matricCertificate,omitempty" db:"matric_certificate"`
	CNICScan                 *string   `json:"cnicScan,omitempty" db:"cnic_scan"`
	CreatedAt                time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                time.Time `json:"updatedAt" db:"updated_at"`
}

// ProgramSelection is the stage-3 record. EligibilityScore and MeetsCriteria
// are derived on every submission and never edited directly.
type ProgramSelection struct {
	ApplicationPK    int64     `json:"-" db:"application_pk"`
	Program          string    `json:"program" db:"program" example:"BSCS"`
	Intake           Intake    `json:"intake" db:"intake" example:"fall"`
	EligibilityScore float64   `json:"eligibilityScore" db:"eligibility_score" example:"72.5"`
	MeetsCriteria    bool      `json:"meetsCriteria" db:"meets_criteria"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// ProgramConfirmation is the stage-4 record with the fee and roadmap snapshot
// the applicant agreed to.
type ProgramConfirmation struct {
	ApplicationPK     int64             `json:"-" db:"application_pk"`
	Program           string            `json:"program" db:"program"`
	DurationSemesters int               `json:"durationSemesters" db:"duration_semesters" example:"8"`
	TotalCredits      int               `json:"totalCredits" db:"total_credits" example:"120"`
	AdmissionFee      int64             `json:"admissionFee" db:"admission_fee" example:"15000"`
	SemesterFee       int64             `json:"semesterFee" db:"semester_fee" example:"75000"`
	StudentCardFee    int64             `json:"studentCardFee" db:"student_card_fee" example:"5000"`
	TransportFee      int64             `json:"transportFee" db:"transport_fee" example:"10000"`
	Roadmap           []RoadmapSemester `json:"roadmap" db:"roadmap"`
	AgreeTerms        bool              `json:"agreeTerms" db:"agree_terms"`
	CreatedAt         time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time         `json:"updatedAt" db:"updated_at"`
}

// PaymentRecord is the stage-5 record
type PaymentRecord struct {
	ApplicationPK    int64         `json:"-" db:"application_pk"`
	AdmissionFee     int64         `json:"admissionFee" db:"admission_fee"`
	FirstSemesterFee int64         `json:"firstSemesterFee" db:"first_semester_fee"`
	StudentCardFee   int64         `json:"studentCardFee" db:"student_card_fee"`
	TransportFee     int64         `json:"transportFee" db:"transport_fee"`
	TotalAmount      int64         `json:"totalAmount" db:"total_amount"`
	PaymentMethod    PaymentMethod `json:"paymentMethod" db:"payment_method"`
	PaymentStatus    PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PSID             string        `json:"psid" db:"psid" example:"PSID-0A1B2C3D4E5F"`
	TransactionID    string        `json:"transactionId" db:"transaction_id"`
	RedirectURL      string        `json:"redirectUrl,omitempty" db:"redirect_url"`
	PaymentDate      *time.Time    `json:"paymentDate,omitempty" db:"payment_date"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at"`
}
