package dto

import (
	"github.com/campusgpt/admission/internal/app/models"
)

// StartApplicationRequest opens a new application
type StartApplicationRequest struct {
	Email   string `json:"email" form:"email" validate:"required,email,max=254" example:"applicant@example.com"`
	Program string `json:"program" form:"program" validate:"omitempty,program_code" example:"BSCS"`
}

// PersonalInfoRequest is the stage-1 form
type PersonalInfoRequest struct {
	FullName    string `json:"full_name" form:"full_name" validate:"required,min=2,max=100" example:"Ayesha Khan"`
	FatherName  string `json:"father_name" form:"father_name" validate:"required,min=2,max=100" example:"Imran Khan"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth" validate:"required,datetime=2006-01-02" example:"2006-04-12"`
	Gender      string `json:"gender" form:"gender" validate:"required,oneof=M F O" example:"F"`
	CNIC        string `json:"cnic" form:"cnic" validate:"required,cnic" example:"35202-1234567-1"`
	Phone       string `json:"phone" form:"phone" validate:"required,phone" example:"+923001234567"`
	WhatsApp    string `json:"whatsapp" form:"whatsapp" validate:"omitempty,phone"`
	Address     string `json:"address" form:"address" validate:"required,max=500"`
}

// EducationRequest is the stage-2 form. Numbers are pointers so that a
// missing value is told apart from zero.
type EducationRequest struct {
	FscBoard                 string   `json:"fsc_board" form:"fsc_board" validate:"required,max=100" example:"BISE Lahore"`
	FscYear                  *int     `json:"fsc_year" form:"fsc_year" validate:"required,gte=1950,lte=2100" example:"2025"`
	FscMarks                 *float64 `json:"fsc_marks" form:"fsc_marks" validate:"required,gte=0,lte=1100" example:"880"`
	FscPercentage            *float64 `json:"fsc_percentage" form:"fsc_percentage" validate:"required,gte=0,lte=100" example:"80"`
	MatricBoard              string   `json:"matric_board" form:"matric_board" validate:"required,max=100" example:"BISE Lahore"`
	MatricYear               *int     `json:"matric_year" form:"matric_year" validate:"required,gte=1950,lte=2100" example:"2023"`
	MatricMarks              *float64 `json:"matric_marks" form:"matric_marks" validate:"required,gte=0,lte=1050" example:"945"`
	MatricPercentage         *float64 `json:"matric_percentage" form:"matric_percentage" validate:"required,gte=0,lte=100" example:"90"`
	AdditionalQualifications string   `json:"additional_qualifications" form:"additional_qualifications" validate:"max=1000"`
}

// ProgramSelectionRequest is the stage-3 form
type ProgramSelectionRequest struct {
	Program string `json:"program" form:"program" validate:"required,program_code" example:"BSCS"`
	Intake  string `json:"intake" form:"intake" validate:"required,oneof=fall spring" example:"fall"`
}

// ProgramConfirmationRequest is the stage-4 form
type ProgramConfirmationRequest struct {
	AgreeTerms bool `json:"agree_terms" form:"agree_terms" example:"true"`
}

// PaymentRequest is the stage-5 form
type PaymentRequest struct {
	PaymentMethod   string `json:"payment_method" form:"payment_method" validate:"required,oneof=bank_transfer online cheque" example:"online"`
	TransportOption bool   `json:"transport_option" form:"transport_option" example:"false"`
}

// ResumeRequest looks up an application by its contact email
type ResumeRequest struct {
	Email string `json:"email" form:"email" validate:"required,email" example:"applicant@example.com"`
}

// PaymentNotificationRequest is posted by the payment gateway
type PaymentNotificationRequest struct {
	OrderID           string `json:"order_id" form:"order_id" validate:"required" example:"PSID-0A1B2C3D4E5F"`
	TransactionStatus string `json:"transaction_status" form:"transaction_status"`
}

// StartForm is what GET /admission/start/ renders
type StartForm struct {
	Program  string           `json:"program,omitempty" example:"BSCS"`
	Programs []models.Program `json:"programs"`
}

// StageResult is returned after a successful stage submission
type StageResult struct {
	ApplicationID      string                 `json:"applicationId" example:"APP-1A2B3C4D"`
	CurrentStage       models.Stage           `json:"currentStage" example:"stage_2"`
	AdmissionStatus    models.AdmissionStatus `json:"admissionStatus" example:"pending"`
	PaymentStatus      models.PaymentStatus   `json:"paymentStatus" example:"pending"`
	NextURL            string                 `json:"nextUrl" example:"/admission/stage2/APP-1A2B3C4D/"`
	EligibilityScore   *float64               `json:"eligibilityScore,omitempty" example:"72.5"`
	MeetsCriteria      *bool                  `json:"meetsCriteria,omitempty"`
	PSID               string                 `json:"psid,omitempty"`
	CheckoutURL        string                 `json:"checkoutUrl,omitempty"`
	RollNumber         string                 `json:"rollNumber,omitempty" example:"26-bscs-f26-001"`
	InstitutionalEmail string                 `json:"institutionalEmail,omitempty"`
}

// FeeSummary is the fee schedule shown at stages 4 and 5
type FeeSummary struct {
	AdmissionFee          int64 `json:"admissionFee" example:"15000"`
	SemesterFee           int64 `json:"semesterFee" example:"75000"`
	FirstSemesterFee      int64 `json:"firstSemesterFee" example:"37500"`
	StudentCardFee        int64 `json:"studentCardFee" example:"5000"`
	TransportFee          int64 `json:"transportFee" example:"10000"`
	TotalWithoutTransport int64 `json:"totalWithoutTransport" example:"57500"`
	TotalWithTransport    int64 `json:"totalWithTransport" example:"67500"`
	DurationSemesters     int   `json:"durationSemesters" example:"8"`
	TotalCredits          int   `json:"totalCredits" example:"120"`
}

// StageView is the stored record of one stage plus what the stage needs to render
type StageView struct {
	Application    *models.Application         `json:"application"`
	Stage          int                         `json:"stage" example:"3"`
	PersonalInfo   *models.PersonalInfo        `json:"personalInfo,omitempty"`
	Education      *models.EducationRecord     `json:"education,omitempty"`
	Selection      *models.ProgramSelection    `json:"selection,omitempty"`
	Confirmation   *models.ProgramConfirmation `json:"confirmation,omitempty"`
	Payment        *models.PaymentRecord       `json:"payment,omitempty"`
	Programs       []models.Program            `json:"programs,omitempty"`
	Program        *models.Program             `json:"program,omitempty"`
	Criteria       *models.AdmissionCriteria   `json:"criteria,omitempty"`
	Roadmap        []models.RoadmapSemester    `json:"roadmap,omitempty"`
	Fees           *FeeSummary                 `json:"fees,omitempty"`
	PaymentMethods []models.PaymentMethod      `json:"paymentMethods,omitempty"`
}

// ConfirmationView is the read-only summary of a completed application
type ConfirmationView struct {
	Application  *models.Application      `json:"application"`
	PersonalInfo *models.PersonalInfo     `json:"personalInfo,omitempty"`
	Selection    *models.ProgramSelection `json:"selection,omitempty"`
	Payment      *models.PaymentRecord    `json:"payment,omitempty"`
	LoginURL     string                   `json:"loginUrl" example:"http://localhost:8080/login/"`
}

// ResumeResult points an applicant back to where they left off
type ResumeResult struct {
	ApplicationID string       `json:"applicationId" example:"APP-1A2B3C4D"`
	CurrentStage  models.Stage `json:"currentStage" example:"stage_3"`
	RedirectURL   string       `json:"redirectUrl" example:"/admission/stage3/APP-1A2B3C4D/"`
}
