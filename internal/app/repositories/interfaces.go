package repositories

import (
	"context"
	"time"

	"github.com/campusgpt/admission/internal/app/models"
)

// IAdmissionRepository persists applications and their stage records.
// Lookups of optional stage records return (nil, nil) when the record is absent.
type IAdmissionRepository interface {
	// WithinTx runs fn with a repository bound to one transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo IAdmissionRepository) error) error

	CreateApplication(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetByApplicationID(ctx context.Context, applicationID string) (*models.Application, error)
	// LockByApplicationID reads the application and holds a row lock until the transaction ends.
	LockByApplicationID(ctx context.Context, applicationID string) (*models.Application, error)
	GetByEmail(ctx context.Context, email string) (*models.Application, error)
	UpdateApplication(ctx context.Context, app *models.Application) error
	ListApplications(ctx context.Context, filter models.ApplicationFilter, offset uint64, limit int) ([]*models.Application, int64, error)

	GetPersonalInfo(ctx context.Context, applicationPK int64) (*models.PersonalInfo, error)
	UpsertPersonalInfo(ctx context.Context, info *models.PersonalInfo) error
	GetEducation(ctx context.Context, applicationPK int64) (*models.EducationRecord, error)
	UpsertEducation(ctx context.Context, rec *models.EducationRecord) error
	GetSelection(ctx context.Context, applicationPK int64) (*models.ProgramSelection, error)
	UpsertSelection(ctx context.Context, sel *models.ProgramSelection) error
	GetConfirmation(ctx context.Context, applicationPK int64) (*models.ProgramConfirmation, error)
	UpsertConfirmation(ctx context.Context, conf *models.ProgramConfirmation) error
	GetPayment(ctx context.Context, applicationPK int64) (*models.PaymentRecord, error)
	GetPaymentByPSID(ctx context.Context, psid string) (*models.PaymentRecord, error)
	UpsertPayment(ctx context.Context, pay *models.PaymentRecord) error

	// NextRollSequence atomically reserves the next value of the counter for key.
	NextRollSequence(ctx context.Context, key models.RollSequenceKey) (int, error)
}

// IReferenceRepository reads and maintains programs, criteria and curriculum.
// Absent rows are reported as (nil, nil).
type IReferenceRepository interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgram(ctx context.Context, code string) (*models.Program, error)
	UpsertProgram(ctx context.Context, p *models.Program) error
	GetCriteria(ctx context.Context, program string) (*models.AdmissionCriteria, error)
	UpsertCriteria(ctx context.Context, c *models.AdmissionCriteria) error
	ListCurriculum(ctx context.Context, program string) ([]models.CurriculumEntry, error)
	UpsertCurriculumEntry(ctx context.Context, e *models.CurriculumEntry) error
}

// IStaffRepository stores admissions office accounts
type IStaffRepository interface {
	Create(ctx context.Context, staff *models.StaffUser) error
	GetByEmail(ctx context.Context, email string) (*models.StaffUser, error)
	GetByID(ctx context.Context, id int64) (*models.StaffUser, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
