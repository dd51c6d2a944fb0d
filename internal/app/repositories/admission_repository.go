package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/db"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/dberrors"
	"github.com/campusgpt/admission/internal/pkg/logger"
)

var applicationColumns = []string{
	"a.id", "a.application_id", "a.email", "a.current_stage", "a.admission_status", "a.payment_status",
	"a.preferred_program", "a.roll_number", "a.institutional_email",
	"a.created_at", "a.updated_at", "a.submitted_at", "a.approved_at",
}

// AdmissionRepository handles application database operations
type AdmissionRepository struct {
	pool *pgxpool.Pool
	q    db.Querier
	sb   squirrel.StatementBuilderType
	inTx bool
}

// NewAdmissionRepository creates a new AdmissionRepository
func NewAdmissionRepository(pool *pgxpool.Pool) *AdmissionRepository {
	return &AdmissionRepository{
		pool: pool,
		q:    pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithinTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (r *AdmissionRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo IAdmissionRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return db.WithTransaction(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &AdmissionRepository{pool: r.pool, q: tx, sb: r.sb, inTx: true})
	})
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID, &app.ApplicationID, &app.Email, &app.CurrentStage, &app.AdmissionStatus, &app.PaymentStatus,
		&app.PreferredProgram, &app.RollNumber, &app.InstitutionalEmail,
		&app.CreatedAt, &app.UpdatedAt, &app.SubmittedAt, &app.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateApplication inserts a new application and fills its generated fields
func (r *AdmissionRepository) CreateApplication(ctx context.Context, app *models.Application) error {
	sql, args, err := r.sb.Insert("applications").
		Columns("application_id", "email", "current_stage", "admission_status", "payment_status", "preferred_program").
		Values(app.ApplicationID, app.Email, app.CurrentStage, app.AdmissionStatus, app.PaymentStatus, app.PreferredProgram).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert application query: %w", err)
	}

	err = r.q.QueryRow(ctx, sql, args...).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "applications_email_key") {
			return apperrors.ErrDuplicateApplication
		}
		logger.Error().Err(err).Str("applicationId", app.ApplicationID).Msg("Error creating application")
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *AdmissionRepository) getOne(ctx context.Context, where squirrel.Sqlizer, lock bool) (*models.Application, error) {
	qb := r.sb.Select(applicationColumns...).From("applications a").Where(where)
	if lock {
		qb = qb.Suffix("FOR UPDATE")
	}
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select application query: %w", err)
	}

	app, err := scanApplication(r.q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// GetByID retrieves an application by its internal key
func (r *AdmissionRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"a.id": id}, false)
}

// GetByApplicationID retrieves an application by its external identifier
func (r *AdmissionRepository) GetByApplicationID(ctx context.Context, applicationID string) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"a.application_id": applicationID}, false)
}

// LockByApplicationID retrieves an application with SELECT ... FOR UPDATE
func (r *AdmissionRepository) LockByApplicationID(ctx context.Context, applicationID string) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"a.application_id": applicationID}, r.inTx)
}

// GetByEmail retrieves an application by its normalized contact email
func (r *AdmissionRepository) GetByEmail(ctx context.Context, email string) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"a.email": email}, false)
}

// UpdateApplication writes the mutable workflow fields
func (r *AdmissionRepository) UpdateApplication(ctx context.Context, app *models.Application) error {
	sql, args, err := r.sb.Update("applications").
		SetMap(map[string]interface{}{
			"current_stage":       app.CurrentStage,
			"admission_status":    app.AdmissionStatus,
			"payment_status":      app.PaymentStatus,
			"preferred_program":   app.PreferredProgram,
			"roll_number":         app.RollNumber,
			"institutional_email": app.InstitutionalEmail,
			"submitted_at":        app.SubmittedAt,
			"approved_at":         app.ApprovedAt,
			"updated_at":          squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": app.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&app.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrApplicationNotFound
		}
		if dberrors.IsDuplicateConstraintError(err, "applications_roll_number_key") {
			return fmt.Errorf("roll number %v already issued: %w", app.RollNumber, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update application: %w", err)
	}
	return nil
}

// ListApplications returns one page of applications, newest first, with the total count
func (r *AdmissionRepository) ListApplications(ctx context.Context, filter models.ApplicationFilter, offset uint64, limit int) ([]*models.Application, int64, error) {
	where := squirrel.And{}
	if filter.Stage != "" {
		where = append(where, squirrel.Eq{"a.current_stage": filter.Stage})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"a.admission_status": filter.Status})
	}
	if filter.Program != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"ps.program": filter.Program},
			squirrel.And{squirrel.Eq{"ps.program": nil}, squirrel.Eq{"a.preferred_program": filter.Program}},
		})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").
		From("applications a").
		LeftJoin("program_selections ps ON ps.application_pk = a.id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count applications query: %w", err)
	}

	var total int64
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}
	if total == 0 {
		return []*models.Application{}, 0, nil
	}

	listSQL, listArgs, err := r.sb.Select(applicationColumns...).
		From("applications a").
		LeftJoin("program_selections ps ON ps.application_pk = a.id").
		Where(where).
		OrderBy("a.created_at DESC", "a.id DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}

	rows, err := r.q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*models.Application, 0, limit)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// optional turns pgx.ErrNoRows into an absent record
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetPersonalInfo returns the stage-1 record, or nil when absent
func (r *AdmissionRepository) GetPersonalInfo(ctx context.Context, applicationPK int64) (*models.PersonalInfo, error) {
	var p models.PersonalInfo
	err := r.q.QueryRow(ctx, `
		SELECT application_pk, full_name, father_name, date_of_birth, gender, cnic, phone, whatsapp, address, created_at, updated_at
		FROM personal_infos
		WHERE application_pk = $1`, applicationPK).Scan(
		&p.ApplicationPK, &p.FullName, &p.FatherName, &p.DateOfBirth, &p.Gender, &p.CNIC,
		&p.Phone, &p.WhatsApp, &p.Address, &p.CreatedAt, &p.UpdatedAt,
	)
	return optional(&p, err)
}

// UpsertPersonalInfo creates or replaces the stage-1 record
func (r *AdmissionRepository) UpsertPersonalInfo(ctx context.Context, info *models.PersonalInfo) error {
	sql, args, err := r.sb.Insert("personal_infos").
		Columns("application_pk", "full_name", "father_name", "date_of_birth", "gender", "cnic", "phone", "whatsapp", "address").
		Values(info.ApplicationPK, info.FullName, info.FatherName, info.DateOfBirth, info.Gender, info.CNIC, info.Phone, info.WhatsApp, info.Address).
		Suffix(`ON CONFLICT (application_pk) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			father_name = EXCLUDED.father_name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			cnic = EXCLUDED.cnic,
			phone = EXCLUDED.phone,
			whatsapp = EXCLUDED.whatsapp,
			address = EXCLUDED.address,
			updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert personal info query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&info.CreatedAt, &info.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "personal_infos_cnic_key") {
			return apperrors.ErrCNICAlreadyUsed
		}
		return fmt.Errorf("failed to upsert personal info: %w", err)
	}
	return nil
}

// GetEducation returns the stage-2 record, or nil when absent
func (r *AdmissionRepository) GetEducation(ctx context.Context, applicationPK int64) (*models.EducationRecord, error) {
	var e models.EducationRecord
	err := r.q.QueryRow(ctx, `
		SELECT application_pk, fsc_board, fsc_year, fsc_marks, fsc_percentage,
		       matric_board, matric_year, matric_marks, matric_percentage, additional_qualifications,
		       fsc_certificate, matric_certificate, cnic_scan, created_at, updated_at
		FROM education_records
		WHERE application_pk = $1`, applicationPK).Scan(
		&e.ApplicationPK, &e.FscBoard, &e.FscYear, &e.FscMarks, &e.FscPercentage,
		&e.MatricBoard, &e.MatricYear, &e.MatricMarks, &e.MatricPercentage, &e.AdditionalQualifications,
		&e.FscCertificate, &e.MatricCertificate, &e.CNICScan, &e.CreatedAt, &e.UpdatedAt,
	)
	return optional(&e, err)
}

// UpsertEducation creates or replaces the stage-2 record. Document paths
// that are nil keep their stored value.
func (r *AdmissionRepository) UpsertEducation(ctx context.Context, rec *models.EducationRecord) error {
	sql, args, err := r.sb.Insert("education_records").
		Columns("application_pk", "fsc_board", "fsc_year", "fsc_marks", "fsc_percentage",
			"matric_board", "matric_year", "matric_marks", "matric_percentage", "additional_qualifications",
			"fsc_certificate", "matric_certificate", "cnic_scan").
		Values(rec.ApplicationPK, rec.FscBoard, rec.FscYear, rec.FscMarks, rec.FscPercentage,
			rec.MatricBoard, rec.MatricYear, rec.MatricMarks, rec.MatricPercentage, rec.AdditionalQualifications,
			rec.FscCertificate, rec.MatricCertificate, rec.CNICScan).
		Suffix(`ON CONFLICT (application_pk) DO UPDATE SET
			fsc_board = EXCLUDED.fsc_board,
			fsc_year = EXCLUDED.fsc_year,
			fsc_marks = EXCLUDED.fsc_marks,
			fsc_percentage = EXCLUDED.fsc_percentage,
			matric_board = EXCLUDED.matric_board,
			matric_year = EXCLUDED.matric_year,
			matric_marks = EXCLUDED.matric_marks,
			matric_percentage = EXCLUDED.matric_percentage,
			additional_qualifications = EXCLUDED.additional_qualifications,
			fsc_certificate = COALESCE(EXCLUDED.fsc_certificate, education_records.fsc_certificate),
			matric_certificate = COALESCE(EXCLUDED.matric_certificate, education_records.matric_certificate),
			cnic_scan = COALESCE(EXCLUDED.cnic_scan, education_records.cnic_scan),
			updated_at = NOW()
			RETURNING fsc_certificate, matric_certificate, cnic_scan, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert education query: %w", err)
	}

	err = r.q.QueryRow(ctx, sql, args...).Scan(&rec.FscCertificate, &rec.MatricCertificate, &rec.CNICScan, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert education record: %w", err)
	}
	return nil
}

// GetSelection returns the stage-3 record, or nil when absent
func (r *AdmissionRepository) GetSelection(ctx context.Context, applicationPK int64) (*models.ProgramSelection, error) {
	var s models.ProgramSelection
	err := r.q.QueryRow(ctx, `
		SELECT application_pk, program, intake, eligibility_score, meets_criteria, created_at, updated_at
		FROM program_selections
		WHERE application_pk = $1`, applicationPK).Scan(
		&s.ApplicationPK, &s.Program, &s.Intake, &s.EligibilityScore, &s.MeetsCriteria, &s.CreatedAt, &s.UpdatedAt,
	)
	return optional(&s, err)
}

// UpsertSelection creates or replaces the stage-3 record
func (r *AdmissionRepository) UpsertSelection(ctx context.Context, sel *models.ProgramSelection) error {
	sql, args, err := r.sb.Insert("program_selections").
		Columns("application_pk", "program", "intake", "eligibility_score", "meets_criteria").
		Values(sel.ApplicationPK, sel.Program, sel.Intake, sel.EligibilityScore, sel.MeetsCriteria).
		Suffix(`ON CONFLICT (application_pk) DO UPDATE SET
			program = EXCLUDED.program,
			intake = EXCLUDED.intake,
			eligibility_score = EXCLUDED.eligibility_score,
			meets_criteria = EXCLUDED.meets_criteria,
			updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert selection query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&sel.CreatedAt, &sel.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert program selection: %w", err)
	}
	return nil
}

// GetConfirmation returns the stage-4 record, or nil when absent
func (r *AdmissionRepository) GetConfirmation(ctx context.Context, applicationPK int64) (*models.ProgramConfirmation, error) {
	var c models.ProgramConfirmation
	var roadmap []byte
	err := r.q.QueryRow(ctx, `
		SELECT application_pk, program, duration_semesters, total_credits,
		       admission_fee, semester_fee, student_card_fee, transport_fee,
		       roadmap, agree_terms, created_at, updated_at
		FROM program_confirmations
		WHERE application_pk = $1`, applicationPK).Scan(
		&c.ApplicationPK, &c.Program, &c.DurationSemesters, &c.TotalCredits,
		&c.AdmissionFee, &c.SemesterFee, &c.StudentCardFee, &c.TransportFee,
		&roadmap, &c.AgreeTerms, &c.CreatedAt, &c.UpdatedAt,
	)
	conf, err := optional(&c, err)
	if conf == nil || err != nil {
		return conf, err
	}
	if len(roadmap) > 0 {
		if err := json.Unmarshal(roadmap, &conf.Roadmap); err != nil {
			return nil, fmt.Errorf("failed to decode roadmap snapshot: %w", err)
		}
	}
	return conf, nil
}

// UpsertConfirmation creates or replaces the stage-4 record
func (r *AdmissionRepository) UpsertConfirmation(ctx context.Context, conf *models.ProgramConfirmation) error {
	roadmap := conf.Roadmap
	if roadmap == nil {
		roadmap = []models.RoadmapSemester{}
	}
	raw, err := json.Marshal(roadmap)
	if err != nil {
		return fmt.Errorf("failed to encode roadmap snapshot: %w", err)
	}

	sql, args, err := r.sb.Insert("program_confirmations").
		Columns("application_pk", "program", "duration_semesters", "total_credits",
			"admission_fee", "semester_fee", "student_card_fee", "transport_fee", "roadmap", "agree_terms").
		Values(conf.ApplicationPK, conf.Program, conf.DurationSemesters, conf.TotalCredits,
			conf.AdmissionFee, conf.SemesterFee, conf.StudentCardFee, conf.TransportFee, string(raw), conf.AgreeTerms).
		Suffix(`ON CONFLICT (application_pk) DO UPDATE SET
			program = EXCLUDED.program,
			duration_semesters = EXCLUDED.duration_semesters,
			total_credits = EXCLUDED.total_credits,
			admission_fee = EXCLUDED.admission_fee,
			semester_fee = EXCLUDED.semester_fee,
			student_card_fee = EXCLUDED.student_card_fee,
			transport_fee = EXCLUDED.transport_fee,
			roadmap = EXCLUDED.roadmap,
			agree_terms = EXCLUDED.agree_terms,
			updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert confirmation query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&conf.CreatedAt, &conf.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert program confirmation: %w", err)
	}
	return nil
}

const paymentSelect = `
	SELECT application_pk, admission_fee, first_semester_fee, student_card_fee, transport_fee, total_amount,
	       payment_method, payment_status, psid, transaction_id, redirect_url, payment_date, created_at, updated_at
	FROM payment_records`

func scanPayment(row pgx.Row) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := row.Scan(
		&p.ApplicationPK, &p.AdmissionFee, &p.FirstSemesterFee, &p.StudentCardFee, &p.TransportFee, &p.TotalAmount,
		&p.PaymentMethod, &p.PaymentStatus, &p.PSID, &p.TransactionID, &p.RedirectURL, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	return &p, err
}

// GetPayment returns the stage-5 record, or nil when absent
func (r *AdmissionRepository) GetPayment(ctx context.Context, applicationPK int64) (*models.PaymentRecord, error) {
	return optional(scanPayment(r.q.QueryRow(ctx, paymentSelect+" WHERE application_pk = $1", applicationPK)))
}

// GetPaymentByPSID finds a payment by the order id handed to the gateway
func (r *AdmissionRepository) GetPaymentByPSID(ctx context.Context, psid string) (*models.PaymentRecord, error) {
	p, err := optional(scanPayment(r.q.QueryRow(ctx, paymentSelect+" WHERE psid = $1", psid)))
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, apperrors.ErrPaymentNotFound
	}
	return p, nil
}

// UpsertPayment creates or replaces the stage-5 record
func (r *AdmissionRepository) UpsertPayment(ctx context.Context, pay *models.PaymentRecord) error {
	sql, args, err := r.sb.Insert("payment_records").
		Columns("application_pk", "admission_fee", "first_semester_fee", "student_card_fee", "transport_fee", "total_amount",
			"payment_method", "payment_status", "psid", "transaction_id", "redirect_url", "payment_date").
		Values(pay.ApplicationPK, pay.AdmissionFee, pay.FirstSemesterFee, pay.StudentCardFee, pay.TransportFee, pay.TotalAmount,
			pay.PaymentMethod, pay.PaymentStatus, pay.PSID, pay.TransactionID, pay.RedirectURL, pay.PaymentDate).
		Suffix(`ON CONFLICT (application_pk) DO UPDATE SET
			admission_fee = EXCLUDED.admission_fee,
			first_semester_fee = EXCLUDED.first_semester_fee,
			student_card_fee = EXCLUDED.student_card_fee,
			transport_fee = EXCLUDED.transport_fee,
			total_amount = EXCLUDED.total_amount,
			payment_method = EXCLUDED.payment_method,
			payment_status = EXCLUDED.payment_status,
			psid = EXCLUDED.psid,
			transaction_id = EXCLUDED.transaction_id,
			redirect_url = EXCLUDED.redirect_url,
			payment_date = EXCLUDED.payment_date,
			updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert payment query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&pay.CreatedAt, &pay.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert payment record: %w", err)
	}
	return nil
}

// NextRollSequence reserves the next roll sequence with a single upsert, so
// concurrent approvals can never read the same value.
func (r *AdmissionRepository) NextRollSequence(ctx context.Context, key models.RollSequenceKey) (int, error) {
	var next int
	err := r.q.QueryRow(ctx, `
		INSERT INTO roll_sequences (year, program, intake, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (year, program, intake)
		DO UPDATE SET last_value = roll_sequences.last_value + 1
		RETURNING last_value`, key.Year, key.Program, key.Intake).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve roll sequence: %w", err)
	}
	return next, nil
}
