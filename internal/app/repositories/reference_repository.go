package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/pkg/logger"
)

// ReferenceRepository handles program catalog, criteria and curriculum rows
type ReferenceRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewReferenceRepository creates a new ReferenceRepository
func NewReferenceRepository(db *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListPrograms returns every program ordered by code
func (r *ReferenceRepository) ListPrograms(ctx context.Context) ([]models.Program, error) {
	sql, args, err := r.sb.Select("code", "name", "duration_semesters", "description").
		From("programs").
		OrderBy("code ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list programs query")
		return nil, fmt.Errorf("failed to build list programs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	programs := make([]models.Program, 0)
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(&p.Code, &p.Name, &p.DurationSemesters, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// GetProgram returns one program, or nil when the code is unknown
func (r *ReferenceRepository) GetProgram(ctx context.Context, code string) (*models.Program, error) {
	var p models.Program
	err := r.db.QueryRow(ctx,
		`SELECT code, name, duration_semesters, description FROM programs WHERE code = $1`, code,
	).Scan(&p.Code, &p.Name, &p.DurationSemesters, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return &p, nil
}

// UpsertProgram creates or updates a program
func (r *ReferenceRepository) UpsertProgram(ctx context.Context, p *models.Program) error {
	sql, args, err := r.sb.Insert("programs").
		Columns("code", "name", "duration_semesters", "description").
		Values(p.Code, p.Name, p.DurationSemesters, p.Description).
		Suffix(`ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			duration_semesters = EXCLUDED.duration_semesters,
			description = EXCLUDED.description`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert program query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert program: %w", err)
	}
	return nil
}

// GetCriteria returns the thresholds for a program, or nil when none are configured
func (r *ReferenceRepository) GetCriteria(ctx context.Context, program string) (*models.AdmissionCriteria, error) {
	var c models.AdmissionCriteria
	err := r.db.QueryRow(ctx, `
		SELECT program, min_fsc_marks, min_fsc_percentage, min_matric_percentage, min_aggregate, updated_at
		FROM admission_criteria
		WHERE program = $1`, program,
	).Scan(&c.Program, &c.MinFscMarks, &c.MinFscPercentage, &c.MinMatricPercentage, &c.MinAggregate, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admission criteria: %w", err)
	}
	return &c, nil
}

// UpsertCriteria creates or replaces a program's thresholds
func (r *ReferenceRepository) UpsertCriteria(ctx context.Context, c *models.AdmissionCriteria) error {
	sql, args, err := r.sb.Insert("admission_criteria").
		Columns("program", "min_fsc_marks", "min_fsc_percentage", "min_matric_percentage", "min_aggregate").
		Values(c.Program, c.MinFscMarks, c.MinFscPercentage, c.MinMatricPercentage, c.MinAggregate).
		Suffix(`ON CONFLICT (program) DO UPDATE SET
			min_fsc_marks = EXCLUDED.min_fsc_marks,
			min_fsc_percentage = EXCLUDED.min_fsc_percentage,
			min_matric_percentage = EXCLUDED.min_matric_percentage,
			min_aggregate = EXCLUDED.min_aggregate,
			updated_at = NOW()
			RETURNING updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert criteria query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("program", c.Program).Msg("Error upserting admission criteria")
		return fmt.Errorf("failed to upsert admission criteria: %w", err)
	}
	return nil
}

// ListCurriculum returns a program's courses ordered by semester and code
func (r *ReferenceRepository) ListCurriculum(ctx context.Context, program string) ([]models.CurriculumEntry, error) {
	sql, args, err := r.sb.Select("program", "semester", "course_code", "course_title", "credits").
		From("curriculum_entries").
		Where(squirrel.Eq{"program": program}).
		OrderBy("semester ASC", "course_code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list curriculum query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list curriculum: %w", err)
	}
	defer rows.Close()

	entries := make([]models.CurriculumEntry, 0)
	for rows.Next() {
		var e models.CurriculumEntry
		if err := rows.Scan(&e.Program, &e.Semester, &e.CourseCode, &e.CourseTitle, &e.Credits); err != nil {
			return nil, fmt.Errorf("failed to scan curriculum entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertCurriculumEntry creates or updates one course of a roadmap
func (r *ReferenceRepository) UpsertCurriculumEntry(ctx context.Context, e *models.CurriculumEntry) error {
	sql, args, err := r.sb.Insert("curriculum_entries").
		Columns("program", "semester", "course_code", "course_title", "credits").
		Values(e.Program, e.Semester, e.CourseCode, e.CourseTitle, e.Credits).
		Suffix(`ON CONFLICT (program, semester, course_code) DO UPDATE SET
			course_title = EXCLUDED.course_title,
			credits = EXCLUDED.credits`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert curriculum query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert curriculum entry: %w", err)
	}
	return nil
}
