package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
)

type curriculumKey struct {
	program  string
	semester int
	code     string
}

// ReferenceRepository keeps programs, criteria and curriculum in memory
type ReferenceRepository struct {
	mu         sync.RWMutex
	programs   map[string]models.Program
	criteria   map[string]models.AdmissionCriteria
	curriculum map[curriculumKey]models.CurriculumEntry
}

func NewReferenceRepository() *ReferenceRepository {
	return &ReferenceRepository{
		programs:   make(map[string]models.Program),
		criteria:   make(map[string]models.AdmissionCriteria),
		curriculum: make(map[curriculumKey]models.CurriculumEntry),
	}
}

func (r *ReferenceRepository) ListPrograms(_ context.Context) ([]models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Program, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *ReferenceRepository) GetProgram(_ context.Context, code string) (*models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ReferenceRepository) UpsertProgram(_ context.Context, p *models.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[p.Code] = *p
	return nil
}

func (r *ReferenceRepository) GetCriteria(_ context.Context, program string) (*models.AdmissionCriteria, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.criteria[program]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ReferenceRepository) UpsertCriteria(_ context.Context, c *models.AdmissionCriteria) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UpdatedAt = time.Now()
	r.criteria[c.Program] = *c
	return nil
}

func (r *ReferenceRepository) ListCurriculum(_ context.Context, program string) ([]models.CurriculumEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.CurriculumEntry, 0)
	for k, e := range r.curriculum {
		if k.program == program {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Semester != out[j].Semester {
			return out[i].Semester < out[j].Semester
		}
		return out[i].CourseCode < out[j].CourseCode
	})
	return out, nil
}

func (r *ReferenceRepository) UpsertCurriculumEntry(_ context.Context, e *models.CurriculumEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.curriculum[curriculumKey{e.Program, e.Semester, e.CourseCode}] = *e
	return nil
}

// StaffRepository keeps staff accounts in memory
type StaffRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.StaffUser
}

func NewStaffRepository() *StaffRepository {
	return &StaffRepository{byID: make(map[int64]models.StaffUser)}
}

func (r *StaffRepository) Create(_ context.Context, staff *models.StaffUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.Email == staff.Email {
			return apperrors.ErrStaffAlreadyExists
		}
	}
	r.nextID++
	staff.ID = r.nextID
	staff.CreatedAt = time.Now()
	r.byID[staff.ID] = *staff
	return nil
}

func (r *StaffRepository) GetByEmail(_ context.Context, email string) (*models.StaffUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, apperrors.ErrStaffNotFound
}

func (r *StaffRepository) GetByID(_ context.Context, id int64) (*models.StaffUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrStaffNotFound
	}
	return &s, nil
}

func (r *StaffRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return apperrors.ErrStaffNotFound
	}
	s.LastLoginAt = &at
	r.byID[id] = s
	return nil
}

// NewRepositories returns a fresh, empty set of in-memory repositories
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Admission: NewAdmissionRepository(),
		Reference: NewReferenceRepository(),
		Staff:     NewStaffRepository(),
	}
}
