// Package memory provides process-local repositories. They back the
// "memory" database driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
)

// state is everything one transaction may change. Values are stored by value
// so that a shallow map copy is an isolated snapshot.
type state struct {
	nextID       int64
	apps         map[int64]models.Application
	byAppID      map[string]int64
	byEmail      map[string]int64
	personal     map[int64]models.PersonalInfo
	education    map[int64]models.EducationRecord
	selection    map[int64]models.ProgramSelection
	confirmation map[int64]models.ProgramConfirmation
	payment      map[int64]models.PaymentRecord
	sequences    map[models.RollSequenceKey]int
}

func newState() *state {
	return &state{
		apps:         make(map[int64]models.Application),
		byAppID:      make(map[string]int64),
		byEmail:      make(map[string]int64),
		personal:     make(map[int64]models.PersonalInfo),
		education:    make(map[int64]models.EducationRecord),
		selection:    make(map[int64]models.ProgramSelection),
		confirmation: make(map[int64]models.ProgramConfirmation),
		payment:      make(map[int64]models.PaymentRecord),
		sequences:    make(map[models.RollSequenceKey]int),
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:       s.nextID,
		apps:         maps.Clone(s.apps),
		byAppID:      maps.Clone(s.byAppID),
		byEmail:      maps.Clone(s.byEmail),
		personal:     maps.Clone(s.personal),
		education:    maps.Clone(s.education),
		selection:    maps.Clone(s.selection),
		confirmation: maps.Clone(s.confirmation),
		payment:      maps.Clone(s.payment),
		sequences:    maps.Clone(s.sequences),
	}
}

// AdmissionStore owns the committed state. Transactions are serialized,
// which stands in for the row lock taken by the PostgreSQL implementation.
type AdmissionStore struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// AdmissionRepository implements repositories.IAdmissionRepository in memory
type AdmissionRepository struct {
	store *AdmissionStore
	tx    *state
}

// NewAdmissionRepository creates an empty repository
func NewAdmissionRepository() *AdmissionRepository {
	return &AdmissionRepository{store: &AdmissionStore{st: newState(), now: time.Now}}
}

func (r *AdmissionRepository) do(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

// WithinTx runs fn against a private copy of the state and publishes it only
// when fn succeeds.
func (r *AdmissionRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repositories.IAdmissionRepository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	work := r.store.st.clone()
	if err := fn(ctx, &AdmissionRepository{store: r.store, tx: work}); err != nil {
		return err
	}
	r.store.st = work
	return nil
}

func (r *AdmissionRepository) CreateApplication(_ context.Context, app *models.Application) error {
	return r.do(func(st *state) error {
		if _, taken := st.byEmail[app.Email]; taken {
			return apperrors.ErrDuplicateApplication
		}
		if _, taken := st.byAppID[app.ApplicationID]; taken {
			return fmt.Errorf("application id %s already exists: %w", app.ApplicationID, apperrors.ErrConflict)
		}
		st.nextID++
		now := r.store.now()
		app.ID = st.nextID
		app.CreatedAt, app.UpdatedAt = now, now
		st.apps[app.ID] = *app
		st.byAppID[app.ApplicationID] = app.ID
		st.byEmail[app.Email] = app.ID
		return nil
	})
}

func (r *AdmissionRepository) lookup(key string, index func(st *state) map[string]int64) (*models.Application, error) {
	var out *models.Application
	err := r.do(func(st *state) error {
		id, ok := index(st)[key]
		if !ok {
			return apperrors.ErrApplicationNotFound
		}
		app := st.apps[id]
		out = &app
		return nil
	})
	return out, err
}

func (r *AdmissionRepository) GetByID(_ context.Context, id int64) (*models.Application, error) {
	var out *models.Application
	err := r.do(func(st *state) error {
		app, ok := st.apps[id]
		if !ok {
			return apperrors.ErrApplicationNotFound
		}
		out = &app
		return nil
	})
	return out, err
}

func (r *AdmissionRepository) GetByApplicationID(_ context.Context, applicationID string) (*models.Application, error) {
	return r.lookup(applicationID, func(st *state) map[string]int64 { return st.byAppID })
}

// LockByApplicationID is a plain read; isolation comes from WithinTx.
func (r *AdmissionRepository) LockByApplicationID(ctx context.Context, applicationID string) (*models.Application, error) {
	return r.GetByApplicationID(ctx, applicationID)
}

func (r *AdmissionRepository) GetByEmail(_ context.Context, email string) (*models.Application, error) {
	return r.lookup(email, func(st *state) map[string]int64 { return st.byEmail })
}

func (r *AdmissionRepository) UpdateApplication(_ context.Context, app *models.Application) error {
	return r.do(func(st *state) error {
		cur, ok := st.apps[app.ID]
		if !ok {
			return apperrors.ErrApplicationNotFound
		}
		if app.HasCredentials() {
			for id, other := range st.apps {
				if id != app.ID && other.HasCredentials() && *other.RollNumber == *app.RollNumber {
					return fmt.Errorf("roll number %s already issued: %w", *app.RollNumber, apperrors.ErrConflict)
				}
			}
		}
		updated := *app
		updated.ApplicationID, updated.Email, updated.CreatedAt = cur.ApplicationID, cur.Email, cur.CreatedAt
		updated.UpdatedAt = r.store.now()
		st.apps[app.ID] = updated
		app.UpdatedAt = updated.UpdatedAt
		return nil
	})
}

func (r *AdmissionRepository) ListApplications(_ context.Context, filter models.ApplicationFilter, offset uint64, limit int) ([]*models.Application, int64, error) {
	var (
		page  []*models.Application
		total int64
	)
	err := r.do(func(st *state) error {
		matched := make([]models.Application, 0, len(st.apps))
		for id, app := range st.apps {
			if filter.Stage != "" && app.CurrentStage != filter.Stage {
				continue
			}
			if filter.Status != "" && app.AdmissionStatus != filter.Status {
				continue
			}
			if filter.Program != "" {
				program := ""
				if sel, ok := st.selection[id]; ok {
					program = sel.Program
				} else if app.PreferredProgram != nil {
					program = *app.PreferredProgram
				}
				if program != filter.Program {
					continue
				}
			}
			matched = append(matched, app)
		}

		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID > matched[j].ID
		})

		total = int64(len(matched))
		page = make([]*models.Application, 0, limit)
		for i := int(offset); i < len(matched) && len(page) < limit; i++ {
			app := matched[i]
			page = append(page, &app)
		}
		return nil
	})
	return page, total, err
}

func (r *AdmissionRepository) GetPersonalInfo(_ context.Context, applicationPK int64) (*models.PersonalInfo, error) {
	var out *models.PersonalInfo
	_ = r.do(func(st *state) error {
		if v, ok := st.personal[applicationPK]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

func (r *AdmissionRepository) UpsertPersonalInfo(_ context.Context, info *models.PersonalInfo) error {
	return r.do(func(st *state) error {
		for pk, other := range st.personal {
			if pk != info.ApplicationPK && other.CNIC == info.CNIC {
				return apperrors.ErrCNICAlreadyUsed
			}
		}
		now := r.store.now()
		info.CreatedAt = now
		if cur, ok := st.personal[info.ApplicationPK]; ok {
			info.CreatedAt = cur.CreatedAt
		}
		info.UpdatedAt = now
		st.personal[info.ApplicationPK] = *info
		return nil
	})
}

func (r *AdmissionRepository) GetEducation(_ context.Context, applicationPK int64) (*models.EducationRecord, error) {
	var out *models.EducationRecord
	_ = r.do(func(st *state) error {
		if v, ok := st.education[applicationPK]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

// UpsertEducation keeps stored document paths when the new record has none.
func (r *AdmissionRepository) UpsertEducation(_ context.Context, rec *models.EducationRecord) error {
	return r.do(func(st *state) error {
		now := r.store.now()
		rec.CreatedAt = now
		if cur, ok := st.education[rec.ApplicationPK]; ok {
			rec.CreatedAt = cur.CreatedAt
			if rec.FscCertificate == nil {
				rec.FscCertificate = cur.FscCertificate
			}
			if rec.MatricCertificate == nil {
				rec.MatricCertificate = cur.MatricCertificate
			}
			if rec.CNICScan == nil {
				rec.CNICScan = cur.CNICScan
			}
		}
		rec.UpdatedAt = now
		st.education[rec.ApplicationPK] = *rec
		return nil
	})
}

func (r *AdmissionRepository) GetSelection(_ context.Context, applicationPK int64) (*models.ProgramSelection, error) {
	var out *models.ProgramSelection
	_ = r.do(func(st *state) error {
		if v, ok := st.selection[applicationPK]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

func (r *AdmissionRepository) UpsertSelection(_ context.Context, sel *models.ProgramSelection) error {
	return r.do(func(st *state) error {
		now := r.store.now()
		sel.CreatedAt = now
		if cur, ok := st.selection[sel.ApplicationPK]; ok {
			sel.CreatedAt = cur.CreatedAt
		}
		sel.UpdatedAt = now
		st.selection[sel.ApplicationPK] = *sel
		return nil
	})
}

func (r *AdmissionRepository) GetConfirmation(_ context.Context, applicationPK int64) (*models.ProgramConfirmation, error) {
	var out *models.ProgramConfirmation
	_ = r.do(func(st *state) error {
		if v, ok := st.confirmation[applicationPK]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

func (r *AdmissionRepository) UpsertConfirmation(_ context.Context, conf *models.ProgramConfirmation) error {
	return r.do(func(st *state) error {
		now := r.store.now()
		conf.CreatedAt = now
		if cur, ok := st.confirmation[conf.ApplicationPK]; ok {
			conf.CreatedAt = cur.CreatedAt
		}
		conf.UpdatedAt = now
		st.confirmation[conf.ApplicationPK] = *conf
		return nil
	})
}

func (r *AdmissionRepository) GetPayment(_ context.Context, applicationPK int64) (*models.PaymentRecord, error) {
	var out *models.PaymentRecord
	_ = r.do(func(st *state) error {
		if v, ok := st.payment[applicationPK]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

func (r *AdmissionRepository) GetPaymentByPSID(_ context.Context, psid string) (*models.PaymentRecord, error) {
	var out *models.PaymentRecord
	err := r.do(func(st *state) error {
		for _, p := range st.payment {
			if p.PSID == psid {
				out = &p
				return nil
			}
		}
		return apperrors.ErrPaymentNotFound
	})
	return out, err
}

func (r *AdmissionRepository) UpsertPayment(_ context.Context, pay *models.PaymentRecord) error {
	return r.do(func(st *state) error {
		for pk, other := range st.payment {
			if pk != pay.ApplicationPK && other.PSID == pay.PSID {
				return fmt.Errorf("psid %s already used: %w", pay.PSID, apperrors.ErrConflict)
			}
		}
		now := r.store.now()
		pay.CreatedAt = now
		if cur, ok := st.payment[pay.ApplicationPK]; ok {
			pay.CreatedAt = cur.CreatedAt
		}
		pay.UpdatedAt = now
		st.payment[pay.ApplicationPK] = *pay
		return nil
	})
}

func (r *AdmissionRepository) NextRollSequence(_ context.Context, key models.RollSequenceKey) (int, error) {
	var next int
	err := r.do(func(st *state) error {
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return next, err
}
