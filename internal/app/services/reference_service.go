package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/cache"
	"github.com/campusgpt/admission/internal/pkg/validation"
)

const (
	cacheKeyPrograms = "programs"
	cacheKeyCriteria = "criteria:"
	cacheKeyRoadmap  = "roadmap:"
)

// ReferenceService defines the interface for the program catalog
type ReferenceService interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgram(ctx context.Context, code string) (*models.Program, error)
	GetCriteria(ctx context.Context, program string) (*models.AdmissionCriteria, error)
	Roadmap(ctx context.Context, program string) ([]models.RoadmapSemester, error)
	UpsertCriteria(ctx context.Context, program string, req *dto.UpsertCriteriaRequest) (*models.AdmissionCriteria, error)
}

// referenceServiceImpl implements ReferenceService
type referenceServiceImpl struct {
	repo   repositories.IReferenceRepository
	cache  cache.Cache
	logger zerolog.Logger
}

// NewReferenceService creates a new ReferenceService
func NewReferenceService(repo repositories.IReferenceRepository, c cache.Cache, logger zerolog.Logger) ReferenceService {
	if c == nil {
		c = cache.Noop{}
	}
	return &referenceServiceImpl{
		repo:   repo,
		cache:  c,
		logger: logger.With().Str("component", "reference").Logger(),
	}
}

// cached serves key from the cache or loads and stores it. Cache failures
// only cost a database round trip.
func cached[T any](ctx context.Context, s *referenceServiceImpl, key string, load func() (T, error)) (T, error) {
	var v T
	err := s.cache.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return v, nil
}

// ListPrograms returns the program catalog
func (s *referenceServiceImpl) ListPrograms(ctx context.Context) ([]models.Program, error) {
	return cached(ctx, s, cacheKeyPrograms, func() ([]models.Program, error) {
		programs, err := s.repo.ListPrograms(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing programs: %w", err)
		}
		return programs, nil
	})
}

// GetProgram returns one program or ErrProgramNotFound
func (s *referenceServiceImpl) GetProgram(ctx context.Context, code string) (*models.Program, error) {
	programs, err := s.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		if programs[i].Code == code {
			p := programs[i]
			return &p, nil
		}
	}
	return nil, apperrors.ErrProgramNotFound
}

// GetCriteria returns a program's thresholds or ErrCriteriaNotFound
func (s *referenceServiceImpl) GetCriteria(ctx context.Context, program string) (*models.AdmissionCriteria, error) {
	c, err := cached(ctx, s, cacheKeyCriteria+program, func() (*models.AdmissionCriteria, error) {
		c, err := s.repo.GetCriteria(ctx, program)
		if err != nil {
			return nil, fmt.Errorf("error getting admission criteria: %w", err)
		}
		if c == nil {
			return nil, apperrors.ErrCriteriaNotFound
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Roadmap returns the curriculum of a program grouped by semester. A program
// without curriculum has an empty roadmap.
func (s *referenceServiceImpl) Roadmap(ctx context.Context, program string) ([]models.RoadmapSemester, error) {
	return cached(ctx, s, cacheKeyRoadmap+program, func() ([]models.RoadmapSemester, error) {
		entries, err := s.repo.ListCurriculum(ctx, program)
		if err != nil {
			return nil, fmt.Errorf("error listing curriculum: %w", err)
		}
		return models.BuildRoadmap(entries), nil
	})
}

// UpsertCriteria replaces a program's thresholds and drops the cached copy
func (s *referenceServiceImpl) UpsertCriteria(ctx context.Context, program string, req *dto.UpsertCriteriaRequest) (*models.AdmissionCriteria, error) {
	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}
	if _, err := s.GetProgram(ctx, program); err != nil {
		return nil, err
	}

	c := &models.AdmissionCriteria{
		Program:             program,
		MinFscMarks:         *req.MinFscMarks,
		MinFscPercentage:    *req.MinFscPercentage,
		MinMatricPercentage: *req.MinMatricPercentage,
		MinAggregate:        *req.MinAggregate,
	}
	if err := s.repo.UpsertCriteria(ctx, c); err != nil {
		return nil, fmt.Errorf("error saving admission criteria: %w", err)
	}

	if err := s.cache.Delete(ctx, cacheKeyCriteria+program); err != nil {
		s.logger.Warn().Err(err).Str("program", program).Msg("Cache invalidation failed")
	}
	s.logger.Info().Str("program", program).Msg("Admission criteria updated")
	return c, nil
}

// validationError turns validator output into an apperrors validation error.
// When fallback is empty the first field message is used.
func validationError(err error, fallback string) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	msg := fallback
	if msg == "" {
		msg = verrs.First().Message
	}
	return apperrors.NewValidationError(msg, verrs.Fields())
}
