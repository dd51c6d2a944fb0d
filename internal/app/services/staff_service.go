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
	"github.com/campusgpt/admission/internal/pkg/auth"
	"github.com/campusgpt/admission/internal/pkg/helpers"
	"github.com/campusgpt/admission/internal/pkg/validation"
)

// StaffService defines the staff console operations
type StaffService interface {
	Login(ctx context.Context, req *dto.StaffLoginRequest) (*dto.StaffLoginResponse, error)
	ListApplications(ctx context.Context, query *dto.ApplicationListQuery) (*dto.PaginatedResponse, error)
	GetDossier(ctx context.Context, applicationID string) (*models.Dossier, error)
	UpsertCriteria(ctx context.Context, program string, req *dto.UpsertCriteriaRequest) (*models.AdmissionCriteria, error)
}

// staffServiceImpl implements StaffService
type staffServiceImpl struct {
	staffRepo     repositories.IStaffRepository
	admissionRepo repositories.IAdmissionRepository
	reference     ReferenceService
	jwtService    *auth.JWTService
	clock         helpers.Clock
	logger        zerolog.Logger
}

// NewStaffService creates a new StaffService
func NewStaffService(
	staffRepo repositories.IStaffRepository,
	admissionRepo repositories.IAdmissionRepository,
	reference ReferenceService,
	jwtService *auth.JWTService,
	clock helpers.Clock,
	logger zerolog.Logger,
) StaffService {
	if clock == nil {
		clock = helpers.SystemClock
	}
	return &staffServiceImpl{
		staffRepo:     staffRepo,
		admissionRepo: admissionRepo,
		reference:     reference,
		jwtService:    jwtService,
		clock:         clock,
		logger:        logger.With().Str("component", "staff").Logger(),
	}
}

// Login checks staff credentials and issues an access token
func (s *staffServiceImpl) Login(ctx context.Context, req *dto.StaffLoginRequest) (*dto.StaffLoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}

	staff, err := s.staffRepo.GetByEmail(ctx, helpers.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrStaffNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error getting staff user: %w", err)
	}

	if !auth.CheckPassword(staff.PasswordHash, req.Password) {
		s.logger.Warn().Str("email", staff.Email).Msg("Failed staff login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !staff.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	token, expiresIn, err := s.jwtService.GenerateAccessToken(staff)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	now := s.clock()
	if err := s.staffRepo.UpdateLastLogin(ctx, staff.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("staffId", staff.ID).Msg("Failed to record last login")
	} else {
		staff.LastLoginAt = &now
	}

	return &dto.StaffLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Staff:       staff,
	}, nil
}

// ListApplications returns one page of applications matching the filters
func (s *staffServiceImpl) ListApplications(ctx context.Context, query *dto.ApplicationListQuery) (*dto.PaginatedResponse, error) {
	filter := models.ApplicationFilter{
		Stage:   models.Stage(query.Stage),
		Status:  models.AdmissionStatus(query.Status),
		Program: query.Program,
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, apperrors.NewValidationError("Unknown stage filter.", map[string]string{"stage": query.Stage})
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("Unknown status filter.", map[string]string{"status": query.Status})
	}

	offset, limit := helpers.CalculateOffsetLimit(query.Page, query.Size)
	apps, total, err := s.admissionRepo.ListApplications(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}

	return &dto.PaginatedResponse{
		Items:      apps,
		Pagination: helpers.NewPaginationInfo(total, query.Page, limit),
	}, nil
}

// GetDossier returns an application with every stage record it has
func (s *staffServiceImpl) GetDossier(ctx context.Context, applicationID string) (*models.Dossier, error) {
	app, err := s.admissionRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	d := &models.Dossier{Application: app}
	if d.PersonalInfo, err = s.admissionRepo.GetPersonalInfo(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("error getting personal info: %w", err)
	}
	if d.Education, err = s.admissionRepo.GetEducation(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("error getting education record: %w", err)
	}
	if d.Selection, err = s.admissionRepo.GetSelection(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("error getting program selection: %w", err)
	}
	if d.Confirmation, err = s.admissionRepo.GetConfirmation(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("error getting program confirmation: %w", err)
	}
	if d.Payment, err = s.admissionRepo.GetPayment(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("error getting payment record: %w", err)
	}
	return d, nil
}

// UpsertCriteria delegates to the reference catalog
func (s *staffServiceImpl) UpsertCriteria(ctx context.Context, program string, req *dto.UpsertCriteriaRequest) (*models.AdmissionCriteria, error) {
	return s.reference.UpsertCriteria(ctx, program, req)
}
