package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/config"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/email"
	"github.com/campusgpt/admission/internal/pkg/filestorage"
	"github.com/campusgpt/admission/internal/pkg/helpers"
	"github.com/campusgpt/admission/internal/pkg/payment"
	"github.com/campusgpt/admission/internal/pkg/tracing"
	"github.com/campusgpt/admission/internal/pkg/validation"
)

// Applicant-facing messages
const (
	MsgRequiredFields  = "Please fill all required fields."
	MsgInvalidNumber   = "Invalid number format. Please enter valid numbers."
	MsgAgreeTerms      = "You must agree to the terms and conditions."
	MsgNoApplication   = "No application found for this email."
	MsgIneligible      = "You do not meet the eligibility criteria for the selected program. Please choose another program."
	MsgNotEligible     = "Your application is not eligible for confirmation. Please select a program you qualify for."
	MsgReconfirm       = "Your program selection has changed. Please confirm your program again at stage 4."
	MsgInvalidProgram  = "Please select a valid program."
	MsgInvalidDocument = "Documents must be PDF, JPG or PNG files."
	MsgDocumentTooBig  = "Document exceeds the maximum upload size."
)

// ResumeURL is where an applicant looks up an existing application
const ResumeURL = "/admission/login/"

const dateLayout = "2006-01-02"

// AdmissionSettings carries the deployment values the pipeline needs
type AdmissionSettings struct {
	SiteURL        string
	PortalURL      string
	Fees           config.FeesConfig
	MaxUploadBytes int64
}

// EducationDocuments are the optional stage-2 uploads
type EducationDocuments struct {
	FscCertificate    *multipart.FileHeader
	MatricCertificate *multipart.FileHeader
	CNICScan          *multipart.FileHeader
}

type upload struct {
	field string
	file  *multipart.FileHeader
}

func (d EducationDocuments) uploads() []upload {
	return []upload{
		{"fsc_certificate", d.FscCertificate},
		{"matric_certificate", d.MatricCertificate},
		{"cnic_scan", d.CNICScan},
	}
}

// AdmissionService defines the five-stage admission pipeline
type AdmissionService interface {
	StartForm(ctx context.Context, program string) (*dto.StartForm, error)
	Start(ctx context.Context, req *dto.StartApplicationRequest) (*dto.StageResult, error)
	Resume(ctx context.Context, req *dto.ResumeRequest) (*dto.ResumeResult, error)
	ViewStage(ctx context.Context, applicationID string, stage int) (*dto.StageView, error)
	SubmitPersonalInfo(ctx context.Context, applicationID string, req *dto.PersonalInfoRequest) (*dto.StageResult, error)
	SubmitEducation(ctx context.Context, applicationID string, req *dto.EducationRequest, docs EducationDocuments) (*dto.StageResult, error)
	SubmitProgramSelection(ctx context.Context, applicationID string, req *dto.ProgramSelectionRequest) (*dto.StageResult, error)
	SubmitProgramConfirmation(ctx context.Context, applicationID string, req *dto.ProgramConfirmationRequest) (*dto.StageResult, error)
	SubmitPayment(ctx context.Context, applicationID string, req *dto.PaymentRequest) (*dto.StageResult, error)
	HandlePaymentNotification(ctx context.Context, req *dto.PaymentNotificationRequest) (*dto.StageResult, error)
	Confirmation(ctx context.Context, applicationID string) (*dto.ConfirmationView, error)
}

// admissionServiceImpl implements AdmissionService
type admissionServiceImpl struct {
	repo        repositories.IAdmissionRepository
	reference   ReferenceService
	credentials *CredentialGenerator
	notifier    Notifier
	gateway     payment.Gateway
	storage     filestorage.FileStorage
	settings    AdmissionSettings
	clock       helpers.Clock
	logger      zerolog.Logger
}

// NewAdmissionService creates a new AdmissionService
func NewAdmissionService(
	repo repositories.IAdmissionRepository,
	reference ReferenceService,
	credentials *CredentialGenerator,
	notifier Notifier,
	gateway payment.Gateway,
	storage filestorage.FileStorage,
	settings AdmissionSettings,
	clock helpers.Clock,
	logger zerolog.Logger,
) AdmissionService {
	if clock == nil {
		clock = helpers.SystemClock
	}
	settings.SiteURL = strings.TrimRight(settings.SiteURL, "/")
	settings.PortalURL = strings.TrimRight(settings.PortalURL, "/")
	return &admissionServiceImpl{
		repo:        repo,
		reference:   reference,
		credentials: credentials,
		notifier:    notifier,
		gateway:     gateway,
		storage:     storage,
		settings:    settings,
		clock:       clock,
		logger:      logger.With().Str("component", "admission").Logger(),
	}
}

// StageURL is the applicant-facing path of an application's current step
func StageURL(app *models.Application) string {
	if app.CurrentStage == models.StageCompleted {
		return fmt.Sprintf("/admission/confirmation/%s/", app.ApplicationID)
	}
	return fmt.Sprintf("/admission/stage%d/%s/", app.CurrentStage.Ordinal(), app.ApplicationID)
}

func startSpan(ctx context.Context, name, applicationID string) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer().Start(ctx, "admission."+name)
	if applicationID != "" {
		span.SetAttributes(attribute.String("admission.application_id", applicationID))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func lockedError(app *models.Application) error {
	return apperrors.ErrStageLocked.WithDetails(map[string]interface{}{
		"currentStage": app.CurrentStage,
		"url":          StageURL(app),
	})
}

// gate rejects edits to completed applications and stages not yet reached.
func gate(app *models.Application, stage models.Stage) error {
	if app.CurrentStage == models.StageCompleted {
		return apperrors.ErrApplicationClosed
	}
	if stage.Ordinal() > app.CurrentStage.Ordinal() {
		return lockedError(app)
	}
	return nil
}

func (s *admissionServiceImpl) result(app *models.Application) *dto.StageResult {
	r := &dto.StageResult{
		ApplicationID:   app.ApplicationID,
		CurrentStage:    app.CurrentStage,
		AdmissionStatus: app.AdmissionStatus,
		PaymentStatus:   app.PaymentStatus,
		NextURL:         StageURL(app),
	}
	if app.RollNumber != nil {
		r.RollNumber = *app.RollNumber
	}
	if app.InstitutionalEmail != nil {
		r.InstitutionalEmail = *app.InstitutionalEmail
	}
	return r
}

// submit runs fn on the locked application inside one transaction and saves it.
func (s *admissionServiceImpl) submit(
	ctx context.Context,
	applicationID string,
	stage models.Stage,
	fn func(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) error,
) (*models.Application, error) {
	var out *models.Application
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo repositories.IAdmissionRepository) error {
		app, err := repo.LockByApplicationID(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := gate(app, stage); err != nil {
			return err
		}
		if err := fn(ctx, repo, app); err != nil {
			return err
		}
		if err := repo.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("error updating application: %w", err)
		}
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("applicationId", applicationID).
		Str("stage", string(stage)).
		Str("currentStage", string(out.CurrentStage)).
		Msg("Stage submitted")
	return out, nil
}

// StartForm returns the program list and the pre-selected program, if known
func (s *admissionServiceImpl) StartForm(ctx context.Context, program string) (*dto.StartForm, error) {
	programs, err := s.reference.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	form := &dto.StartForm{Programs: programs}
	for _, p := range programs {
		if p.Code == program {
			form.Program = p.Code
		}
	}
	return form, nil
}

func duplicateError() error {
	return apperrors.ErrDuplicateApplication.WithDetails(map[string]interface{}{"redirect": ResumeURL})
}

// Start opens a new application for an email address
func (s *admissionServiceImpl) Start(ctx context.Context, req *dto.StartApplicationRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "Start", "")
	defer func() { endSpan(span, err) }()

	req.Email = helpers.NormalizeEmail(req.Email)
	req.Program = strings.ToUpper(strings.TrimSpace(req.Program))
	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, duplicateError()
	} else if !errors.Is(err, apperrors.ErrApplicationNotFound) {
		return nil, fmt.Errorf("error checking existing application: %w", err)
	}

	app := &models.Application{
		ApplicationID:   helpers.NewApplicationID(),
		Email:           req.Email,
		CurrentStage:    models.StagePersonalInfo,
		AdmissionStatus: models.AdmissionPending,
		PaymentStatus:   models.PaymentPending,
	}
	if req.Program != "" {
		if p, err := s.reference.GetProgram(ctx, req.Program); err == nil {
			app.PreferredProgram = &p.Code
		}
	}

	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateApplication) {
			return nil, duplicateError()
		}
		return nil, fmt.Errorf("error creating application: %w", err)
	}

	span.SetAttributes(attribute.String("admission.application_id", app.ApplicationID))
	s.logger.Info().Str("applicationId", app.ApplicationID).Msg("Application started")
	return s.result(app), nil
}

// Resume finds an application by its contact email
func (s *admissionServiceImpl) Resume(ctx context.Context, req *dto.ResumeRequest) (*dto.ResumeResult, error) {
	req.Email = helpers.NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}

	app, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrApplicationNotFound) {
			return nil, apperrors.NewResourceNotFoundError(MsgNoApplication)
		}
		return nil, fmt.Errorf("error finding application: %w", err)
	}

	return &dto.ResumeResult{
		ApplicationID: app.ApplicationID,
		CurrentStage:  app.CurrentStage,
		RedirectURL:   StageURL(app),
	}, nil
}

// ViewStage returns the stored record of a stage and what the stage needs to render
func (s *admissionServiceImpl) ViewStage(ctx context.Context, applicationID string, n int) (*dto.StageView, error) {
	stage, err := models.StageByNumber(n)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	app, err := s.repo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if stage.Ordinal() > app.CurrentStage.Ordinal() {
		return nil, lockedError(app)
	}

	view := &dto.StageView{Application: app, Stage: n}
	switch stage {
	case models.StagePersonalInfo:
		view.PersonalInfo, err = s.repo.GetPersonalInfo(ctx, app.ID)

	case models.StageEducation:
		view.Education, err = s.repo.GetEducation(ctx, app.ID)

	case models.StageProgramSelection:
		if view.Selection, err = s.repo.GetSelection(ctx, app.ID); err != nil {
			return nil, err
		}
		view.Programs, err = s.reference.ListPrograms(ctx)

	case models.StageProgramConfirmation:
		err = s.fillConfirmationView(ctx, app, view)

	case models.StagePayment:
		if view.Confirmation, err = s.repo.GetConfirmation(ctx, app.ID); err != nil {
			return nil, err
		}
		if view.Payment, err = s.repo.GetPayment(ctx, app.ID); err != nil {
			return nil, err
		}
		if view.Confirmation != nil {
			view.Fees = feeSummary(view.Confirmation)
		} else {
			view.Fees = feeSummary(s.scheduledConfirmation("", nil))
		}
		view.PaymentMethods = models.PaymentMethods
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *admissionServiceImpl) fillConfirmationView(ctx context.Context, app *models.Application, view *dto.StageView) error {
	var err error
	if view.Selection, err = s.repo.GetSelection(ctx, app.ID); err != nil {
		return err
	}
	if view.Confirmation, err = s.repo.GetConfirmation(ctx, app.ID); err != nil {
		return err
	}
	if view.Selection == nil {
		return nil
	}

	program := view.Selection.Program
	if view.Program, err = s.reference.GetProgram(ctx, program); err != nil && !errors.Is(err, apperrors.ErrProgramNotFound) {
		return err
	}
	if view.Criteria, err = s.reference.GetCriteria(ctx, program); err != nil && !errors.Is(err, apperrors.ErrCriteriaNotFound) {
		return err
	}
	if view.Roadmap, err = s.reference.Roadmap(ctx, program); err != nil {
		return err
	}
	view.Fees = feeSummary(s.scheduledConfirmation(program, view.Program))
	return nil
}

// scheduledConfirmation is a confirmation built from the configured fee schedule.
func (s *admissionServiceImpl) scheduledConfirmation(program string, p *models.Program) *models.ProgramConfirmation {
	duration := s.settings.Fees.DurationSemesters
	if p != nil && p.DurationSemesters > 0 {
		duration = p.DurationSemesters
	}
	return &models.ProgramConfirmation{
		Program:           program,
		DurationSemesters: duration,
		TotalCredits:      s.settings.Fees.TotalCredits,
		AdmissionFee:      s.settings.Fees.AdmissionFee,
		SemesterFee:       s.settings.Fees.SemesterFee,
		StudentCardFee:    s.settings.Fees.StudentCardFee,
		TransportFee:      s.settings.Fees.TransportFee,
	}
}

func feeSummary(c *models.ProgramConfirmation) *dto.FeeSummary {
	first := c.SemesterFee / 2
	without := c.AdmissionFee + first + c.StudentCardFee
	return &dto.FeeSummary{
		AdmissionFee:          c.AdmissionFee,
		SemesterFee:           c.SemesterFee,
		FirstSemesterFee:      first,
		StudentCardFee:        c.StudentCardFee,
		TransportFee:          c.TransportFee,
		TotalWithoutTransport: without,
		TotalWithTransport:    without + c.TransportFee,
		DurationSemesters:     c.DurationSemesters,
		TotalCredits:          c.TotalCredits,
	}
}

// SubmitPersonalInfo saves stage 1
func (s *admissionServiceImpl) SubmitPersonalInfo(ctx context.Context, applicationID string, req *dto.PersonalInfoRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "SubmitPersonalInfo", applicationID)
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil || !dob.Before(s.clock()) {
		return nil, apperrors.NewValidationError("Please enter a valid date of birth.", map[string]string{
			"date_of_birth": "date_of_birth must be a past date in the format YYYY-MM-DD",
		})
	}

	app, err := s.submit(ctx, applicationID, models.StagePersonalInfo, func(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) error {
		info := &models.PersonalInfo{
			ApplicationPK: app.ID,
			FullName:      strings.TrimSpace(req.FullName),
			FatherName:    strings.TrimSpace(req.FatherName),
			DateOfBirth:   dob,
			Gender:        models.Gender(req.Gender),
			CNIC:          req.CNIC,
			Phone:         req.Phone,
			WhatsApp:      req.WhatsApp,
			Address:       strings.TrimSpace(req.Address),
		}
		if err := repo.UpsertPersonalInfo(ctx, info); err != nil {
			return fmt.Errorf("error saving personal info: %w", err)
		}
		app.CurrentStage = app.CurrentStage.Max(models.StageEducation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.result(app), nil
}

func (s *admissionServiceImpl) checkDocuments(docs EducationDocuments) error {
	fields := make(map[string]string)
	msg := ""
	for _, u := range docs.uploads() {
		if u.file == nil {
			continue
		}
		if !filestorage.AllowedDocumentTypes[strings.ToLower(filepath.Ext(u.file.Filename))] {
			fields[u.field], msg = MsgInvalidDocument, MsgInvalidDocument
		} else if s.settings.MaxUploadBytes > 0 && u.file.Size > s.settings.MaxUploadBytes {
			fields[u.field], msg = MsgDocumentTooBig, MsgDocumentTooBig
		}
	}
	if msg != "" {
		return apperrors.NewValidationError(msg, fields)
	}
	return nil
}

// saveDocuments stores the uploads and returns their paths keyed by field.
// On failure everything stored so far is removed.
func (s *admissionServiceImpl) saveDocuments(ctx context.Context, applicationID string, docs EducationDocuments) (map[string]string, error) {
	saved := make(map[string]string)
	for _, u := range docs.uploads() {
		if u.file == nil {
			continue
		}
		path, err := s.storage.SaveFileWithPath(ctx, u.file, applicationID)
		if err != nil {
			s.discardDocuments(ctx, saved)
			return nil, fmt.Errorf("error storing %s: %w", u.field, err)
		}
		saved[u.field] = path
	}
	return saved, nil
}

func (s *admissionServiceImpl) discardDocuments(ctx context.Context, paths map[string]string) {
	for field, path := range paths {
		if err := s.storage.DeleteFile(context.WithoutCancel(ctx), path); err != nil {
			s.logger.Warn().Err(err).Str("field", field).Str("path", path).Msg("Failed to remove stored document")
		}
	}
}

func pathOf(saved map[string]string, field string) *string {
	if p, ok := saved[field]; ok {
		return &p
	}
	return nil
}

// SubmitEducation saves stage 2 and any uploaded documents
func (s *admissionServiceImpl) SubmitEducation(ctx context.Context, applicationID string, req *dto.EducationRequest, docs EducationDocuments) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "SubmitEducation", applicationID)
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(req); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) && verrs.HasTag("required") {
			return nil, validationError(err, MsgRequiredFields)
		}
		return nil, validationError(err, "")
	}
	if err := s.checkDocuments(docs); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := gate(current, models.StageEducation); err != nil {
		return nil, err
	}

	saved, err := s.saveDocuments(ctx, applicationID, docs)
	if err != nil {
		return nil, err
	}

	replaced := make(map[string]string)
	app, err := s.submit(ctx, applicationID, models.StageEducation, func(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) error {
		prev, err := repo.GetEducation(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting education record: %w", err)
		}
		if prev != nil {
			for field, old := range map[string]*string{
				"fsc_certificate":    prev.FscCertificate,
				"matric_certificate": prev.MatricCertificate,
				"cnic_scan":          prev.CNICScan,
			} {
				if _, ok := saved[field]; ok && old != nil {
					replaced[field] = *old
				}
			}
		}

		rec := &models.EducationRecord{
			ApplicationPK:            app.ID,
			FscBoard:                 strings.TrimSpace(req.FscBoard),
			FscYear:                  *req.FscYear,
			FscMarks:                 *req.FscMarks,
			FscPercentage:            *req.FscPercentage,
			MatricBoard:              strings.TrimSpace(req.MatricBoard),
			MatricYear:               *req.MatricYear,
			MatricMarks:              *req.MatricMarks,
			MatricPercentage:         *req.MatricPercentage,
			AdditionalQualifications: strings.TrimSpace(req.AdditionalQualifications),
			FscCertificate:           pathOf(saved, "fsc_certificate"),
			MatricCertificate:        pathOf(saved, "matric_certificate"),
			CNICScan:                 pathOf(saved, "cnic_scan"),
		}
		if err := repo.UpsertEducation(ctx, rec); err != nil {
			return fmt.Errorf("error saving education record: %w", err)
		}
		app.CurrentStage = app.CurrentStage.Max(models.StageProgramSelection)

		sel, err := repo.GetSelection(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting program selection: %w", err)
		}
		if sel == nil {
			return nil
		}
		return s.rescore(ctx, repo, app, rec, sel)
	})
	if err != nil {
		s.discardDocuments(ctx, saved)
		return nil, err
	}

	s.discardDocuments(ctx, replaced)
	return s.result(app), nil
}

// rescore re-evaluates an existing selection against edited marks. Losing
// eligibility pins the application to stage 3; regaining it reopens stage 4.
func (s *admissionServiceImpl) rescore(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application, edu *models.EducationRecord, sel *models.ProgramSelection) error {
	criteria, err := s.reference.GetCriteria(ctx, sel.Program)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCriteriaNotFound) {
			return err
		}
		criteria = nil
	}

	sel.EligibilityScore, sel.MeetsCriteria = EvaluateEligibility(edu, criteria)
	if err := repo.UpsertSelection(ctx, sel); err != nil {
		return fmt.Errorf("error saving program selection: %w", err)
	}

	switch {
	case !sel.MeetsCriteria:
		app.AdmissionStatus = models.AdmissionIneligible
		app.CurrentStage = models.StageProgramSelection
	case app.AdmissionStatus == models.AdmissionIneligible:
		app.AdmissionStatus = models.AdmissionEligible
		app.CurrentStage = app.CurrentStage.Max(models.StageProgramConfirmation)
	}
	return nil
}

// SubmitProgramSelection saves stage 3 and scores eligibility
func (s *admissionServiceImpl) SubmitProgramSelection(ctx context.Context, applicationID string, req *dto.ProgramSelectionRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "SubmitProgramSelection", applicationID)
	defer func() { endSpan(span, err) }()

	req.Program = strings.ToUpper(strings.TrimSpace(req.Program))
	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}

	program, err := s.reference.GetProgram(ctx, req.Program)
	if err != nil {
		if errors.Is(err, apperrors.ErrProgramNotFound) {
			return nil, apperrors.NewValidationError(MsgInvalidProgram, map[string]string{"program": MsgInvalidProgram})
		}
		return nil, err
	}
	criteria, err := s.reference.GetCriteria(ctx, program.Code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCriteriaNotFound) {
			return nil, err
		}
		s.logger.Warn().Str("program", program.Code).Msg("No admission criteria configured; selection will be ineligible")
		criteria = nil
	}

	var (
		score         float64
		meets         bool
		applicantName string
	)
	app, err := s.submit(ctx, applicationID, models.StageProgramSelection, func(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) error {
		edu, err := repo.GetEducation(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting education record: %w", err)
		}
		score, meets = EvaluateEligibility(edu, criteria)

		sel := &models.ProgramSelection{
			ApplicationPK:    app.ID,
			Program:          program.Code,
			Intake:           models.Intake(req.Intake),
			EligibilityScore: score,
			MeetsCriteria:    meets,
		}
		if err := repo.UpsertSelection(ctx, sel); err != nil {
			return fmt.Errorf("error saving program selection: %w", err)
		}

		if !meets {
			app.AdmissionStatus = models.AdmissionIneligible
			app.CurrentStage = models.StageProgramSelection
			return nil
		}

		app.AdmissionStatus = models.AdmissionEligible
		app.CurrentStage = app.CurrentStage.Max(models.StageProgramConfirmation)
		info, err := repo.GetPersonalInfo(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting personal info: %w", err)
		}
		if info != nil {
			applicantName = info.FullName
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Float64("admission.eligibility_score", score), attribute.Bool("admission.meets_criteria", meets))
	if meets {
		s.notifier.NotifyEligible(ctx, email.EligibilityNotice{
			ApplicationID: app.ApplicationID,
			ApplicantName: applicantName,
			Email:         app.Email,
			Program:       program.Name,
			Score:         score,
			ContinueURL:   fmt.Sprintf("%s/admission/stage4/%s/", s.settings.SiteURL, app.ApplicationID),
		})
	}

	res = s.result(app)
	res.EligibilityScore = &score
	res.MeetsCriteria = &meets
	return res, nil
}

// SubmitProgramConfirmation saves stage 4 with a snapshot of the roadmap and fees
func (s *admissionServiceImpl) SubmitProgramConfirmation(ctx context.Context, applicationID string, req *dto.ProgramConfirmationRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "SubmitProgramConfirmation", applicationID)
	defer func() { endSpan(span, err) }()

	if !req.AgreeTerms {
		return nil, apperrors.NewValidationError(MsgAgreeTerms, map[string]string{"agree_terms": MsgAgreeTerms})
	}

	app, err := s.submit(ctx, applicationID, models.StageProgramConfirmation, func(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) error {
		if app.AdmissionStatus != models.AdmissionEligible {
			return apperrors.NewValidationError(MsgNotEligible, nil)
		}
		sel, err := repo.GetSelection(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting program selection: %w", err)
		}
		if sel == nil || !sel.MeetsCriteria {
			return apperrors.NewValidationError(MsgNotEligible, nil)
		}

		program, err := s.reference.GetProgram(ctx, sel.Program)
		if err != nil && !errors.Is(err, apperrors.ErrProgramNotFound) {
			return err
		}
		roadmap, err := s.reference.Roadmap(ctx, sel.Program)
		if err != nil {
			return err
		}

		conf := s.scheduledConfirmation(sel.Program, program)
		conf.ApplicationPK = app.ID
		conf.Roadmap = roadmap
		conf.AgreeTerms = true
		if err := repo.UpsertConfirmation(ctx, conf); err != nil {
			return fmt.Errorf("error saving program confirmation: %w", err)
		}
		app.CurrentStage = app.CurrentStage.Max(models.StagePayment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.result(app), nil
}

// pendingPaymentTTL is how long a reserved payment blocks new charges while
// the gateway has no order for it
const pendingPaymentTTL = 2 * time.Minute

// paymentOutcome is what one finalize step decided. blocked carries the
// reason a completed payment could not admit the applicant.
type paymentOutcome struct {
	app      *models.Application
	pay      *models.PaymentRecord
	admitted bool
	blocked  error
}

// approvalError reports why a stage-5 application cannot be admitted on its
// current selection, or nil when it can.
func approvalError(app *models.Application, sel *models.ProgramSelection, conf *models.ProgramConfirmation) error {
	if app.AdmissionStatus != models.AdmissionEligible || sel == nil || !sel.MeetsCriteria {
		return apperrors.NewValidationError(MsgNotEligible, nil)
	}
	if app.CurrentStage != models.StagePayment || conf == nil || conf.Program != sel.Program {
		return apperrors.NewValidationError(MsgReconfirm, map[string]string{"program": MsgReconfirm})
	}
	return nil
}

func loadApproval(ctx context.Context, repo repositories.IAdmissionRepository, app *models.Application) (*models.ProgramSelection, *models.ProgramConfirmation, error) {
	sel, err := repo.GetSelection(ctx, app.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting program selection: %w", err)
	}
	conf, err := repo.GetConfirmation(ctx, app.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting program confirmation: %w", err)
	}
	return sel, conf, nil
}

// finalize records a gateway answer for the payment on record under the
// application's row lock. Answers for any other PSID are ignored. A completed
// charge issues credentials and closes the application when the selection is
// still approvable; otherwise the payment is kept as paid and the application
// stays open. Calling it again for a completed application changes nothing.
func (s *admissionServiceImpl) finalize(ctx context.Context, applicationID string, pay *models.PaymentRecord, charge *payment.ChargeResult) (*paymentOutcome, error) {
	out := &paymentOutcome{}
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo repositories.IAdmissionRepository) error {
		app, err := repo.LockByApplicationID(ctx, applicationID)
		if err != nil {
			return err
		}
		out.app = app

		current, err := repo.GetPayment(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting payment record: %w", err)
		}
		if app.CurrentStage == models.StageCompleted || current == nil || current.PSID != pay.PSID {
			out.pay = current
			return nil
		}

		rec := *current
		if charge.TransactionID != "" {
			rec.TransactionID = charge.TransactionID
		}
		if charge.RedirectURL != "" {
			rec.RedirectURL = charge.RedirectURL
		}

		switch charge.Status {
		case payment.StatusCompleted:
			now := s.clock()
			if rec.PaymentDate == nil {
				rec.PaymentDate = &now
			}
			rec.PaymentStatus = models.PaymentCompleted
			app.PaymentStatus = models.PaymentCompleted

			sel, conf, err := loadApproval(ctx, repo, app)
			if err != nil {
				return err
			}
			if out.blocked = approvalError(app, sel, conf); out.blocked != nil {
				break
			}
			if err := s.credentials.Issue(ctx, repo, app, sel.Program, sel.Intake); err != nil {
				return err
			}
			app.AdmissionStatus = models.AdmissionApproved
			if app.SubmittedAt == nil {
				app.SubmittedAt = &now
			}
			app.ApprovedAt = &now
			app.CurrentStage = models.StageCompleted
			out.admitted = true

		case payment.StatusProcessing:
			rec.PaymentStatus = models.PaymentProcessing
			app.PaymentStatus = models.PaymentProcessing

		default:
			rec.PaymentStatus = models.PaymentFailed
			app.PaymentStatus = models.PaymentFailed
		}

		if err := repo.UpsertPayment(ctx, &rec); err != nil {
			return fmt.Errorf("error saving payment record: %w", err)
		}
		if err := repo.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("error updating application: %w", err)
		}
		out.pay = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case out.admitted:
		s.logger.Info().
			Str("applicationId", applicationID).
			Str("rollNumber", *out.app.RollNumber).
			Msg("Application approved")
		s.notifyAdmitted(ctx, out.app)
	case out.blocked != nil:
		s.logger.Warn().
			Str("applicationId", applicationID).
			Str("psid", pay.PSID).
			Msg("Payment completed but selection is no longer approvable; holding admission")
	}
	return out, nil
}

func (s *admissionServiceImpl) notifyAdmitted(ctx context.Context, app *models.Application) {
	notice := email.AdmissionNotice{
		Email:    app.Email,
		LoginURL: s.settings.PortalURL + "/login/",
	}
	if app.RollNumber != nil {
		notice.RollNumber = *app.RollNumber
	}
	if app.InstitutionalEmail != nil {
		notice.InstitutionalEmail = *app.InstitutionalEmail
	}
	if info, err := s.repo.GetPersonalInfo(ctx, app.ID); err == nil && info != nil {
		notice.ApplicantName = info.FullName
	}
	if sel, err := s.repo.GetSelection(ctx, app.ID); err == nil && sel != nil {
		notice.Program = sel.Program
		notice.Intake = string(sel.Intake)
		if p, err := s.reference.GetProgram(ctx, sel.Program); err == nil {
			notice.Program = p.Name
		}
	}
	s.notifier.NotifyAdmitted(ctx, notice)
}

func (s *admissionServiceImpl) paymentResult(out *paymentOutcome) *dto.StageResult {
	res := s.result(out.app)
	if out.pay != nil {
		res.PSID = out.pay.PSID
		if out.pay.PaymentStatus == models.PaymentProcessing {
			res.CheckoutURL = out.pay.RedirectURL
		}
	}
	return res
}

// reservation is the payment a stage-5 submit acts on. fresh is set when the
// record was written by this submit and still has to be charged.
type reservation struct {
	app   *models.Application
	sel   *models.ProgramSelection
	pay   *models.PaymentRecord
	fresh bool
}

// reservePayment checks the application under its row lock and writes a
// pending payment with a new PSID. A payment already in flight or already
// paid is returned instead, so at most one charge is open per application.
func (s *admissionServiceImpl) reservePayment(ctx context.Context, applicationID string, req *dto.PaymentRequest) (*reservation, error) {
	out := &reservation{}
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo repositories.IAdmissionRepository) error {
		app, err := repo.LockByApplicationID(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := gate(app, models.StagePayment); err != nil {
			return err
		}
		sel, conf, err := loadApproval(ctx, repo, app)
		if err != nil {
			return err
		}
		if err := approvalError(app, sel, conf); err != nil {
			return err
		}
		out.app, out.sel = app, sel

		existing, err := repo.GetPayment(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("error getting payment record: %w", err)
		}
		if existing != nil {
			switch existing.PaymentStatus {
			case models.PaymentCompleted, models.PaymentProcessing:
				out.pay = existing
				return nil
			case models.PaymentPending:
				if s.clock().Sub(existing.UpdatedAt) < pendingPaymentTTL {
					out.pay = existing
					return nil
				}
				s.logger.Warn().Str("applicationId", applicationID).Str("psid", existing.PSID).Msg("Replacing abandoned payment reservation")
			}
		}

		fees := feeSummary(conf)
		pay := &models.PaymentRecord{
			ApplicationPK:    app.ID,
			AdmissionFee:     fees.AdmissionFee,
			FirstSemesterFee: fees.FirstSemesterFee,
			StudentCardFee:   fees.StudentCardFee,
			PaymentMethod:    models.PaymentMethod(req.PaymentMethod),
			PaymentStatus:    models.PaymentPending,
			PSID:             helpers.NewPSID(),
		}
		if req.TransportOption {
			pay.TransportFee = fees.TransportFee
		}
		pay.TotalAmount = pay.AdmissionFee + pay.FirstSemesterFee + pay.StudentCardFee + pay.TransportFee
		if err := repo.UpsertPayment(ctx, pay); err != nil {
			return fmt.Errorf("error saving payment record: %w", err)
		}
		app.PaymentStatus = models.PaymentPending
		if err := repo.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("error updating application: %w", err)
		}
		out.pay, out.fresh = pay, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPayment captures the stage-5 payment and, when it completes, admits the applicant
func (s *admissionServiceImpl) SubmitPayment(ctx context.Context, applicationID string, req *dto.PaymentRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "SubmitPayment", applicationID)
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}

	rsv, err := s.reservePayment(ctx, applicationID, req)
	if err != nil {
		return nil, err
	}
	pay := rsv.pay
	span.SetAttributes(attribute.String("admission.psid", pay.PSID), attribute.Int64("admission.amount", pay.TotalAmount))

	var out *paymentOutcome
	switch {
	case !rsv.fresh && pay.PaymentStatus == models.PaymentCompleted:
		// Paid earlier while the selection was not approvable.
		out, err = s.finalize(ctx, applicationID, pay, &payment.ChargeResult{Status: payment.StatusCompleted})
	case !rsv.fresh:
		out, err = s.refreshPayment(ctx, rsv.app, pay)
	default:
		var charge *payment.ChargeResult
		charge, err = s.gateway.Charge(ctx, s.chargeRequest(ctx, rsv.app, rsv.sel.Program, pay))
		if err != nil {
			s.logger.Error().Err(err).Str("applicationId", applicationID).Str("psid", pay.PSID).Msg("Payment gateway call failed")
			return nil, fmt.Errorf("error charging payment: %w", err)
		}
		out, err = s.finalize(ctx, applicationID, pay, charge)
		if err == nil && out.pay != nil && out.pay.PaymentStatus == models.PaymentFailed && out.app.CurrentStage != models.StageCompleted {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrPaymentDeclined, charge.Reason)
		}
	}
	if err != nil {
		return nil, err
	}
	if out.blocked != nil {
		return nil, out.blocked
	}
	return s.paymentResult(out), nil
}

func (s *admissionServiceImpl) chargeRequest(ctx context.Context, app *models.Application, program string, pay *models.PaymentRecord) payment.ChargeRequest {
	req := payment.ChargeRequest{
		OrderID:       pay.PSID,
		Amount:        pay.TotalAmount,
		Method:        string(pay.PaymentMethod),
		CustomerEmail: app.Email,
		Items: []payment.Item{
			{ID: "admission-fee", Name: "Admission fee " + program, Price: pay.AdmissionFee},
			{ID: "first-semester-fee", Name: "First semester fee", Price: pay.FirstSemesterFee},
			{ID: "student-card-fee", Name: "Student card fee", Price: pay.StudentCardFee},
		},
	}
	if pay.TransportFee > 0 {
		req.Items = append(req.Items, payment.Item{ID: "transport-fee", Name: "Transport fee", Price: pay.TransportFee})
	}
	if info, err := s.repo.GetPersonalInfo(ctx, app.ID); err == nil && info != nil {
		req.CustomerName = info.FullName
		req.CustomerPhone = info.Phone
	}
	return req
}

// refreshPayment asks the gateway about a payment in flight and applies the
// answer. A reservation the gateway has not seen yet is reported as is.
func (s *admissionServiceImpl) refreshPayment(ctx context.Context, app *models.Application, pay *models.PaymentRecord) (*paymentOutcome, error) {
	charge, err := s.gateway.Status(ctx, pay.PSID)
	if err != nil {
		if errors.Is(err, payment.ErrOrderNotFound) {
			if pay.PaymentStatus == models.PaymentPending {
				return &paymentOutcome{app: app, pay: pay}, nil
			}
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error querying payment status: %w", err)
	}
	if charge.Status == payment.StatusProcessing && pay.PaymentStatus == models.PaymentProcessing {
		return &paymentOutcome{app: app, pay: pay}, nil
	}
	return s.finalize(ctx, app.ApplicationID, pay, charge)
}

// HandlePaymentNotification re-checks an order with the gateway and applies
// the authoritative status. Repeated notifications are harmless.
func (s *admissionServiceImpl) HandlePaymentNotification(ctx context.Context, req *dto.PaymentNotificationRequest) (res *dto.StageResult, err error) {
	ctx, span := startSpan(ctx, "HandlePaymentNotification", "")
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, validationError(err, "")
	}
	span.SetAttributes(attribute.String("admission.psid", req.OrderID))

	pay, err := s.repo.GetPaymentByPSID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.GetByID(ctx, pay.ApplicationPK)
	if err != nil {
		return nil, err
	}
	if app.CurrentStage == models.StageCompleted {
		return s.paymentResult(&paymentOutcome{app: app, pay: pay}), nil
	}

	s.logger.Info().
		Str("psid", req.OrderID).
		Str("reportedStatus", req.TransactionStatus).
		Str("gateway", s.gateway.Name()).
		Msg("Payment notification received")
	out, err := s.refreshPayment(ctx, app, pay)
	if err != nil {
		return nil, err
	}
	return s.paymentResult(out), nil
}

// Confirmation returns the summary of a completed application
func (s *admissionServiceImpl) Confirmation(ctx context.Context, applicationID string) (*dto.ConfirmationView, error) {
	app, err := s.repo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.CurrentStage != models.StageCompleted {
		return nil, lockedError(app)
	}

	view := &dto.ConfirmationView{Application: app, LoginURL: s.settings.PortalURL + "/login/"}
	if view.PersonalInfo, err = s.repo.GetPersonalInfo(ctx, app.ID); err != nil {
		return nil, err
	}
	if view.Selection, err = s.repo.GetSelection(ctx, app.ID); err != nil {
		return nil, err
	}
	if view.Payment, err = s.repo.GetPayment(ctx, app.ID); err != nil {
		return nil, err
	}
	return view, nil
}
