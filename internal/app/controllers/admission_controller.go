package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/services"
	"github.com/campusgpt/admission/internal/middleware"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
)

// AdmissionController handles the applicant-facing admission pipeline
type AdmissionController struct {
	admissionService services.AdmissionService
	referenceService services.ReferenceService
}

// NewAdmissionController creates a new AdmissionController
func NewAdmissionController(admissionService services.AdmissionService, referenceService services.ReferenceService) *AdmissionController {
	return &AdmissionController{
		admissionService: admissionService,
		referenceService: referenceService,
	}
}

// Catalog lists the programs open for admission
// @Summary List programs
// @Tags admission
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Program}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admission/ [get]
func (c *AdmissionController) Catalog(ctx *gin.Context) {
	programs, err := c.referenceService.ListPrograms(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(programs, ""))
}

// StartForm renders the start page, pre-selecting ?program= when it is known
// @Summary Start form
// @Tags admission
// @Produce json
// @Param program query string false "Program code"
// @Success 200 {object} dto.APIResponse{data=dto.StartForm}
// @Router /admission/start/ [get]
func (c *AdmissionController) StartForm(ctx *gin.Context) {
	form, err := c.admissionService.StartForm(ctx.Request.Context(), ctx.Query("program"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(form, ""))
}

// Start opens a new application
// @Summary Start an application
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body dto.StartApplicationRequest true "Contact email"
// @Success 201 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 400 {object} dto.ErrorResponse "Invalid email"
// @Failure 409 {object} dto.ErrorResponse "An application already exists for this email"
// @Router /admission/start/ [post]
func (c *AdmissionController) Start(ctx *gin.Context) {
	var req dto.StartApplicationRequest
	if !middleware.BindRequest(ctx, &req, "") {
		return
	}

	res, err := c.admissionService.Start(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(res, "Application started"))
}

// Resume looks up an application by email
// @Summary Resume an application
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body dto.ResumeRequest true "Contact email"
// @Success 200 {object} dto.APIResponse{data=dto.ResumeResult}
// @Failure 404 {object} dto.ErrorResponse "No application found for this email"
// @Router /admission/login/ [post]
func (c *AdmissionController) Resume(ctx *gin.Context) {
	var req dto.ResumeRequest
	if !middleware.BindRequest(ctx, &req, "") {
		return
	}

	res, err := c.admissionService.Resume(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, ""))
}

// ViewStage returns the handler rendering stage n
// @Summary Render a stage
// @Tags admission
// @Produce json
// @Param app_id path string true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.StageView}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Failure 409 {object} dto.ErrorResponse "Stage locked"
// @Router /admission/stage{n}/{app_id}/ [get]
func (c *AdmissionController) ViewStage(n int) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		view, err := c.admissionService.ViewStage(ctx.Request.Context(), ctx.Param("app_id"), n)
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view, ""))
	}
}

// SubmitPersonalInfo saves stage 1
// @Summary Submit personal information
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param app_id path string true "Application ID"
// @Param request body dto.PersonalInfoRequest true "Personal information"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "CNIC already registered"
// @Router /admission/stage1/{app_id}/ [post]
func (c *AdmissionController) SubmitPersonalInfo(ctx *gin.Context) {
	var req dto.PersonalInfoRequest
	if !middleware.BindRequest(ctx, &req, services.MsgRequiredFields) {
		return
	}

	res, err := c.admissionService.SubmitPersonalInfo(ctx.Request.Context(), ctx.Param("app_id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Stage completed"))
}

// formFile returns the named upload or nil when the field was not sent
func formFile(ctx *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return fh, nil
}

// SubmitEducation saves stage 2 with its optional documents
// @Summary Submit education records
// @Tags admission
// @Accept json,multipart/form-data
// @Produce json
// @Param app_id path string true "Application ID"
// @Param request body dto.EducationRequest true "Education records"
// @Param fsc_certificate formData file false "FSc certificate"
// @Param matric_certificate formData file false "Matric certificate"
// @Param cnic_scan formData file false "CNIC scan"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admission/stage2/{app_id}/ [post]
func (c *AdmissionController) SubmitEducation(ctx *gin.Context) {
	var req dto.EducationRequest
	if !middleware.BindRequest(ctx, &req, services.MsgInvalidNumber) {
		return
	}

	var docs services.EducationDocuments
	for field, dst := range map[string]**multipart.FileHeader{
		"fsc_certificate":    &docs.FscCertificate,
		"matric_certificate": &docs.MatricCertificate,
		"cnic_scan":          &docs.CNICScan,
	} {
		fh, err := formFile(ctx, field)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError(services.MsgInvalidDocument, map[string]string{field: err.Error()}))
			return
		}
		*dst = fh
	}

	res, err := c.admissionService.SubmitEducation(ctx.Request.Context(), ctx.Param("app_id"), &req, docs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Stage completed"))
}

// SubmitProgramSelection saves stage 3. An ineligible choice is not an error:
// the applicant stays on stage 3 and is asked to choose again.
// @Summary Select a program
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param app_id path string true "Application ID"
// @Param request body dto.ProgramSelectionRequest true "Program and intake"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /admission/stage3/{app_id}/ [post]
func (c *AdmissionController) SubmitProgramSelection(ctx *gin.Context) {
	var req dto.ProgramSelectionRequest
	if !middleware.BindRequest(ctx, &req, services.MsgRequiredFields) {
		return
	}

	res, err := c.admissionService.SubmitProgramSelection(ctx.Request.Context(), ctx.Param("app_id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "Stage completed"
	if res.MeetsCriteria != nil && !*res.MeetsCriteria {
		message = services.MsgIneligible
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, message))
}

// SubmitProgramConfirmation saves stage 4
// @Summary Confirm the program
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param app_id path string true "Application ID"
// @Param request body dto.ProgramConfirmationRequest true "Terms agreement"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 400 {object} dto.ErrorResponse "Terms not accepted"
// @Router /admission/stage4/{app_id}/ [post]
func (c *AdmissionController) SubmitProgramConfirmation(ctx *gin.Context) {
	var req dto.ProgramConfirmationRequest
	if !middleware.BindRequest(ctx, &req, services.MsgAgreeTerms) {
		return
	}

	res, err := c.admissionService.SubmitProgramConfirmation(ctx.Request.Context(), ctx.Param("app_id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Stage completed"))
}

// SubmitPayment captures the stage-5 payment
// @Summary Pay the admission fees
// @Tags admission
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param app_id path string true "Application ID"
// @Param request body dto.PaymentRequest true "Payment method"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 402 {object} dto.ErrorResponse "Payment declined"
// @Router /admission/stage5/{app_id}/ [post]
func (c *AdmissionController) SubmitPayment(ctx *gin.Context) {
	var req dto.PaymentRequest
	if !middleware.BindRequest(ctx, &req, services.MsgRequiredFields) {
		return
	}

	res, err := c.admissionService.SubmitPayment(ctx.Request.Context(), ctx.Param("app_id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "Admission confirmed"
	if res.CurrentStage != models.StageCompleted {
		message = "Payment is being processed"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, message))
}

// PaymentNotification receives gateway callbacks
// @Summary Payment gateway notification
// @Tags admission
// @Accept json
// @Produce json
// @Param request body dto.PaymentNotificationRequest true "Gateway notification"
// @Success 200 {object} dto.APIResponse{data=dto.StageResult}
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Router /admission/payment/notify/ [post]
func (c *AdmissionController) PaymentNotification(ctx *gin.Context) {
	var req dto.PaymentNotificationRequest
	if !middleware.BindRequest(ctx, &req, "") {
		return
	}

	res, err := c.admissionService.HandlePaymentNotification(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, ""))
}

// Confirmation renders the summary of a completed application
// @Summary Admission confirmation
// @Tags admission
// @Produce json
// @Param app_id path string true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmationView}
// @Failure 409 {object} dto.ErrorResponse "Application not completed"
// @Router /admission/confirmation/{app_id}/ [get]
func (c *AdmissionController) Confirmation(ctx *gin.Context) {
	view, err := c.admissionService.Confirmation(ctx.Request.Context(), ctx.Param("app_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view, ""))
}
