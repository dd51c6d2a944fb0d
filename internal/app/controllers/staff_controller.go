package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/services"
	"github.com/campusgpt/admission/internal/middleware"
	"github.com/campusgpt/admission/internal/pkg/helpers"
)

// StaffController serves the admissions office console
type StaffController struct {
	staffService services.StaffService
}

// NewStaffController creates a new StaffController
func NewStaffController(staffService services.StaffService) *StaffController {
	return &StaffController{staffService: staffService}
}

// Login handles staff login
// @Summary Staff login
// @Tags staff
// @Accept json
// @Produce json
// @Param request body dto.StaffLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.StaffLoginResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Account is disabled"
// @Router /staff/login [post]
func (c *StaffController) Login(ctx *gin.Context) {
	var req dto.StaffLoginRequest
	if !middleware.BindRequest(ctx, &req, "") {
		return
	}

	res, err := c.staffService.Login(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Login successful"))
}

// ListApplications lists applications with optional filters
// @Summary List applications
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param stage query string false "Current stage"
// @Param status query string false "Admission status"
// @Param program query string false "Program code"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /staff/applications [get]
func (c *StaffController) ListApplications(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	query := dto.ApplicationListQuery{
		Page:    page,
		Size:    size,
		Stage:   ctx.Query("stage"),
		Status:  ctx.Query("status"),
		Program: strings.ToUpper(ctx.Query("program")),
	}

	res, err := c.staffService.ListApplications(ctx.Request.Context(), &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, ""))
}

// GetApplication returns the full dossier of one application
// @Summary Application dossier
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param app_id path string true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.Dossier}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /staff/applications/{app_id} [get]
func (c *StaffController) GetApplication(ctx *gin.Context) {
	dossier, err := c.staffService.GetDossier(ctx.Request.Context(), ctx.Param("app_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dossier, ""))
}

// UpsertCriteria replaces the admission thresholds of a program
// @Summary Update admission criteria
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param program path string true "Program code"
// @Param request body dto.UpsertCriteriaRequest true "Thresholds"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionCriteria}
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 404 {object} dto.ErrorResponse "Program not found"
// @Router /staff/criteria/{program} [put]
func (c *StaffController) UpsertCriteria(ctx *gin.Context) {
	var req dto.UpsertCriteriaRequest
	if !middleware.BindRequest(ctx, &req, "") {
		return
	}

	criteria, err := c.staffService.UpsertCriteria(ctx.Request.Context(), strings.ToUpper(ctx.Param("program")), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(criteria, "Admission criteria updated"))
}
