package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgpt/admission/internal/app/controllers"
	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	admissionController *controllers.AdmissionController,
	staffController *controllers.StaffController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// --- Applicant pipeline ---
	admission := router.Group("/admission")
	{
		admission.GET("/", admissionController.Catalog)
		admission.GET("/start/", admissionController.StartForm)
		admission.POST("/start/", admissionController.Start)
		admission.POST("/login/", admissionController.Resume)

		submit := []gin.HandlerFunc{
			admissionController.SubmitPersonalInfo,
			admissionController.SubmitEducation,
			admissionController.SubmitProgramSelection,
			admissionController.SubmitProgramConfirmation,
			admissionController.SubmitPayment,
		}
		for i, handler := range submit {
			path := fmt.Sprintf("/stage%d/:app_id/", i+1)
			admission.GET(path, admissionController.ViewStage(i+1))
			admission.POST(path, handler)
		}

		admission.GET("/confirmation/:app_id/", admissionController.Confirmation)
		admission.POST("/payment/notify/", admissionController.PaymentNotification)
	}

	// --- Staff console ---
	v1 := router.Group("/api/v1")
	staff := v1.Group("/staff")
	{
		staff.POST("/login", staffController.Login)

		authenticated := staff.Group("")
		authenticated.Use(authMiddleware.JWTAuth(), authMiddleware.ActiveStaffRequired())
		{
			authenticated.GET("/applications", staffController.ListApplications)
			authenticated.GET("/applications/:app_id", staffController.GetApplication)

			adminOnly := authenticated.Group("")
			adminOnly.Use(authMiddleware.RoleRequired(string(models.RoleAdmin)))
			{
				adminOnly.PUT("/criteria/:program", staffController.UpsertCriteria)
			}
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})
}
