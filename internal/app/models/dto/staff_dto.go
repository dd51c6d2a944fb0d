package dto

import "github.com/campusgpt/admission/internal/app/models"

// StaffLoginRequest represents staff login request
type StaffLoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email" example:"admin@superior.edu.pk"`
	Password string `json:"password" form:"password" validate:"required,min=6" example:"Admin123!"`
}

// StaffLoginResponse carries the access token issued at login
type StaffLoginResponse struct {
	AccessToken string            `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIs..."`
	TokenType   string            `json:"tokenType" example:"Bearer"`
	ExpiresIn   int               `json:"expiresIn" example:"28800"`
	Staff       *models.StaffUser `json:"staff"`
}

// UpsertCriteriaRequest replaces a program's admission thresholds
type UpsertCriteriaRequest struct {
	MinFscMarks         *float64 `json:"min_fsc_marks" validate:"required,gte=0,lte=1100" example:"600"`
	MinFscPercentage    *float64 `json:"min_fsc_percentage" validate:"required,gte=0,lte=100" example:"60"`
	MinMatricPercentage *float64 `json:"min_matric_percentage" validate:"required,gte=0,lte=100" example:"50"`
	MinAggregate        *float64 `json:"min_aggregate" validate:"required,gte=0,lte=100" example:"70"`
}

// ApplicationListQuery holds the staff listing filters
type ApplicationListQuery struct {
	Page    int    `form:"page"`
	Size    int    `form:"size"`
	Stage   string `form:"stage"`
	Status  string `form:"status"`
	Program string `form:"program"`
}
