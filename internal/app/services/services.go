package services

import (
	"github.com/rs/zerolog"

	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/auth"
	"github.com/campusgpt/admission/internal/pkg/cache"
	"github.com/campusgpt/admission/internal/pkg/filestorage"
	"github.com/campusgpt/admission/internal/pkg/helpers"
	"github.com/campusgpt/admission/internal/pkg/payment"
)

// Dependencies are the collaborators the services are built from
type Dependencies struct {
	Repos       *repositories.Repositories
	Cache       cache.Cache
	Notifier    Notifier
	Gateway     payment.Gateway
	Storage     filestorage.FileStorage
	JWT         *auth.JWTService
	Settings    AdmissionSettings
	EmailDomain string
	Clock       helpers.Clock
	Logger      zerolog.Logger
}

// Services holds all the service instances
type Services struct {
	Admission AdmissionService
	Reference ReferenceService
	Staff     StaffService
}

// NewServices wires the services together
func NewServices(deps Dependencies) *Services {
	clock := deps.Clock
	if clock == nil {
		clock = helpers.SystemClock
	}

	reference := NewReferenceService(deps.Repos.Reference, deps.Cache, deps.Logger)
	credentials := NewCredentialGenerator(deps.EmailDomain, clock)

	return &Services{
		Admission: NewAdmissionService(
			deps.Repos.Admission,
			reference,
			credentials,
			deps.Notifier,
			deps.Gateway,
			deps.Storage,
			deps.Settings,
			clock,
			deps.Logger,
		),
		Reference: reference,
		Staff:     NewStaffService(deps.Repos.Staff, deps.Repos.Admission, reference, deps.JWT, clock, deps.Logger),
	}
}
