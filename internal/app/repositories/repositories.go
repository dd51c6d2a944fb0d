package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	Admission IAdmissionRepository
	Reference IReferenceRepository
	Staff     IStaffRepository
}

// NewRepositories initializes the PostgreSQL repositories
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Admission: NewAdmissionRepository(pool),
		Reference: NewReferenceRepository(pool),
		Staff:     NewStaffRepository(pool),
	}
}
