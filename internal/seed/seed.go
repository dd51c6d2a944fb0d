package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	appModels "github.com/campusgpt/admission/internal/app/models"
	appRepos "github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/auth"
)

// Admin describes the staff account created on first start
type Admin struct {
	Email    string
	Password string
}

var programs = []appModels.Program{
	{Code: "BSCS", Name: "BS Computer Science", DurationSemesters: 8, Description: "Software, systems and theory of computation."},
	{Code: "BSDS", Name: "BS Data Science", DurationSemesters: 8, Description: "Statistics, machine learning and data engineering."},
	{Code: "BSAI", Name: "BS Artificial Intelligence", DurationSemesters: 8, Description: "Learning systems, reasoning and robotics."},
	{Code: "BSCYBERSEC", Name: "BS Cyber Security", DurationSemesters: 8, Description: "Network defence, cryptography and digital forensics."},
	{Code: "BSSE", Name: "BS Software Engineering", DurationSemesters: 8, Description: "Requirements, design and delivery of software products."},
}

var criteria = []appModels.AdmissionCriteria{
	{Program: "BSCS", MinFscMarks: 600, MinFscPercentage: 60, MinMatricPercentage: 50, MinAggregate: 70},
	{Program: "BSDS", MinFscMarks: 650, MinFscPercentage: 65, MinMatricPercentage: 50, MinAggregate: 75},
	{Program: "BSAI", MinFscMarks: 700, MinFscPercentage: 70, MinMatricPercentage: 55, MinAggregate: 80},
	{Program: "BSCYBERSEC", MinFscMarks: 650, MinFscPercentage: 65, MinMatricPercentage: 50, MinAggregate: 75},
	{Program: "BSSE", MinFscMarks: 600, MinFscPercentage: 60, MinMatricPercentage: 50, MinAggregate: 70},
}

func course(semester int, code, title string, credits int) appModels.CurriculumEntry {
	return appModels.CurriculumEntry{Program: "BSCS", Semester: semester, CourseCode: code, CourseTitle: title, Credits: credits}
}

var bscsCurriculum = []appModels.CurriculumEntry{
	course(1, "CS101", "Introduction to Computer Science", 3),
	course(1, "MTH101", "Calculus I", 4),
	course(1, "ENG101", "English Composition", 3),
	course(1, "PHY101", "Physics I", 4),

	course(2, "CS102", "Programming Fundamentals", 4),
	course(2, "MTH102", "Calculus II", 4),
	course(2, "CHM101", "Chemistry I", 3),
	course(2, "CSE101", "Digital Logic Design", 3),

	course(3, "CS201", "Data Structures", 3),
	course(3, "CS202", "Object Oriented Programming", 3),
	course(3, "MTH201", "Linear Algebra", 3),
	course(3, "CS203", "Database Systems", 3),

	course(4, "CS204", "Operating Systems", 3),
	course(4, "CS205", "Web Development", 3),
	course(4, "CS206", "Computer Networks", 3),
	course(4, "CS207", "Software Engineering", 3),

	course(5, "CS301", "Algorithms", 3),
	course(5, "CS302", "Artificial Intelligence", 3),
	course(5, "CS303", "Database Management", 3),
	course(5, "CS304", "Mobile App Development", 3),

	course(6, "CS305", "Machine Learning", 3),
	course(6, "CS306", "Cloud Computing", 3),
	course(6, "CS307", "Cyber Security", 3),
	course(6, "CS308", "Project Management", 3),

	course(7, "CS401", "Advanced Topics", 3),
	course(7, "CS402", "Technical Elective 1", 3),
	course(7, "CS403", "Capstone Project Part 1", 3),
	course(7, "CS404", "Professional Practice", 2),

	course(8, "CS405", "Technical Elective 2", 3),
	course(8, "CS406", "Capstone Project Part 2", 3),
	course(8, "CS407", "Ethics in Computing", 2),
	course(8, "CS408", "Career Development", 1),
}

// CreateDefaultData loads the program catalog, admission criteria, the BSCS
// roadmap and the first admin account. Existing criteria and staff are left
// untouched so edits made from the console survive a restart.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, admin Admin, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (programs, criteria, roadmap, admin)...")

	// Programs first: criteria and curriculum reference them by code.
	for i := range programs {
		if err := repos.Reference.UpsertProgram(ctx, &programs[i]); err != nil {
			return fmt.Errorf("seed program %s: %w", programs[i].Code, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return seedCriteria(gctx, repos.Reference, lgr) })
	g.Go(func() error {
		for i := range bscsCurriculum {
			if err := repos.Reference.UpsertCurriculumEntry(gctx, &bscsCurriculum[i]); err != nil {
				return fmt.Errorf("seed curriculum %s: %w", bscsCurriculum[i].CourseCode, err)
			}
		}
		lgr.Info().Int("courses", len(bscsCurriculum)).Msg("BSCS roadmap seeded")
		return nil
	})
	g.Go(func() error { return seedAdmin(gctx, repos.Staff, admin, lgr) })

	return g.Wait()
}

func seedCriteria(ctx context.Context, repo appRepos.IReferenceRepository, lgr zerolog.Logger) error {
	created := 0
	for i := range criteria {
		existing, err := repo.GetCriteria(ctx, criteria[i].Program)
		if err != nil {
			return fmt.Errorf("seed criteria %s: %w", criteria[i].Program, err)
		}
		if existing != nil {
			continue
		}
		c := criteria[i]
		if err := repo.UpsertCriteria(ctx, &c); err != nil {
			return fmt.Errorf("seed criteria %s: %w", c.Program, err)
		}
		created++
	}
	lgr.Info().Int("created", created).Msg("Admission criteria seeded")
	return nil
}

func seedAdmin(ctx context.Context, repo appRepos.IStaffRepository, admin Admin, lgr zerolog.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		lgr.Warn().Msg("No seed admin configured, skipping")
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = repo.Create(ctx, &appModels.StaffUser{
		Email:        admin.Email,
		PasswordHash: hash,
		FullName:     "Admissions Office",
		Role:         appModels.RoleAdmin,
		IsActive:     true,
	})
	switch {
	case errors.Is(err, apperrors.ErrStaffAlreadyExists):
		lgr.Debug().Str("email", admin.Email).Msg("Admin account already exists")
		return nil
	case err != nil:
		return fmt.Errorf("seed admin: %w", err)
	}
	lgr.Info().Str("email", admin.Email).Msg("Admin account created")
	return nil
}
