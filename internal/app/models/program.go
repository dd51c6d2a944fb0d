package models

import (
	"sort"
	"time"
)

// Program is an entry of the degree catalog
type Program struct {
	Code              string `json:"code" db:"code" example:"BSCS"`
	Name              string `json:"name" db:"name" example:"BS Computer Science"`
	DurationSemesters int    `json:"durationSemesters" db:"duration_semesters" example:"8"`
	Description       string `json:"description" db:"description"`
}

// AdmissionCriteria holds the minimum thresholds for one program
type AdmissionCriteria struct {
	Program             string    `json:"program" db:"program" example:"BSCS"`
	MinFscMarks         float64   `json:"minFscMarks" db:"min_fsc_marks" example:"600"`
	MinFscPercentage    float64   `json:"minFscPercentage" db:"min_fsc_percentage" example:"60"`
	MinMatricPercentage float64   `json:"minMatricPercentage" db:"min_matric_percentage" example:"50"`
	MinAggregate        float64   `json:"minAggregate" db:"min_aggregate" example:"70"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// CurriculumEntry is one course of a program's roadmap
type CurriculumEntry struct {
	Program     string `json:"program" db:"program"`
	Semester    int    `json:"semester" db:"semester"`
	CourseCode  string `json:"courseCode" db:"course_code"`
	CourseTitle string `json:"courseTitle" db:"course_title"`
	Credits     int    `json:"credits" db:"credits"`
}

// RoadmapCourse is a course line inside a roadmap semester
type RoadmapCourse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Credits int    `json:"credits"`
}

// RoadmapSemester groups the courses taught in one semester
type RoadmapSemester struct {
	Semester int             `json:"semester"`
	Courses  []RoadmapCourse `json:"courses"`
	Credits  int             `json:"credits"`
}

// BuildRoadmap groups curriculum entries by semester in ascending order.
// Courses keep their code order within a semester.
func BuildRoadmap(entries []CurriculumEntry) []RoadmapSemester {
	bySemester := make(map[int]*RoadmapSemester)
	for _, e := range entries {
		sem, ok := bySemester[e.Semester]
		if !ok {
			sem = &RoadmapSemester{Semester: e.Semester}
			bySemester[e.Semester] = sem
		}
		sem.Courses = append(sem.Courses, RoadmapCourse{Code: e.CourseCode, Title: e.CourseTitle, Credits: e.Credits})
		sem.Credits += e.Credits
	}

	roadmap := make([]RoadmapSemester, 0, len(bySemester))
	for _, sem := range bySemester {
		sort.Slice(sem.Courses, func(i, j int) bool { return sem.Courses[i].Code < sem.Courses[j].Code })
		roadmap = append(roadmap, *sem)
	}
	sort.Slice(roadmap, func(i, j int) bool { return roadmap[i].Semester < roadmap[j].Semester })
	return roadmap
}

// RoadmapCredits sums the credits of a roadmap
func RoadmapCredits(roadmap []RoadmapSemester) int {
	total := 0
	for _, s := range roadmap {
		total += s.Credits
	}
	return total
}
