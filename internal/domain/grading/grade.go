package grading

import (
	"sort"
	"time"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Grade - оценка ученика за задание. После создания не меняется.
type Grade struct {
	ID           string            `json:"id"`
	StudentID    string            `json:"student_id"`
	CourseID     string            `json:"course_id"`
	AssignmentID string            `json:"assignment_id"`
	Points       float64           `json:"points"`
	MaxPoints    float64           `json:"max_points"`
	Percentage   shared.Percentage `json:"percentage"`
	LetterGrade  string            `json:"letter_grade"`
	GradedBy     string            `json:"graded_by"`
	GradedAt     time.Time         `json:"graded_at"`
}

// ValidatePoints проверяет max_points, затем диапазон points.
func ValidatePoints(points, maxPoints float64) error {
	if maxPoints <= 0 {
		return shared.ErrNonPositiveMaxPoints
	}
	if points < 0 || points > maxPoints {
		return shared.ErrPointsOutOfRange
	}
	return nil
}

// NewGrade считает процент и букву.
func NewGrade(id, studentID, courseID, assignmentID string, points, maxPoints float64, teacherID string, now time.Time) (*Grade, error) {
	if err := ValidatePoints(points, maxPoints); err != nil {
		return nil, err
	}
	pct := shared.Ratio(points, maxPoints)
	return &Grade{
		ID:           id,
		StudentID:    studentID,
		CourseID:     courseID,
		AssignmentID: assignmentID,
		Points:       points,
		MaxPoints:    maxPoints,
		Percentage:   pct,
		LetterGrade:  Letter(pct),
		GradedBy:     teacherID,
		GradedAt:     now,
	}, nil
}

// HasGradeFor ищет оценку ученика за задание.
func HasGradeFor(grades map[string]Grade, studentID, assignmentID string) bool {
	for _, g := range grades {
		if g.StudentID == studentID && g.AssignmentID == assignmentID {
			return true
		}
	}
	return false
}

// ForStudent возвращает оценки ученика по времени выставления.
func ForStudent(grades map[string]Grade, studentID string) []Grade {
	out := make([]Grade, 0)
	for _, g := range grades {
		if g.StudentID == studentID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GradedAt.Equal(out[j].GradedAt) {
			return out[i].GradedAt.Before(out[j].GradedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
