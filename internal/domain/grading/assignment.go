package grading

import (
	"strings"
	"time"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ID префиксы.
const (
	AssignmentIDPrefix = "ASN"
	GradeIDPrefix      = "GRD"
)

// AssignmentStatus - состояние задания.
type AssignmentStatus string

const (
	AssignmentActive AssignmentStatus = "active"
	AssignmentClosed AssignmentStatus = "closed"
)

// AssignmentType - вид работы.
type AssignmentType string

const (
	TypeHomework AssignmentType = "homework"
	TypeQuiz     AssignmentType = "quiz"
	TypeExam     AssignmentType = "exam"
	TypeProject  AssignmentType = "project"
	TypeOther    AssignmentType = "other"
)

// ParseAssignmentType нормализует тип. Пустая строка даёт homework.
func ParseAssignmentType(value string) (AssignmentType, error) {
	t := AssignmentType(strings.ToLower(strings.TrimSpace(value)))
	switch t {
	case "":
		return TypeHomework, nil
	case TypeHomework, TypeQuiz, TypeExam, TypeProject, TypeOther:
		return t, nil
	}
	return "", shared.Errorf("grading", "ParseAssignmentType", shared.ErrInvalidAssignment, "unknown assignment type %q", value)
}

// Assignment - задание курса.
type Assignment struct {
	ID        string           `json:"id"`
	CourseID  string           `json:"course_id"`
	Name      string           `json:"name"`
	Type      AssignmentType   `json:"type"`
	MaxPoints float64          `json:"max_points"`
	DueDate   shared.Date      `json:"due_date,omitempty"`
	Status    AssignmentStatus `json:"status"`
	CreatedBy string           `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	ClosedAt  *time.Time       `json:"closed_at,omitempty"`
}

// NewAssignment создаёт активное задание.
func NewAssignment(id, courseID, name string, typ AssignmentType, maxPoints float64, due shared.Date, teacherID string, now time.Time) (*Assignment, error) {
	if maxPoints <= 0 {
		return nil, shared.ErrNonPositiveMaxPoints
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("grading", "NewAssignment", shared.ErrInvalidInput, "assignment name is required")
	}
	return &Assignment{
		ID:        id,
		CourseID:  courseID,
		Name:      name,
		Type:      typ,
		MaxPoints: maxPoints,
		DueDate:   due,
		Status:    AssignmentActive,
		CreatedBy: teacherID,
		CreatedAt: now,
	}, nil
}

// IsClosed возвращает true для закрытого задания.
func (a *Assignment) IsClosed() bool {
	return a.Status == AssignmentClosed
}

// Close закрывает задание. Повторное закрытие - ошибка состояния.
func (a *Assignment) Close(now time.Time) error {
	if a.IsClosed() {
		return shared.Errorf("grading", "CloseAssignment", shared.ErrInvalidState, "assignment %s is already closed", a.ID)
	}
	a.Status = AssignmentClosed
	a.ClosedAt = &now
	return nil
}
