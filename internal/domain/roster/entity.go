// Package roster содержит профили участников школы (ученики, учителя,
// родители, сотрудники), курсы и двусторонние связи между ними.
//
// Инварианты, которые поддерживают функции этого пакета:
//   - ученик в course.Students  ⟺ курс в student.Courses
//   - ученик в parent.Children  ⟺ student.ParentID == parent.ID
//   - курс в teacher.Classes    ⟺ course.TeacherID == teacher.ID
package roster

import (
	"strings"
	"time"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// CourseIDPrefix - префикс последовательных ID курсов (CRS0001).
const CourseIDPrefix = "CRS"

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// Student - профиль ученика. ID совпадает с ID пользователя.
type Student struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	GradeLevel     string    `json:"grade_level,omitempty"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	ParentID       string    `json:"parent_id"`
	Courses        []string  `json:"courses"`
	EnrollmentDate string    `json:"enrollment_date,omitempty"`
	ModifiedAt     time.Time `json:"modified_at"`
	ModifiedBy     string    `json:"modified_by,omitempty"`
}

// IsEnrolledIn возвращает true, если курс есть в списке ученика.
func (s *Student) IsEnrolledIn(courseID string) bool {
	return contains(s.Courses, courseID)
}

// HasParent возвращает true, если ученик привязан к родителю.
func (s *Student) HasParent() bool {
	return s.ParentID != ""
}

func (s *Student) touch(actor string, now time.Time) {
	s.ModifiedAt = now
	s.ModifiedBy = actor
}

// Teacher - профиль учителя.
type Teacher struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Department string    `json:"department,omitempty"`
	Subjects   []string  `json:"subjects,omitempty"`
	Classes    []string  `json:"classes"`
	HireDate   string    `json:"hire_date,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by,omitempty"`
}

// Teaches возвращает true, если курс числится за учителем.
func (t *Teacher) Teaches(courseID string) bool {
	return contains(t.Classes, courseID)
}

func (t *Teacher) touch(actor string, now time.Time) {
	t.ModifiedAt = now
	t.ModifiedBy = actor
}

// Parent - профиль родителя.
type Parent struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Children   []string  `json:"children"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by,omitempty"`
}

func (p *Parent) touch(actor string, now time.Time) {
	p.ModifiedAt = now
	p.ModifiedBy = actor
}

// Staff - профиль сотрудника.
type Staff struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - учебный курс.
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	TeacherID   string    `json:"teacher_id"`
	Students    []string  `json:"students"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	ModifiedBy  string    `json:"modified_by,omitempty"`
}

// NewCourse создаёт курс без учителя и учеников.
func NewCourse(id, name, code, description, actor string, now time.Time) (*Course, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, shared.NewDomainError("roster", "NewCourse", shared.ErrInvalidInput, "course name and code are required")
	}
	return &Course{
		ID:          id,
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(description),
		Students:    []string{},
		CreatedAt:   now,
		ModifiedAt:  now,
		ModifiedBy:  actor,
	}, nil
}

// HasStudent возвращает true, если ученик записан на курс.
func (c *Course) HasStudent(studentID string) bool {
	return contains(c.Students, studentID)
}

// IsTaughtBy возвращает true, если teacherID - ведущий учитель курса.
func (c *Course) IsTaughtBy(teacherID string) bool {
	return teacherID != "" && c.TeacherID == teacherID
}

func (c *Course) touch(actor string, now time.Time) {
	c.ModifiedAt = now
	c.ModifiedBy = actor
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Dedupe убирает повторы и пустые значения, сохраняя порядок.
func Dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
