package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER QUERIES
// Обход связей ученик-курс и родитель-ребёнок. Ссылки на удалённые записи
// пропускаются.
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO - краткая карточка курса.
type CourseDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	TeacherID    string `json:"teacher_id"`
	StudentCount int    `json:"student_count"`
}

// CourseRosterDTO - курс и его ученики.
type CourseRosterDTO struct {
	Course   CourseDTO   `json:"course"`
	Students []MemberDTO `json:"students"`
}

// RosterQueryHandler отвечает на запросы о составе курсов и семей.
type RosterQueryHandler struct {
	store document.Store
}

// NewRosterQueryHandler создаёт новый обработчик.
func NewRosterQueryHandler(store document.Store) *RosterQueryHandler {
	return &RosterQueryHandler{store: store}
}

// Courses возвращает все курсы по ID.
func (h *RosterQueryHandler) Courses(ctx context.Context) ([]CourseDTO, error) {
	var out []CourseDTO
	err := h.store.View(ctx, func(tx document.Tx) error {
		courses, err := document.All[roster.Course](tx, document.Courses)
		if err != nil {
			return err
		}
		out = make([]CourseDTO, 0, len(courses))
		for _, id := range document.SortedKeys(courses) {
			out = append(out, courseDTO(courses[id]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("courses: %w", err)
	}
	return out, nil
}

// StudentCourses возвращает курсы ученика в порядке записи.
func (h *RosterQueryHandler) StudentCourses(ctx context.Context, studentID string) ([]CourseDTO, error) {
	var out []CourseDTO
	err := h.store.View(ctx, func(tx document.Tx) error {
		student, ok, err := document.Find[roster.Student](tx, document.Students, studentID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.Errorf("roster", "StudentCourses", shared.ErrNotFound, "student %q not found", studentID)
		}
		out = make([]CourseDTO, 0, len(student.Courses))
		for _, id := range student.Courses {
			c, ok, err := document.Find[roster.Course](tx, document.Courses, id)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, courseDTO(c))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("student_courses: %w", err)
	}
	return out, nil
}

// CourseRoster возвращает учеников курса, отсортированных по имени.
func (h *RosterQueryHandler) CourseRoster(ctx context.Context, courseID string) (*CourseRosterDTO, error) {
	var dto CourseRosterDTO
	err := h.store.View(ctx, func(tx document.Tx) error {
		course, ok, err := document.Find[roster.Course](tx, document.Courses, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.Errorf("roster", "CourseRoster", shared.ErrNotFound, "course %q not found", courseID)
		}
		dto.Course = courseDTO(course)
		dto.Students, err = members(tx, course.Students)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("course_roster: %w", err)
	}
	return &dto, nil
}

// ParentChildren возвращает детей родителя, отсортированных по имени.
func (h *RosterQueryHandler) ParentChildren(ctx context.Context, parentID string) ([]MemberDTO, error) {
	var out []MemberDTO
	err := h.store.View(ctx, func(tx document.Tx) error {
		parent, ok, err := document.Find[roster.Parent](tx, document.Parents, parentID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.Errorf("roster", "ParentChildren", shared.ErrNotFound, "parent %q not found", parentID)
		}
		out, err = members(tx, parent.Children)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("parent_children: %w", err)
	}
	return out, nil
}

// members превращает ID учеников в карточки с именами.
func members(tx document.Tx, studentIDs []string) ([]MemberDTO, error) {
	users, err := document.All[identity.User](tx, document.Users)
	if err != nil {
		return nil, err
	}
	out := make([]MemberDTO, 0, len(studentIDs))
	for _, id := range studentIDs {
		s, ok, err := document.Find[roster.Student](tx, document.Students, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, memberOf(s.ID, s.Username, users))
	}
	sortMembers(out)
	return out, nil
}

func courseDTO(c roster.Course) CourseDTO {
	return CourseDTO{
		ID:           c.ID,
		Name:         c.Name,
		Code:         c.Code,
		TeacherID:    c.TeacherID,
		StudentCount: len(c.Students),
	}
}
