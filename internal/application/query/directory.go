package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// Поиск профилей по атрибуту: класс, кафедра, предмет, должность.
// Сравнение без учёта регистра, результат отсортирован по имени.
// ══════════════════════════════════════════════════════════════════════════════

// StudentsByGrade возвращает учеников класса grade.
func (h *RosterQueryHandler) StudentsByGrade(ctx context.Context, grade string) ([]MemberDTO, error) {
	return lookup(ctx, h.store, "students_by_grade", "grade", grade, document.Students,
		func(s roster.Student) (string, string, bool) { return s.ID, s.Username, s.InGrade(grade) })
}

// TeachersByDepartment возвращает учителей кафедры.
func (h *RosterQueryHandler) TeachersByDepartment(ctx context.Context, department string) ([]MemberDTO, error) {
	return lookup(ctx, h.store, "teachers_by_department", "department", department, document.Teachers,
		func(t roster.Teacher) (string, string, bool) { return t.ID, t.Username, t.InDepartment(department) })
}

// TeachersBySubject возвращает учителей, ведущих предмет.
func (h *RosterQueryHandler) TeachersBySubject(ctx context.Context, subject string) ([]MemberDTO, error) {
	return lookup(ctx, h.store, "teachers_by_subject", "subject", subject, document.Teachers,
		func(t roster.Teacher) (string, string, bool) { return t.ID, t.Username, t.TeachesSubject(subject) })
}

// StaffByDepartment возвращает сотрудников отдела.
func (h *RosterQueryHandler) StaffByDepartment(ctx context.Context, department string) ([]MemberDTO, error) {
	return lookup(ctx, h.store, "staff_by_department", "department", department, document.Staff,
		func(s roster.Staff) (string, string, bool) { return s.ID, s.Username, s.InDepartment(department) })
}

// StaffByPosition возвращает сотрудников на должности.
func (h *RosterQueryHandler) StaffByPosition(ctx context.Context, position string) ([]MemberDTO, error) {
	return lookup(ctx, h.store, "staff_by_position", "position", position, document.Staff,
		func(s roster.Staff) (string, string, bool) { return s.ID, s.Username, s.HoldsPosition(position) })
}

// lookup перебирает коллекцию профилей и собирает подходящие.
func lookup[T any](ctx context.Context, store document.Store, op, field, value, collection string,
	match func(T) (id, username string, ok bool)) ([]MemberDTO, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s: %w", op,
			shared.Errorf("roster", "Directory", shared.ErrInvalidInput, "%s is required", field))
	}

	var out []MemberDTO
	err := store.View(ctx, func(tx document.Tx) error {
		profiles, err := document.All[T](tx, collection)
		if err != nil {
			return err
		}
		users, err := document.All[identity.User](tx, document.Users)
		if err != nil {
			return err
		}
		out = make([]MemberDTO, 0)
		for _, p := range profiles {
			if id, username, ok := match(p); ok {
				out = append(out, memberOf(id, username, users))
			}
		}
		sortMembers(out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
