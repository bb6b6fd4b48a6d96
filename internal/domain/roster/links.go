package roster

import (
	"time"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enroll связывает ученика и курс с обеих сторон. Проверка на повтор
// делается по стороне ученика.
func Enroll(s *Student, c *Course, actor string, now time.Time) error {
	if s.IsEnrolledIn(c.ID) {
		return shared.ErrStudentAlreadyEnrolled
	}
	s.Courses = append(s.Courses, c.ID)
	s.touch(actor, now)

	if !c.HasStudent(s.ID) {
		c.Students = append(c.Students, s.ID)
	}
	c.touch(actor, now)
	return nil
}

// Unenroll снимает связь с обеих сторон. Отсутствие ученика в списке курса
// не ошибка: сторона курса чистится, если запись там есть.
func Unenroll(s *Student, c *Course, actor string, now time.Time) error {
	if !s.IsEnrolledIn(c.ID) {
		return shared.ErrStudentNotEnrolled
	}
	s.Courses = without(s.Courses, c.ID)
	s.touch(actor, now)

	c.Students = without(c.Students, s.ID)
	c.touch(actor, now)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PARENT LINKS
// ══════════════════════════════════════════════════════════════════════════════

// ParentLinkResult описывает, какие записи изменились при перепривязке.
type ParentLinkResult struct {
	// Children - итоговый набор детей.
	Children []string
	// Released - ученики, у которых parent_id был сброшен.
	Released []string
	// Students - все изменённые профили учеников.
	Students []*Student
	// FormerParents - другие родители, у которых забрали ребёнка.
	FormerParents []*Parent
}

// RelinkParent заменяет набор детей родителя целиком.
//
// students должен содержать каждого ученика из desired и каждого ученика,
// чей ParentID сейчас равен p.ID. others - профили прежних родителей
// учеников из desired; если прежнего родителя там нет, его сторона не
// обновляется.
func RelinkParent(p *Parent, desired []string, students map[string]*Student, others map[string]*Parent, actor string, now time.Time) (ParentLinkResult, error) {
	desired = Dedupe(desired)
	for _, id := range desired {
		if _, ok := students[id]; !ok {
			return ParentLinkResult{}, shared.Errorf("roster", "LinkParent", shared.ErrNotFound, "student %q not found", id)
		}
	}

	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}

	res := ParentLinkResult{Children: desired}
	changed := make(map[string]bool)

	for _, id := range document.SortedKeys(students) {
		s := students[id]
		if s.ParentID == p.ID && !want[id] {
			s.ParentID = ""
			s.touch(actor, now)
			res.Released = append(res.Released, id)
			changed[id] = true
		}
	}

	touchedParents := make(map[string]bool)
	for _, id := range desired {
		s := students[id]
		if s.ParentID == p.ID {
			continue
		}
		if prev, ok := others[s.ParentID]; ok && prev.ID != p.ID {
			prev.Children = without(prev.Children, id)
			prev.touch(actor, now)
			if !touchedParents[prev.ID] {
				touchedParents[prev.ID] = true
				res.FormerParents = append(res.FormerParents, prev)
			}
		}
		s.ParentID = p.ID
		s.touch(actor, now)
		changed[id] = true
	}

	for _, id := range document.SortedKeys(students) {
		if changed[id] {
			res.Students = append(res.Students, students[id])
		}
	}

	p.Children = desired
	p.touch(actor, now)
	return res, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER ASSIGNMENT
// ══════════════════════════════════════════════════════════════════════════════

// AssignTeacher делает t ведущим учителем курса. Если у курса был другой
// учитель (previous), курс убирается из его списка.
func AssignTeacher(t *Teacher, c *Course, previous *Teacher, actor string, now time.Time) error {
	if t.Teaches(c.ID) {
		return shared.ErrTeacherAlreadyAssigned
	}
	if previous != nil && previous.ID != t.ID {
		previous.Classes = without(previous.Classes, c.ID)
		previous.touch(actor, now)
	}
	t.Classes = append(t.Classes, c.ID)
	t.touch(actor, now)

	c.TeacherID = t.ID
	c.touch(actor, now)
	return nil
}

// UnassignTeacher снимает учителя с курса.
func UnassignTeacher(t *Teacher, c *Course, actor string, now time.Time) error {
	if !t.Teaches(c.ID) {
		return shared.ErrTeacherNotAssigned
	}
	if !c.IsTaughtBy(t.ID) {
		return shared.ErrNotPrimaryTeacher
	}
	t.Classes = without(t.Classes, c.ID)
	t.touch(actor, now)

	c.TeacherID = ""
	c.touch(actor, now)
	return nil
}
