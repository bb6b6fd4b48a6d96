package roster

import (
	"slices"
	"strings"
	"time"
)

// ProfileEdit - новые значения профильных полей. Пустая строка (или nil для
// Subjects) оставляет текущее значение. Связи (курсы, дети, классы) здесь не
// меняются: ими владеют функции links.go.
type ProfileEdit struct {
	GradeLevel  string
	DateOfBirth string
	Department  string
	Subjects    []string
	HireDate    string
	Position    string
}

// fieldSet копит имена изменённых полей.
type fieldSet []string

func (f *fieldSet) set(name string, dst *string, v string) {
	v = strings.TrimSpace(v)
	if v == "" || v == *dst {
		return
	}
	*dst = v
	*f = append(*f, name)
}

// Edit применяет изменения и возвращает имена изменённых полей.
func (s *Student) Edit(e ProfileEdit, actor string, now time.Time) []string {
	var changed fieldSet
	changed.set("grade_level", &s.GradeLevel, e.GradeLevel)
	changed.set("date_of_birth", &s.DateOfBirth, e.DateOfBirth)
	if len(changed) > 0 {
		s.touch(actor, now)
	}
	return changed
}

// Edit применяет изменения и возвращает имена изменённых полей.
func (t *Teacher) Edit(e ProfileEdit, actor string, now time.Time) []string {
	var changed fieldSet
	changed.set("department", &t.Department, e.Department)
	changed.set("hire_date", &t.HireDate, e.HireDate)
	if subjects := Dedupe(e.Subjects); len(subjects) > 0 && !slices.Equal(subjects, t.Subjects) {
		t.Subjects = subjects
		changed = append(changed, "subjects")
	}
	if len(changed) > 0 {
		t.touch(actor, now)
	}
	return changed
}

// Edit применяет изменения и возвращает имена изменённых полей.
func (s *Staff) Edit(e ProfileEdit, actor string, now time.Time) []string {
	var changed fieldSet
	changed.set("department", &s.Department, e.Department)
	changed.set("position", &s.Position, e.Position)
	if len(changed) > 0 {
		s.ModifiedAt = now
		s.ModifiedBy = actor
	}
	return changed
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// Сравнение без учёта регистра и крайних пробелов.
// ══════════════════════════════════════════════════════════════════════════════

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// InGrade возвращает true, если ученик учится в классе grade.
func (s *Student) InGrade(grade string) bool {
	return sameText(s.GradeLevel, grade)
}

// InDepartment возвращает true для учителя кафедры department.
func (t *Teacher) InDepartment(department string) bool {
	return sameText(t.Department, department)
}

// TeachesSubject возвращает true, если предмет есть в списке учителя.
func (t *Teacher) TeachesSubject(subject string) bool {
	return slices.ContainsFunc(t.Subjects, func(s string) bool { return sameText(s, subject) })
}

// InDepartment возвращает true для сотрудника отдела department.
func (s *Staff) InDepartment(department string) bool {
	return sameText(s.Department, department)
}

// HoldsPosition возвращает true для сотрудника на должности position.
func (s *Staff) HoldsPosition(position string) bool {
	return sameText(s.Position, position)
}
