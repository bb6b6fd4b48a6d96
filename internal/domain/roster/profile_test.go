package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentEdit(t *testing.T) {
	s := newStudent("S1")
	s.GradeLevel = "9"

	changed := s.Edit(ProfileEdit{GradeLevel: " 9 ", DateOfBirth: "2010-05-01", Department: "ignored"}, "admin", now)
	assert.Equal(t, []string{"date_of_birth"}, changed)
	assert.Equal(t, "9", s.GradeLevel)
	assert.Equal(t, "admin", s.ModifiedBy)

	assert.Empty(t, s.Edit(ProfileEdit{}, "other", now))
	assert.Equal(t, "admin", s.ModifiedBy)
}

func TestTeacherEditKeepsClasses(t *testing.T) {
	tc := &Teacher{ID: "T1", Subjects: []string{"Math"}, Classes: []string{"CRS0001"}}

	assert.Empty(t, tc.Edit(ProfileEdit{Subjects: []string{"Math", " Math"}}, "admin", now))
	changed := tc.Edit(ProfileEdit{Department: "Science", Subjects: []string{"Physics", "Math", "Physics"}}, "admin", now)
	assert.Equal(t, []string{"department", "subjects"}, changed)
	assert.Equal(t, []string{"Physics", "Math"}, tc.Subjects)
	assert.Equal(t, []string{"CRS0001"}, tc.Classes)
}

func TestDirectoryPredicates(t *testing.T) {
	s := &Student{GradeLevel: "10B"}
	assert.True(t, s.InGrade(" 10b"))
	assert.False(t, s.InGrade("10"))

	tc := &Teacher{Department: "Science", Subjects: []string{"Physics"}}
	assert.True(t, tc.InDepartment("science"))
	assert.True(t, tc.TeachesSubject("PHYSICS"))
	assert.False(t, tc.TeachesSubject("Chemistry"))

	st := &Staff{Department: "Facilities", Position: "Caretaker"}
	assert.True(t, st.InDepartment("facilities"))
	assert.True(t, st.HoldsPosition("caretaker "))
	assert.Empty(t, st.Edit(ProfileEdit{Position: "Caretaker"}, "admin", now))
}
