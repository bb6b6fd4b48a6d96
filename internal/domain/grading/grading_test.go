package grading

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestLetterBandEdges(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"}, {97, "A+"}, {96.99, "A"},
		{96, "A"}, {93, "A"}, {92.99, "A-"},
		{92, "A-"}, {90, "A-"}, {89, "B+"},
		{87, "B+"}, {86, "B"}, {83, "B"},
		{82, "B-"}, {80, "B-"}, {79, "C+"},
		{77, "C+"}, {76, "C"}, {73, "C"},
		{72, "C-"}, {70, "C-"}, {69, "D+"},
		{67, "D+"}, {66, "D"}, {63, "D"},
		{62, "D-"}, {60, "D-"}, {59, "F"},
		{59.5, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Letter(shared.Percentage(tt.pct)), "%.2f", tt.pct)
	}
}

func TestNewGrade(t *testing.T) {
	g, err := NewGrade("GRD0001", "s1", "C1", "ASN0001", 93, 100, "t1", now)
	require.NoError(t, err)
	assert.Equal(t, 93.0, g.Percentage.Float64())
	assert.Equal(t, "A", g.LetterGrade)

	g, err = NewGrade("GRD0002", "s1", "C1", "ASN0001", 92.99, 100, "t1", now)
	require.NoError(t, err)
	assert.Equal(t, "A-", g.LetterGrade)

	g, err = NewGrade("GRD0003", "s1", "C1", "ASN0001", 29, 50, "t1", now)
	require.NoError(t, err)
	assert.Equal(t, 58.0, g.Percentage.Float64())
}

func TestValidatePoints(t *testing.T) {
	tests := []struct {
		name      string
		points    float64
		maxPoints float64
		want      error
	}{
		{"ok", 5, 10, nil},
		{"zero points", 0, 10, nil},
		{"full marks", 10, 10, nil},
		{"zero max", 0, 0, shared.ErrInvalidAssignment},
		{"negative max checked first", -1, -5, shared.ErrInvalidAssignment},
		{"negative points", -1, 10, shared.ErrValueOutOfRange},
		{"above max", 10.5, 10, shared.ErrValueOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePoints(tt.points, tt.maxPoints)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	_, err := NewAssignment("ASN0001", "C1", "Quiz 1", TypeQuiz, 0, "", "t1", now)
	assert.True(t, errors.Is(err, shared.ErrInvalidAssignment))

	a, err := NewAssignment("ASN0001", "C1", "Quiz 1", TypeQuiz, 20, "2024-03-10", "t1", now)
	require.NoError(t, err)
	assert.Equal(t, AssignmentActive, a.Status)

	require.NoError(t, a.Close(now))
	assert.True(t, a.IsClosed())
	assert.True(t, errors.Is(a.Close(now), shared.ErrInvalidState))
}

func TestParseAssignmentType(t *testing.T) {
	typ, err := ParseAssignmentType("")
	require.NoError(t, err)
	assert.Equal(t, TypeHomework, typ)

	typ, err = ParseAssignmentType(" Exam")
	require.NoError(t, err)
	assert.Equal(t, TypeExam, typ)

	_, err = ParseAssignmentType("essay")
	assert.Error(t, err)
}

func gradeSet() map[string]Grade {
	return map[string]Grade{
		"GRD0001": {ID: "GRD0001", StudentID: "s1", CourseID: "C1", AssignmentID: "A1", Percentage: 90, GradedAt: now.Add(2 * time.Hour)},
		"GRD0002": {ID: "GRD0002", StudentID: "s1", CourseID: "C1", AssignmentID: "A2", Percentage: 80, GradedAt: now},
		"GRD0003": {ID: "GRD0003", StudentID: "s1", CourseID: "C2", AssignmentID: "A3", Percentage: 70, GradedAt: now.Add(time.Hour)},
		"GRD0004": {ID: "GRD0004", StudentID: "s2", CourseID: "C1", AssignmentID: "A1", Percentage: 10, GradedAt: now},
	}
}

func TestComputeCourseAverage(t *testing.T) {
	avg := ComputeCourseAverage(gradeSet(), "s1", "C1")
	assert.Equal(t, 2, avg.GradeCount)
	assert.InDelta(t, 85.0, avg.AveragePercentage.Float64(), 1e-9)
	assert.Equal(t, "B", avg.Letter)

	empty := ComputeCourseAverage(gradeSet(), "s1", "C3")
	assert.Equal(t, 0, empty.GradeCount)
	assert.Zero(t, empty.AveragePercentage)
	assert.Equal(t, NoGradesLetter, empty.Letter)
	assert.False(t, empty.HasGrades())
}

func TestComputeOverallAverageSkipsUngradedCourses(t *testing.T) {
	out := ComputeOverallAverage(gradeSet(), "s1", []string{"C1", "C2", "C3"})
	assert.True(t, out.HasGrades)
	assert.InDelta(t, 77.5, out.AveragePercentage.Float64(), 1e-9)
	assert.Equal(t, "C+", out.Letter)
	assert.Len(t, out.Courses, 3)

	none := ComputeOverallAverage(gradeSet(), "s1", []string{"C3"})
	assert.False(t, none.HasGrades)
	assert.Equal(t, NoGradesLetter, none.Letter)

	none = ComputeOverallAverage(gradeSet(), "s1", nil)
	assert.False(t, none.HasGrades)
}

func TestDuplicatesCountInAverage(t *testing.T) {
	grades := gradeSet()
	grades["GRD0005"] = Grade{ID: "GRD0005", StudentID: "s1", CourseID: "C1", AssignmentID: "A1", Percentage: 100}

	assert.True(t, HasGradeFor(grades, "s1", "A1"))
	assert.False(t, HasGradeFor(grades, "s2", "A2"))

	avg := ComputeCourseAverage(grades, "s1", "C1")
	assert.Equal(t, 3, avg.GradeCount)
	assert.InDelta(t, 90.0, avg.AveragePercentage.Float64(), 1e-9)
}

func TestForStudent(t *testing.T) {
	got := ForStudent(gradeSet(), "s1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"GRD0002", "GRD0003", "GRD0001"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
