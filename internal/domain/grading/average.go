package grading

import "github.com/alem-hub/school-records/internal/domain/shared"

// CourseAverage - средний балл ученика по курсу.
type CourseAverage struct {
	CourseID          string            `json:"course_id"`
	AveragePercentage shared.Percentage `json:"average_percentage"`
	Letter            string            `json:"letter"`
	GradeCount        int               `json:"grade_count"`
}

// HasGrades отличает настоящий 0% от курса без оценок.
func (a CourseAverage) HasGrades() bool {
	return a.GradeCount > 0
}

// ComputeCourseAverage - среднее арифметическое процентов всех оценок
// (studentID, courseID). Без оценок: 0, "N/A", 0.
func ComputeCourseAverage(grades map[string]Grade, studentID, courseID string) CourseAverage {
	avg := CourseAverage{CourseID: courseID, Letter: NoGradesLetter}
	var sum float64
	for _, g := range grades {
		if g.StudentID != studentID || g.CourseID != courseID {
			continue
		}
		sum += g.Percentage.Float64()
		avg.GradeCount++
	}
	if avg.GradeCount == 0 {
		return avg
	}
	avg.AveragePercentage = shared.Percentage(sum / float64(avg.GradeCount))
	avg.Letter = Letter(avg.AveragePercentage)
	return avg
}

// OverallAverage - среднее по курсам, в которых есть оценки.
type OverallAverage struct {
	AveragePercentage shared.Percentage `json:"average_percentage"`
	Letter            string            `json:"letter"`
	HasGrades         bool              `json:"has_grades"`
	Courses           []CourseAverage   `json:"courses"`
}

// ComputeOverallAverage усредняет средние по курсам. Курсы без оценок
// в среднее не входят; если оценок нет нигде, HasGrades = false.
func ComputeOverallAverage(grades map[string]Grade, studentID string, courseIDs []string) OverallAverage {
	out := OverallAverage{Letter: NoGradesLetter, Courses: make([]CourseAverage, 0, len(courseIDs))}
	var sum float64
	var n int
	for _, id := range courseIDs {
		ca := ComputeCourseAverage(grades, studentID, id)
		out.Courses = append(out.Courses, ca)
		if !ca.HasGrades() {
			continue
		}
		sum += ca.AveragePercentage.Float64()
		n++
	}
	if n == 0 {
		return out
	}
	out.HasGrades = true
	out.AveragePercentage = shared.Percentage(sum / float64(n))
	out.Letter = Letter(out.AveragePercentage)
	return out
}
