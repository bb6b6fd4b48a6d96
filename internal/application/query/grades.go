package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/grading"
	"github.com/alem-hub/school-records/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE QUERIES
// Средние по курсу и общие средние считаются по сохранённым процентам,
// буква выводится заново по шкале.
// ══════════════════════════════════════════════════════════════════════════════

// OverallAverageQuery - общий средний балл. Пустой список курсов означает
// все курсы, на которые записан ученик.
type OverallAverageQuery struct {
	StudentID string
	CourseIDs []string
}

// GradeQueryHandler отвечает на запросы об оценках.
type GradeQueryHandler struct {
	store document.Store
}

// NewGradeQueryHandler создаёт новый обработчик.
func NewGradeQueryHandler(store document.Store) *GradeQueryHandler {
	return &GradeQueryHandler{store: store}
}

// CourseAverage возвращает средний процент ученика по курсу.
func (h *GradeQueryHandler) CourseAverage(ctx context.Context, studentID, courseID string) (grading.CourseAverage, error) {
	grades, err := h.grades(ctx)
	if err != nil {
		return grading.CourseAverage{}, fmt.Errorf("course_average: %w", err)
	}
	return grading.ComputeCourseAverage(grades, studentID, courseID), nil
}

// OverallAverage возвращает среднее по курсам, где есть оценки.
func (h *GradeQueryHandler) OverallAverage(ctx context.Context, q OverallAverageQuery) (grading.OverallAverage, error) {
	var grades map[string]grading.Grade
	courseIDs := q.CourseIDs
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		if grades, err = document.All[grading.Grade](tx, document.Grades); err != nil {
			return err
		}
		if len(courseIDs) > 0 {
			return nil
		}
		student, ok, err := document.Find[roster.Student](tx, document.Students, q.StudentID)
		if err != nil || !ok {
			return err
		}
		courseIDs = student.Courses
		return nil
	})
	if err != nil {
		return grading.OverallAverage{}, fmt.Errorf("overall_average: %w", err)
	}
	return grading.ComputeOverallAverage(grades, q.StudentID, roster.Dedupe(courseIDs)), nil
}

// StudentGrades возвращает оценки ученика по времени выставления.
func (h *GradeQueryHandler) StudentGrades(ctx context.Context, studentID string) ([]grading.Grade, error) {
	grades, err := h.grades(ctx)
	if err != nil {
		return nil, fmt.Errorf("student_grades: %w", err)
	}
	return grading.ForStudent(grades, studentID), nil
}

// Assignments возвращает задания курса по ID.
func (h *GradeQueryHandler) Assignments(ctx context.Context, courseID string) ([]grading.Assignment, error) {
	var all map[string]grading.Assignment
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		all, err = document.All[grading.Assignment](tx, document.Assignments)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	out := make([]grading.Assignment, 0)
	for _, id := range document.SortedKeys(all) {
		if courseID == "" || all[id].CourseID == courseID {
			out = append(out, all[id])
		}
	}
	return out, nil
}

func (h *GradeQueryHandler) grades(ctx context.Context) (map[string]grading.Grade, error) {
	var grades map[string]grading.Grade
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		grades, err = document.All[grading.Grade](tx, document.Grades)
		return err
	})
	return grades, err
}
