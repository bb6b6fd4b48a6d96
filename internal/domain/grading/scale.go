// Package grading содержит задания, оценки, шкалу буквенных оценок и
// расчёт средних баллов по курсу и в целом.
package grading

import "github.com/alem-hub/school-records/internal/domain/shared"

// NoGradesLetter - буква для курса без оценок. В шкале не ищется.
const NoGradesLetter = "N/A"

// Band - одна ступень шкалы. Нижняя граница включительная.
type Band struct {
	Letter string
	Min    float64
}

// Scale - фиксированная шкала по убыванию. Проверяется сверху вниз,
// побеждает первая подходящая ступень, поэтому 92.99 даёт A-.
var Scale = []Band{
	{"A+", 97},
	{"A", 93},
	{"A-", 90},
	{"B+", 87},
	{"B", 83},
	{"B-", 80},
	{"C+", 77},
	{"C", 73},
	{"C-", 70},
	{"D+", 67},
	{"D", 63},
	{"D-", 60},
	{"F", 0},
}

// Letter возвращает буквенную оценку для процента. По умолчанию F.
func Letter(p shared.Percentage) string {
	for _, b := range Scale {
		if p.Float64() >= b.Min {
			return b.Letter
		}
	}
	return "F"
}
