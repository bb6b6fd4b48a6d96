package attendance

import (
	"sort"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// UnknownName is shown for a course or student that no longer exists.
const UnknownName = "Unknown"

// ReportFilter narrows a report. Empty ids match everything.
type ReportFilter struct {
	CourseID  string
	StudentID string
	Window    shared.DateRange
}

// Row is one (session, student) line of a report.
type Row struct {
	Date        shared.Date `json:"date"`
	CourseID    string      `json:"course_id"`
	CourseName  string      `json:"course_name"`
	StudentID   string      `json:"student_id"`
	StudentName string      `json:"student_name"`
	Status      Status      `json:"status"`
}

// Directory resolves display names for report rows.
type Directory struct {
	CourseNames  map[string]string
	StudentNames map[string]string
}

// BuildReport flattens sessions inside the filter window into rows sorted
// by (date, student name). Ties keep session order.
func BuildReport(sessions []*Session, f ReportFilter, dir Directory) []Row {
	ordered := append([]*Session(nil), sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Key() < ordered[j].Key()
	})

	rows := make([]Row, 0)
	for _, s := range ordered {
		if !f.Window.Contains(s.Date) {
			continue
		}
		if f.CourseID != "" && s.CourseID != f.CourseID {
			continue
		}
		for _, r := range s.Students {
			if f.StudentID != "" && r.StudentID != f.StudentID {
				continue
			}
			rows = append(rows, Row{
				Date:        s.Date,
				CourseID:    s.CourseID,
				CourseName:  nameOr(dir.CourseNames, s.CourseID),
				StudentID:   r.StudentID,
				StudentName: nameOr(dir.StudentNames, r.StudentID),
				Status:      r.Status,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].StudentName < rows[j].StudentName
	})
	return rows
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return UnknownName
}

// ResolveWindow validates optional bounds and fills the missing ones:
// start defaults to today-days, end defaults to today. Each bound defaults
// on its own. A window whose start is after its end is returned as is and
// matches no session.
func ResolveWindow(start, end string, today shared.Date, days int) (shared.DateRange, error) {
	def := shared.LastNDays(today, days)
	w := def
	if start != "" {
		d, err := shared.ParseDate(start)
		if err != nil {
			return shared.DateRange{}, shared.WrapError("attendance", "Report", shared.ErrInvalidInput, "invalid start date", err)
		}
		w.From = d
	}
	if end != "" {
		d, err := shared.ParseDate(end)
		if err != nil {
			return shared.DateRange{}, shared.WrapError("attendance", "Report", shared.ErrInvalidInput, "invalid end date", err)
		}
		w.To = d
	}
	return w, nil
}
