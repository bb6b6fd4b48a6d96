package attendance

import (
	"sort"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Stats are attendance counts for one student.
type Stats struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	AbsentDays  int `json:"absent_days"`
	LateDays    int `json:"late_days"`
	ExcusedDays int `json:"excused_days"`

	PresentPercentage shared.Percentage `json:"present_percentage"`
	AbsentPercentage  shared.Percentage `json:"absent_percentage"`
	LatePercentage    shared.Percentage `json:"late_percentage"`
	ExcusedPercentage shared.Percentage `json:"excused_percentage"`
}

// ComputeStats counts the sessions that contain studentID. An empty
// courseID means every course. Percentages are 0 when there are no sessions.
func ComputeStats(sessions []*Session, studentID, courseID string) Stats {
	var st Stats
	for _, s := range sessions {
		if courseID != "" && s.CourseID != courseID {
			continue
		}
		status, ok := s.StatusOf(studentID)
		if !ok {
			continue
		}
		st.TotalDays++
		switch status {
		case StatusPresent:
			st.PresentDays++
		case StatusAbsent:
			st.AbsentDays++
		case StatusLate:
			st.LateDays++
		case StatusExcused:
			st.ExcusedDays++
		}
	}

	total := float64(st.TotalDays)
	st.PresentPercentage = shared.Ratio(float64(st.PresentDays), total)
	st.AbsentPercentage = shared.Ratio(float64(st.AbsentDays), total)
	st.LatePercentage = shared.Ratio(float64(st.LateDays), total)
	st.ExcusedPercentage = shared.Ratio(float64(st.ExcusedDays), total)
	return st
}

// HistoryEntry is one line of a student's attendance timeline.
type HistoryEntry struct {
	Date       shared.Date `json:"date"`
	CourseID   string      `json:"course_id"`
	CourseName string      `json:"course_name"`
	Status     Status      `json:"status"`
}

// History returns the sessions of one student inside window, sorted by date.
func History(sessions []*Session, studentID string, window shared.DateRange, courseNames map[string]string) []HistoryEntry {
	out := make([]HistoryEntry, 0)
	for _, s := range sessions {
		if !window.Contains(s.Date) {
			continue
		}
		status, ok := s.StatusOf(studentID)
		if !ok {
			continue
		}
		out = append(out, HistoryEntry{
			Date:       s.Date,
			CourseID:   s.CourseID,
			CourseName: nameOr(courseNames, s.CourseID),
			Status:     status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}
