package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

var now = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("EVT0001", Details{
		Title:      " Spring exams ",
		Kind:       "EXAM",
		StartDate:  "2024-05-20",
		StartTime:  "9:00",
		EndTime:    "12:30",
		Visibility: []string{"Student", "teacher", "student"},
	}, "admin", now)
	require.NoError(t, err)

	assert.Equal(t, "Spring exams", e.Title)
	assert.Equal(t, KindExam, e.Kind)
	assert.Equal(t, shared.Date("2024-05-20"), e.EndDate)
	assert.Equal(t, "09:00", e.StartTime)
	assert.Equal(t, []string{"student", "teacher"}, e.Visibility)
	assert.False(t, e.IsCancelled)
}

func TestNewEventRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		kind    error
	}{
		{"no title", Details{StartDate: "2024-05-20"}, shared.ErrInvalidInput},
		{"no start date", Details{Title: "Fair"}, shared.ErrInvalidInput},
		{"bad date", Details{Title: "Fair", StartDate: "20/05/2024"}, shared.ErrInvalidFormat},
		{"bad time", Details{Title: "Fair", StartDate: "2024-05-20", StartTime: "25:00"}, shared.ErrInvalidFormat},
		{"bad type", Details{Title: "Fair", StartDate: "2024-05-20", Kind: "party"}, shared.ErrInvalidInput},
		{"bad role", Details{Title: "Fair", StartDate: "2024-05-20", Visibility: []string{"pending"}}, shared.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvent("EVT0001", tt.details, "admin", now)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestUpdateKeepsBlankFields(t *testing.T) {
	e, err := NewEvent("EVT0001", Details{Title: "Meeting", StartDate: "2024-04-01", Location: "Hall"}, "admin", now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, e.Update(Details{StartDate: "2024-04-02", Visibility: []string{"parent"}}, "admin2", later))
	assert.Equal(t, "Meeting", e.Title)
	assert.Equal(t, "Hall", e.Location)
	assert.Equal(t, shared.Date("2024-04-02"), e.StartDate)
	assert.Equal(t, []string{"parent"}, e.Visibility)
	assert.Equal(t, "admin2", e.ModifiedBy)

	// a failed edit leaves the event as it was
	assert.Error(t, e.Update(Details{Title: "Renamed", EndTime: "noon"}, "admin2", later))
	assert.Equal(t, "Meeting", e.Title)
}

func TestCancel(t *testing.T) {
	e, err := NewEvent("EVT0001", Details{Title: "Trip", StartDate: "2024-04-01"}, "admin", now)
	require.NoError(t, err)

	require.NoError(t, e.Cancel("admin", now))
	assert.True(t, e.IsCancelled)
	assert.ErrorIs(t, e.Cancel("admin", now), shared.ErrInvalidState)
	assert.ErrorIs(t, e.Update(Details{Title: "Trip 2"}, "admin", now), shared.ErrEventCancelled)
}

func TestUpcoming(t *testing.T) {
	events := []Event{
		{ID: "EVT0001", Title: "past", StartDate: "2024-03-01"},
		{ID: "EVT0002", Title: "staff only", StartDate: "2024-03-20", Visibility: []string{"staff"}},
		{ID: "EVT0003", Title: "afternoon", StartDate: "2024-03-15", StartTime: "14:00"},
		{ID: "EVT0004", Title: "morning", StartDate: "2024-03-15", StartTime: "08:00", Visibility: []string{"all"}},
		{ID: "EVT0005", Title: "cancelled", StartDate: "2024-03-16", IsCancelled: true},
		{ID: "EVT0006", Title: "students", StartDate: "2024-03-18", Visibility: []string{"student"}},
	}

	var titles []string
	for _, e := range Upcoming(events, identity.RoleStudent, "2024-03-15", 0) {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"morning", "afternoon", "students"}, titles)

	assert.Len(t, Upcoming(events, identity.RoleStaff, "2024-03-15", 2), 2)
	assert.Len(t, Active(events), 5)
}
