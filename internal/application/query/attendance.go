package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE QUERIES
// Статистика, отчёты за период и история посещаемости ученика.
// Окно отчёта по умолчанию - последние windowDays дней включительно,
// в часовом поясе школы.
// ══════════════════════════════════════════════════════════════════════════════

// StatsQuery - статистика ученика, опционально по одному курсу.
type StatsQuery struct {
	StudentID string
	CourseID  string
}

// ReportQuery - отчёт за период. Пустые поля не фильтруют.
type ReportQuery struct {
	CourseID  string
	StudentID string

	// StartDate и EndDate - YYYY-MM-DD; каждая граница по умолчанию своя.
	StartDate string
	EndDate   string
}

// ReportDTO - строки отчёта и фактическое окно.
type ReportDTO struct {
	Window shared.DateRange `json:"window"`
	Rows   []attendance.Row `json:"rows"`
}

// HistoryQuery - хронология одного ученика.
type HistoryQuery struct {
	StudentID string
	StartDate string
	EndDate   string
}

// AttendanceQueryHandler отвечает на запросы о посещаемости.
type AttendanceQueryHandler struct {
	store      document.Store
	clock      Clock
	windowDays int
}

// NewAttendanceQueryHandler создаёт новый обработчик.
func NewAttendanceQueryHandler(store document.Store, clock Clock, windowDays int) *AttendanceQueryHandler {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &AttendanceQueryHandler{store: store, clock: clock, windowDays: windowDays}
}

// Stats считает посещаемость ученика. Несуществующий ученик не ошибка:
// у него просто нет занятий.
func (h *AttendanceQueryHandler) Stats(ctx context.Context, q StatsQuery) (attendance.Stats, error) {
	var sessions []*attendance.Session
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		sessions, err = loadSessions(tx)
		return err
	})
	if err != nil {
		return attendance.Stats{}, fmt.Errorf("attendance_stats: %w", err)
	}
	return attendance.ComputeStats(sessions, q.StudentID, q.CourseID), nil
}

// Report строит отчёт за период.
func (h *AttendanceQueryHandler) Report(ctx context.Context, q ReportQuery) (*ReportDTO, error) {
	window, err := attendance.ResolveWindow(q.StartDate, q.EndDate, today(h.clock), h.windowDays)
	if err != nil {
		return nil, fmt.Errorf("attendance_report: %w", err)
	}

	var (
		sessions []*attendance.Session
		dir      attendance.Directory
	)
	err = h.store.View(ctx, func(tx document.Tx) error {
		var err error
		if sessions, err = loadSessions(tx); err != nil {
			return err
		}
		if dir.CourseNames, err = courseNames(tx); err != nil {
			return err
		}
		dir.StudentNames, err = studentNames(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("attendance_report: %w", err)
	}

	rows := attendance.BuildReport(sessions, attendance.ReportFilter{
		CourseID:  q.CourseID,
		StudentID: q.StudentID,
		Window:    window,
	}, dir)
	return &ReportDTO{Window: window, Rows: rows}, nil
}

// Session возвращает одно занятие.
func (h *AttendanceQueryHandler) Session(ctx context.Context, courseID, date string) (*attendance.Session, error) {
	d, err := shared.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("attendance_session: %w", err)
	}
	var (
		session attendance.Session
		ok      bool
	)
	err = h.store.View(ctx, func(tx document.Tx) error {
		var err error
		session, ok, err = document.Find[attendance.Session](tx, document.Attendance, attendance.SessionKey(courseID, d))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("attendance_session: %w", err)
	}
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return &session, nil
}

// History возвращает хронологию ученика за период.
func (h *AttendanceQueryHandler) History(ctx context.Context, q HistoryQuery) ([]attendance.HistoryEntry, error) {
	window, err := attendance.ResolveWindow(q.StartDate, q.EndDate, today(h.clock), h.windowDays)
	if err != nil {
		return nil, fmt.Errorf("student_history: %w", err)
	}

	var (
		sessions []*attendance.Session
		names    map[string]string
	)
	err = h.store.View(ctx, func(tx document.Tx) error {
		var err error
		if sessions, err = loadSessions(tx); err != nil {
			return err
		}
		names, err = courseNames(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("student_history: %w", err)
	}
	return attendance.History(sessions, q.StudentID, window, names), nil
}
