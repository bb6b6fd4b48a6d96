// Package query contains read operations (CQRS - Queries).
//
// Все запросы читают согласованный снимок хранилища через document.Store.View
// и ничего не публикуют.
package query

import (
	"sort"
	"time"

	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Clock - источник текущего времени в часовом поясе школы.
type Clock interface {
	Now() time.Time
}

// today возвращает сегодняшнюю дату по часам школы.
func today(c Clock) shared.Date {
	return shared.DateOf(c.Now())
}

// loadSessions читает все занятия в порядке ключей.
func loadSessions(tx document.Tx) ([]*attendance.Session, error) {
	all, err := document.All[attendance.Session](tx, document.Attendance)
	if err != nil {
		return nil, err
	}
	out := make([]*attendance.Session, 0, len(all))
	for _, key := range document.SortedKeys(all) {
		s := all[key]
		out = append(out, &s)
	}
	return out, nil
}

// courseNames строит справочник id курса -> название.
func courseNames(tx document.Tx) (map[string]string, error) {
	courses, err := document.All[roster.Course](tx, document.Courses)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(courses))
	for id, c := range courses {
		names[id] = c.Name
	}
	return names, nil
}

// studentNames строит справочник id ученика -> "Имя Фамилия" из учётных
// записей. Пустое имя в справочник не попадает.
func studentNames(tx document.Tx) (map[string]string, error) {
	students, err := document.All[roster.Student](tx, document.Students)
	if err != nil {
		return nil, err
	}
	users, err := document.All[identity.User](tx, document.Users)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(students))
	for id, s := range students {
		u, ok := users[s.Username]
		if !ok {
			continue
		}
		if name := u.FullName(); name != "" {
			names[id] = name
		}
	}
	return names, nil
}

// MemberDTO - профиль участника вместе с данными учётной записи.
type MemberDTO struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	FullName string        `json:"full_name"`
	Role     identity.Role `json:"role"`
}

func memberOf(id, username string, users map[string]identity.User) MemberDTO {
	m := MemberDTO{ID: id, Username: username}
	if u, ok := users[username]; ok {
		m.FullName = u.FullName()
		m.Role = u.Role
	}
	return m
}

func sortMembers(ms []MemberDTO) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].FullName != ms[j].FullName {
			return ms[i].FullName < ms[j].FullName
		}
		return ms[i].ID < ms[j].ID
	})
}
