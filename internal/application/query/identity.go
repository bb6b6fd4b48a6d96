package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE QUERY
// Проверяет пароль. Неизвестный пользователь, неверный пароль и
// отключённая учётная запись дают одну и ту же ошибку, чтобы не выдавать,
// какие логины существуют.
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateQuery содержит логин и пароль.
type AuthenticateQuery struct {
	Username string
	Password string
}

// AuthenticateHandler обрабатывает вход.
type AuthenticateHandler struct {
	store document.Store
}

// NewAuthenticateHandler создаёт новый обработчик.
func NewAuthenticateHandler(store document.Store) *AuthenticateHandler {
	return &AuthenticateHandler{store: store}
}

// Handle возвращает пользователя или shared.ErrAuthFailed.
func (h *AuthenticateHandler) Handle(ctx context.Context, q AuthenticateQuery) (*identity.User, error) {
	var (
		user identity.User
		ok   bool
	)
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		user, ok, err = document.Find[identity.User](tx, document.Users, q.Username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok || !user.IsActive || !user.CheckPassword(q.Password) {
		return nil, shared.ErrAuthFailed
	}
	return &user, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER DIRECTORY QUERIES
// Очередь заявок и статистика по ролям для администратора.
// ══════════════════════════════════════════════════════════════════════════════

// UserDirectoryHandler отвечает на запросы о пользователях.
type UserDirectoryHandler struct {
	store document.Store
}

// NewUserDirectoryHandler создаёт новый обработчик.
func NewUserDirectoryHandler(store document.Store) *UserDirectoryHandler {
	return &UserDirectoryHandler{store: store}
}

// PendingRegistrations возвращает заявки, самые старые первыми.
func (h *UserDirectoryHandler) PendingRegistrations(ctx context.Context) ([]identity.User, error) {
	users, err := h.users(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending_registrations: %w", err)
	}
	out := make([]identity.User, 0)
	for _, u := range users {
		if u.IsPending() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// CountByRole считает пользователей по ролям. Роли без пользователей
// присутствуют с нулём.
func (h *UserDirectoryHandler) CountByRole(ctx context.Context) (map[identity.Role]int, error) {
	users, err := h.users(ctx)
	if err != nil {
		return nil, fmt.Errorf("count_by_role: %w", err)
	}
	counts := make(map[identity.Role]int, len(identity.AssignableRoles)+1)
	for _, r := range identity.AssignableRoles {
		counts[r] = 0
	}
	counts[identity.RolePending] = 0
	for _, u := range users {
		counts[u.Role]++
	}
	return counts, nil
}

func (h *UserDirectoryHandler) users(ctx context.Context) (map[string]identity.User, error) {
	var users map[string]identity.User
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		users, err = document.All[identity.User](tx, document.Users)
		return err
	})
	return users, err
}
