// Package identity содержит учётные записи пользователей и их роли.
// Запись пользователя хранится по username; профильные данные конкретной
// роли живут в отдельных коллекциях под тем же ID.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLES
// ══════════════════════════════════════════════════════════════════════════════

// Role определяет права пользователя.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleStaff   Role = "staff"

	// RolePending - регистрация ждёт решения администратора.
	RolePending Role = "pending"
)

// AssignableRoles - роли, которые администратор может назначить.
var AssignableRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleStaff}

// IsValid проверяет, что роль из закрытого набора (включая pending).
func (r Role) IsValid() bool {
	return r == RolePending || r.IsAssignable()
}

// IsAssignable возвращает true для ролей, доступных через set_role.
func (r Role) IsAssignable() bool {
	for _, a := range AssignableRoles {
		if r == a {
			return true
		}
	}
	return false
}

// HasProfile возвращает true, если для роли ведётся профильная запись.
func (r Role) HasProfile() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleParent, RoleStaff:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// ParseRole нормализует строку и проверяет, что роль назначаема.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsAssignable() {
		return "", shared.Errorf("identity", "ParseRole", shared.ErrInvalidRole, "invalid role %q", s)
	}
	return r, nil
}

// RoleForRegistration: первый пользователь системы становится администратором,
// все остальные ждут одобрения.
func RoleForRegistration(existingUsers int) Role {
	if existingUsers == 0 {
		return RoleAdmin
	}
	return RolePending
}

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// HashCost - стоимость bcrypt. Тесты понижают её до bcrypt.MinCost.
var HashCost = bcrypt.DefaultCost

// User - учётная запись.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by,omitempty"`
	ModifiedAt   time.Time `json:"modified_at"`
	ModifiedBy   string    `json:"modified_by,omitempty"`
}

// NewUser создаёт активного пользователя с захешированным паролем.
func NewUser(username, password string, role Role, createdBy string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.NewDomainError("identity", "NewUser", shared.ErrInvalidInput, "username is required")
	}
	if !role.IsValid() {
		return nil, shared.Errorf("identity", "NewUser", shared.ErrInvalidRole, "invalid role %q", role)
	}

	u := &User{
		ID:         uuid.NewString(),
		Username:   username,
		Role:       role,
		IsActive:   true,
		CreatedAt:  now,
		CreatedBy:  createdBy,
		ModifiedAt: now,
		ModifiedBy: createdBy,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword хеширует и сохраняет пароль.
func (u *User) SetPassword(password string) error {
	if password == "" {
		return shared.NewDomainError("identity", "SetPassword", shared.ErrInvalidInput, "password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return shared.WrapError("identity", "SetPassword", shared.ErrInvalidInput, "cannot hash password", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword сравнивает пароль с хешем.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// FullName возвращает "Имя Фамилия" без лишних пробелов.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName возвращает полное имя или username, если имя не задано.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// IsAdmin возвращает true для администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPending возвращает true для неподтверждённой регистрации.
func (u *User) IsPending() bool {
	return u.Role == RolePending
}

// Touch отмечает изменение записи.
func (u *User) Touch(actor string, now time.Time) {
	u.ModifiedAt = now
	u.ModifiedBy = actor
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHORIZATION
// ══════════════════════════════════════════════════════════════════════════════

// RequireAdmin возвращает Forbidden, если actor не найден или не администратор.
func RequireAdmin(actor *User) error {
	if actor == nil || !actor.IsAdmin() || !actor.IsActive {
		return shared.ErrAdminRequired
	}
	return nil
}

// CanChangePassword: администратор меняет любой пароль, остальные - только свой.
func CanChangePassword(actor *User, target string) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	return actor.IsAdmin() || actor.Username == target
}
