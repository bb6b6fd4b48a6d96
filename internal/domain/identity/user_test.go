package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

func init() {
	HashCost = bcrypt.MinCost
}

func TestRoleForRegistration(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleForRegistration(0))
	assert.Equal(t, RolePending, RoleForRegistration(1))
	assert.Equal(t, RolePending, RoleForRegistration(42))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Teacher ", RoleTeacher, false},
		{"staff", RoleStaff, false},
		{"pending", "", true},
		{"janitor", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUserHashesPassword(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	u, err := NewUser("  amina ", "s3cret!", RolePending, "amina", now)
	require.NoError(t, err)

	assert.Equal(t, "amina", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "s3cret!", u.PasswordHash)
	assert.True(t, u.CheckPassword("s3cret!"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.True(t, u.IsActive)
	assert.Equal(t, now, u.CreatedAt)
}

func TestNewUserRejectsBadInput(t *testing.T) {
	_, err := NewUser("", "pw", RoleAdmin, "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewUser("bob", "", RoleAdmin, "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewUser("bob", "pw", Role("root"), "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestNames(t *testing.T) {
	u := &User{Username: "dana"}
	assert.Equal(t, "", u.FullName())
	assert.Equal(t, "dana", u.DisplayName())

	u.FirstName = "Dana"
	assert.Equal(t, "Dana", u.FullName())
	u.LastName = "Sadykova"
	assert.Equal(t, "Dana Sadykova", u.DisplayName())
}

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(nil), shared.ErrForbidden)
	assert.ErrorIs(t, RequireAdmin(&User{Role: RoleTeacher, IsActive: true}), shared.ErrForbidden)
	assert.ErrorIs(t, RequireAdmin(&User{Role: RoleAdmin, IsActive: false}), shared.ErrForbidden)
	assert.NoError(t, RequireAdmin(&User{Role: RoleAdmin, IsActive: true}))
}

func TestCanChangePassword(t *testing.T) {
	admin := &User{Username: "root", Role: RoleAdmin, IsActive: true}
	teacher := &User{Username: "t1", Role: RoleTeacher, IsActive: true}

	assert.True(t, CanChangePassword(admin, "t1"))
	assert.True(t, CanChangePassword(teacher, "t1"))
	assert.False(t, CanChangePassword(teacher, "t2"))
	assert.False(t, CanChangePassword(nil, "t1"))
}
