package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventattend/internal/auth"
	"eventattend/internal/store/memory"
)

func TestRoleFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  auth.Role
		err   error
	}{
		{"root@admin.com", auth.RoleAdmin, nil},
		{" Kim@Staff.com ", auth.RoleStaff, nil},
		{"lee@user.com", auth.RoleUser, nil},
		{"lee@user.com.ph", 0, auth.ErrInvalidDomain},
		{"lee@gmail.com", 0, auth.ErrInvalidDomain},
		{"", 0, auth.ErrInvalidDomain},
	}
	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			got, err := auth.RoleFromEmail(tc.email)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoleAttributes(t *testing.T) {
	assert.Equal(t, "staffId", auth.RoleStaff.IDKey())
	assert.Equal(t, "adminId", auth.RoleAdmin.IDKey())
	assert.Equal(t, "/html/user/user_events.html", auth.RoleUser.RedirectURL())
	assert.Equal(t, "unknown", auth.Role(0).String())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	dept := st.AddDepartment("Nursing")
	hash, err := auth.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	admin := st.AddAccount(auth.RoleAdmin, auth.Account{Name: "Root", Email: "root@admin.com", PasswordHash: hash})
	staff := st.AddAccount(auth.RoleStaff, auth.Account{Name: "Kim", Email: "kim@staff.com", PasswordHash: hash, DepartmentID: &dept.ID})
	svc := auth.NewService(st, bcrypt.MinCost)

	p, err := svc.Login(ctx, "root@admin.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.Principal{Role: auth.RoleAdmin, ID: admin.ID}, p)

	p, err = svc.Login(ctx, "kim@staff.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, p.ID)
	require.NotNil(t, p.DepartmentID)
	assert.Equal(t, dept.ID, *p.DepartmentID)

	_, err = svc.Login(ctx, "kim@staff.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// the domain picks the table, so a staff email never matches an admin row
	_, err = svc.Login(ctx, "root@staff.com", "secret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "kim@example.com", "secret")
	assert.ErrorIs(t, err, auth.ErrInvalidDomain)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := auth.NewService(st, bcrypt.MinCost)

	id, err := svc.Register(ctx, auth.NewUser{Name: " Lee ", Email: "lee@user.com", Password: "pw"})
	require.NoError(t, err)
	assert.Positive(t, id)

	acct, err := st.FindAccount(ctx, auth.RoleUser, "lee@user.com")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, "Lee", acct.Name)
	assert.NotEqual(t, "pw", acct.PasswordHash)

	_, err = svc.Register(ctx, auth.NewUser{Name: "Lee", Email: "lee@user.com", Password: "pw"})
	assert.ErrorIs(t, err, auth.ErrAccountExists)

	_, err = svc.Register(ctx, auth.NewUser{Name: "Lee", Email: "lee2@user.com"})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	p, err := svc.Login(ctx, "lee@user.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
}
