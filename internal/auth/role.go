package auth

import (
	"errors"
	"strings"
)

// ErrInvalidDomain is returned for emails outside the known role domains.
var ErrInvalidDomain = errors.New("invalid email domain")

// Role is the kind of account, resolved once from the email domain.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleStaff
	RoleUser
)

// RoleFromEmail maps the email domain to a role.
func RoleFromEmail(email string) (Role, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case strings.HasSuffix(email, "@admin.com"):
		return RoleAdmin, nil
	case strings.HasSuffix(email, "@staff.com"):
		return RoleStaff, nil
	case strings.HasSuffix(email, "@user.com"):
		return RoleUser, nil
	}
	return 0, ErrInvalidDomain
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStaff:
		return "staff"
	case RoleUser:
		return "user"
	}
	return "unknown"
}

// RedirectURL is the landing page for the role.
func (r Role) RedirectURL() string {
	switch r {
	case RoleAdmin:
		return "/html/admin/admin_dashboard.html"
	case RoleStaff:
		return "/html/staff/staff_dashboard.html"
	case RoleUser:
		return "/html/user/user_events.html"
	}
	return "/"
}

// IDKey names the identifier field handed back to the client.
func (r Role) IDKey() string {
	switch r {
	case RoleAdmin:
		return "adminId"
	case RoleStaff:
		return "staffId"
	case RoleUser:
		return "userId"
	}
	return "id"
}
