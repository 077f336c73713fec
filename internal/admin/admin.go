// Package admin manages staff and user accounts on behalf of administrators.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"eventattend/internal/auth"
)

var (
	ErrNotFound        = errors.New("member not found")
	ErrInvalidMember   = errors.New("invalid member")
	ErrEmailTaken      = errors.New("email already in use")
	ErrUnsupportedRole = errors.New("only staff and users are managed here")
)

// Member is a staff or user account as shown to administrators. The password
// hash never leaves the store.
type Member struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	DepartmentID   *int64  `json:"department_id"`
	DepartmentName *string `json:"department_name,omitempty"`
}

// MemberInput is the raw input for creating or updating a member. An empty
// password on update keeps the current one.
type MemberInput struct {
	Name         string
	Email        string
	Password     string
	DepartmentID *int64
}

// Store persists staff and user accounts. role is always auth.RoleStaff or
// auth.RoleUser and selects the table. GetMember returns nil, nil for an
// unknown id; UpdateMember and DeleteMember return ErrNotFound. An empty
// passwordHash on update leaves the password unchanged.
type Store interface {
	ListMembers(ctx context.Context, role auth.Role) ([]Member, error)
	GetMember(ctx context.Context, role auth.Role, id int64) (*Member, error)
	CreateMember(ctx context.Context, role auth.Role, m Member, passwordHash string) (int64, error)
	UpdateMember(ctx context.Context, role auth.Role, m Member, passwordHash string) error
	DeleteMember(ctx context.Context, role auth.Role, id int64) error
}

// Service validates member input and hashes passwords.
type Service struct {
	store Store
	cost  int
}

// NewService creates a service. cost is the bcrypt cost for new passwords.
func NewService(store Store, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost}
}

// Members lists the accounts of a role grouped by department name.
func (s *Service) Members(ctx context.Context, role auth.Role) ([]Member, error) {
	if err := managed(role); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, role)
}

// Member returns one account.
func (s *Service) Member(ctx context.Context, role auth.Role, id int64) (Member, error) {
	if err := managed(role); err != nil {
		return Member{}, err
	}
	if id <= 0 {
		return Member{}, ErrNotFound
	}
	m, err := s.store.GetMember(ctx, role, id)
	if err != nil {
		return Member{}, err
	}
	if m == nil {
		return Member{}, ErrNotFound
	}
	return *m, nil
}

// Create adds an account. The email domain must match the role, otherwise
// the account could never log in.
func (s *Service) Create(ctx context.Context, role auth.Role, in MemberInput) (int64, error) {
	m, err := validate(role, in)
	if err != nil {
		return 0, err
	}
	if in.Password == "" {
		return 0, fmt.Errorf("%w: password is required", ErrInvalidMember)
	}
	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return 0, err
	}
	return s.store.CreateMember(ctx, role, m, hash)
}

// Update replaces name, email and department, and the password when one is given.
func (s *Service) Update(ctx context.Context, role auth.Role, id int64, in MemberInput) error {
	m, err := validate(role, in)
	if err != nil {
		return err
	}
	if id <= 0 {
		return ErrNotFound
	}
	m.ID = id
	var hash string
	if in.Password != "" {
		if hash, err = auth.HashPassword(in.Password, s.cost); err != nil {
			return err
		}
	}
	return s.store.UpdateMember(ctx, role, m, hash)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, role auth.Role, id int64) error {
	if err := managed(role); err != nil {
		return err
	}
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteMember(ctx, role, id)
}

func managed(role auth.Role) error {
	if role != auth.RoleStaff && role != auth.RoleUser {
		return ErrUnsupportedRole
	}
	return nil
}

func validate(role auth.Role, in MemberInput) (Member, error) {
	if err := managed(role); err != nil {
		return Member{}, err
	}
	m := Member{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		DepartmentID: in.DepartmentID,
	}
	if m.Name == "" || m.Email == "" {
		return Member{}, fmt.Errorf("%w: name and email are required", ErrInvalidMember)
	}
	if r, err := auth.RoleFromEmail(m.Email); err != nil || r != role {
		return Member{}, fmt.Errorf("%w: %s accounts need an @%s.com email", ErrInvalidMember, role, role)
	}
	return m, nil
}
