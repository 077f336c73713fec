package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountExists      = errors.New("user already exists")
	ErrInvalidInput       = errors.New("name, email and password are required")
)

// Account is a stored admin, staff or user login.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	DepartmentID *int64
}

// Accounts looks up and creates accounts. FindAccount returns nil, nil when
// no account of that role has the email.
type Accounts interface {
	FindAccount(ctx context.Context, role Role, email string) (*Account, error)
	CreateUser(ctx context.Context, acct Account) (int64, error)
}

// Principal is what a successful login hands back to the client.
type Principal struct {
	Role         Role
	ID           int64
	DepartmentID *int64
}

// NewUser is the input for self-registration.
type NewUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID *int64 `json:"department_id"`
}

// Service checks credentials against the account table of the caller's role.
type Service struct {
	accounts Accounts
	cost     int
}

// NewService creates a service. cost is the bcrypt cost for new passwords.
func NewService(accounts Accounts, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{accounts: accounts, cost: cost}
}

// Login resolves the role from the email and verifies the password.
func (s *Service) Login(ctx context.Context, email, password string) (Principal, error) {
	role, err := RoleFromEmail(email)
	if err != nil {
		return Principal{}, err
	}
	acct, err := s.accounts.FindAccount(ctx, role, strings.TrimSpace(email))
	if err != nil {
		return Principal{}, err
	}
	if acct == nil {
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Role: role, ID: acct.ID, DepartmentID: acct.DepartmentID}, nil
}

// Register creates a user account with a hashed password.
func (s *Service) Register(ctx context.Context, in NewUser) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return 0, ErrInvalidInput
	}
	existing, err := s.accounts.FindAccount(ctx, RoleUser, in.Email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrAccountExists
	}
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return 0, err
	}
	return s.accounts.CreateUser(ctx, Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		DepartmentID: in.DepartmentID,
	})
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
