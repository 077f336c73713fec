package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"attendance_pkey\""}

	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert attendance: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	missing := &pgconn.PgError{Code: "23503", Message: "insert or update on table \"staff\" violates foreign key constraint"}

	assert.True(t, IsForeignKeyViolation(missing))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("create staff: %w", missing)))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestNilDB(t *testing.T) {
	var d *DB
	assert.NoError(t, d.Close())
	assert.Error(t, d.Ping(context.Background()))
}
