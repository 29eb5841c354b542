package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil",
			err:  nil,
			want: false,
		},
		{
			name: "postgres sqlstate",
			err:  &pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_email_key"`},
			want: true,
		},
		{
			name: "postgres wrapped",
			err:  fmt.Errorf("save customer: %w", &pq.Error{Code: "23505"}),
			want: true,
		},
		{
			name: "mysql duplicate entry",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a8m' for key 'users.email'"},
			want: true,
		},
		{
			name: "sqlite string fallback",
			err:  errors.New("UNIQUE constraint failed: users.email"),
			want: true,
		},
		{
			name: "mysql foreign key is not unique",
			err:  &mysql.MySQLError{Number: 1452},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueConstraintError(tt.err))
		})
	}
}

func TestIsForeignKeyConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "postgres sqlstate",
			err:  &pq.Error{Code: "23503", Message: `insert or update on table "orders" violates foreign key constraint`},
			want: true,
		},
		{
			name: "mysql parent row",
			err:  &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"},
			want: true,
		},
		{
			name: "mysql child row",
			err:  &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"},
			want: true,
		},
		{
			name: "sqlite string fallback",
			err:  errors.New("FOREIGN KEY constraint failed"),
			want: true,
		},
		{
			name: "postgres unique is not foreign key",
			err:  &pq.Error{Code: "23505"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsForeignKeyConstraintError(tt.err))
		})
	}
}

func TestIsCheckConstraintError(t *testing.T) {
	assert.True(t, IsCheckConstraintError(&pq.Error{Code: "23514"}))
	assert.True(t, IsCheckConstraintError(&mysql.MySQLError{Number: 3819}))
	assert.True(t, IsCheckConstraintError(errors.New("CHECK constraint failed: orders")))
	assert.False(t, IsCheckConstraintError(&pq.Error{Code: "23503"}))
	assert.False(t, IsCheckConstraintError(nil))
}

func TestIsConstraintError(t *testing.T) {
	cause := &mysql.MySQLError{Number: 1062}
	err := NewConstraintError("add customer orders", cause)
	require.Error(t, err)
	assert.True(t, IsConstraintError(err))
	assert.ErrorIs(t, err, cause, "wrapped driver error must stay reachable")
	assert.Contains(t, err.Error(), "constraint violation")

	// Classification without the wrapper type.
	assert.True(t, IsConstraintError(&pq.Error{Code: "23503"}))
	assert.False(t, IsConstraintError(errors.New("context canceled")))
}
