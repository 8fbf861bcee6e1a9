package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type sqlStateErr struct{ code string }

func (e *sqlStateErr) Error() string    { return "constraint violation" }
func (e *sqlStateErr) SQLState() string { return e.code }

func TestIsUniqueConstraintError(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		err := &pq.Error{Code: "23505"}
		assert.True(t, IsUniqueConstraintError(err))
		assert.True(t, IsUniqueConstraintError(fmt.Errorf("insert: %w", err)))
		assert.False(t, IsUniqueConstraintError(&pq.Error{Code: "23503"}))
	})

	t.Run("MySQL", func(t *testing.T) {
		err := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		assert.True(t, IsUniqueConstraintError(err))
		assert.False(t, IsUniqueConstraintError(&mysql.MySQLError{Number: 1452}))
	})

	t.Run("SQLState", func(t *testing.T) {
		assert.True(t, IsUniqueConstraintError(&sqlStateErr{code: "23505"}))
		assert.False(t, IsUniqueConstraintError(&sqlStateErr{code: "40001"}))
	})

	t.Run("StringFallback", func(t *testing.T) {
		assert.True(t, IsUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
		assert.True(t, IsUniqueConstraintError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)))
		assert.False(t, IsUniqueConstraintError(errors.New("connection refused")))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.False(t, IsUniqueConstraintError(nil))
	})
}

func TestIsForeignKeyConstraintError(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		assert.True(t, IsForeignKeyConstraintError(&pq.Error{Code: "23503"}))
	})

	t.Run("MySQL", func(t *testing.T) {
		// Both the parent-side and child-side violations count.
		assert.True(t, IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1451}))
		assert.True(t, IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1452}))
		assert.False(t, IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1062}))
	})

	t.Run("StringFallback", func(t *testing.T) {
		assert.True(t, IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
		assert.True(t, IsForeignKeyConstraintError(errors.New(`insert or update on table "posts" violates foreign key constraint "posts_user_id_fkey"`)))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.False(t, IsForeignKeyConstraintError(nil))
	})
}

func TestIsCheckConstraintError(t *testing.T) {
	assert.True(t, IsCheckConstraintError(&pq.Error{Code: "23514"}))
	assert.True(t, IsCheckConstraintError(&mysql.MySQLError{Number: 3819}))
	assert.True(t, IsCheckConstraintError(errors.New("CHECK constraint failed: age")))
	assert.False(t, IsCheckConstraintError(errors.New("syntax error")))
	assert.False(t, IsCheckConstraintError(nil))
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, IsConstraintError(&pq.Error{Code: "23505"}))
	assert.True(t, IsConstraintError(&pq.Error{Code: "23503"}))
	assert.True(t, IsConstraintError(&pq.Error{Code: "23514"}))
	assert.False(t, IsConstraintError(&pq.Error{Code: "42601"}))
	assert.False(t, IsConstraintError(nil))
}
