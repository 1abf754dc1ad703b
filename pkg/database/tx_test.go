package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert vote: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
