package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: payments.receipt_number")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
	assert.False(t, IsDuplicateKeyErr(nil))
}

func TestDialect(t *testing.T) {
	for _, kind := range []string{TypePostgres, TypeMySQL, TypeSQLite, TypeSQLite3} {
		d, err := Dialect(config.Config{DBType: kind, DBName: "pressline"})
		require.NoError(t, err, kind)
		assert.NotNil(t, d, kind)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}
