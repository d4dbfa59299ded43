package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upkyp/upkyp/pkg/db"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn
}

func TestIsDuplicateKeyErr(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, conn.Exec(`CREATE TABLE refs (reference TEXT NOT NULL UNIQUE)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO refs (reference) VALUES ('REF-1')`).Error)

	dupErr := conn.Exec(`INSERT INTO refs (reference) VALUES ('REF-1')`).Error
	require.Error(t, dupErr)
	assert.True(t, db.IsDuplicateKeyErr(dupErr))

	assert.True(t, db.IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, db.IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, db.IsDuplicateKeyErr(errors.New("connection refused")))
	assert.False(t, db.IsDuplicateKeyErr(nil))
}

func TestIsSerializationErr(t *testing.T) {
	assert.True(t, db.IsSerializationErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, db.IsSerializationErr(errors.New("could not serialize access due to concurrent update")))
	assert.False(t, db.IsSerializationErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, db.IsSerializationErr(nil))
}

func TestIsRetryableTxErr(t *testing.T) {
	assert.True(t, db.IsRetryableTxErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, db.IsRetryableTxErr(gorm.ErrDuplicatedKey))
	assert.False(t, db.IsRetryableTxErr(errors.New("connection refused")))
}

func TestTransactWithRetryRetriesSerializationFailures(t *testing.T) {
	conn := openTestDB(t)

	calls := 0
	err := db.TransactWithRetry(context.Background(), conn, &sql.TxOptions{}, 3, func(tx *gorm.DB) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactWithRetryStopsOnNonRetryableError(t *testing.T) {
	conn := openTestDB(t)

	sentinel := errors.New("business rule failed")
	calls := 0
	err := db.TransactWithRetry(context.Background(), conn, &sql.TxOptions{}, 3, func(tx *gorm.DB) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestTransactWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	conn := openTestDB(t)

	calls := 0
	err := db.TransactWithRetry(context.Background(), conn, &sql.TxOptions{}, 3, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	require.Error(t, err)
	assert.True(t, db.IsSerializationErr(err))
	assert.Equal(t, 3, calls)
}
