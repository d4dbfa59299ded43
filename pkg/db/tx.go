package db

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// TransactWithRetry runs fn in a transaction, re-running it on retryable
// failures up to maxAttempts. fn must be safe to run again from the top.
func TransactWithRetry(ctx context.Context, conn *gorm.DB, opts *sql.TxOptions, maxAttempts int, fn func(tx *gorm.DB) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = conn.WithContext(ctx).Transaction(fn, opts)
		if err == nil || !IsRetryableTxErr(err) {
			return err
		}
	}
	return err
}
