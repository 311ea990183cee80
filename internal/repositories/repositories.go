package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/setlistify/internal/shared"
)

// checkAffected turns a write that touched no rows into [shared.ErrNotFound].
func checkAffected(result sql.Result, what, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, what, key)
	}
	return nil
}

// nullTime stores a zero time as NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
