package storage

import (
	"database/sql"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && cErr != sql.ErrTxDone {
		*err = cErr
	}
}

// toNullInt maps the in-memory Unknown sentinel to SQL NULL; every
// other value, including out-of-range raw input, is stored verbatim.
func toNullInt(v int32) sql.NullInt64 {
	return sql.NullInt64{
		Int64: int64(v),
		Valid: v != gsm.Unknown,
	}
}

// fromNullInt inverts toNullInt, restoring the sentinel for NULL.
func fromNullInt(n sql.NullInt64) int32 {
	if !n.Valid {
		return gsm.Unknown
	}
	return int32(n.Int64)
}
