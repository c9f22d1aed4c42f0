package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// chunkSize bounds rows per multi-row INSERT.
const chunkSize = 2000

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertRows writes rows with multi-row VALUES statements to reduce round-trips.
func insertRows(ctx context.Context, db execer, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for _, r := range rows[start:end] {
			values = append(values, placeholder)
			args = append(args, r...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(cols, ", "), strings.Join(values, ","))
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
