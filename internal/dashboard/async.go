package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// queryResult wraps query rows or the error that stopped the query
type queryResult[T any] struct {
	Rows  []T
	Error error
}

// queryAsync runs query in a goroutine under a timeout and delivers the
// scanned rows on the returned channel
func queryAsync[T any](ctx context.Context, database *sql.DB, timeout time.Duration, query string, scan func(*sql.Rows) (T, error), args ...any) <-chan queryResult[T] {
	resultChan := make(chan queryResult[T], 1)

	go func() {
		defer close(resultChan)

		queryCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		rows, err := database.QueryContext(queryCtx, query, args...)
		if err != nil {
			resultChan <- queryResult[T]{Error: fmt.Errorf("failed to execute query: %w", err)}
			return
		}
		defer rows.Close()

		var out []T
		for rows.Next() {
			if err := queryCtx.Err(); err != nil {
				resultChan <- queryResult[T]{Error: err}
				return
			}
			item, err := scan(rows)
			if err != nil {
				resultChan <- queryResult[T]{Error: fmt.Errorf("failed to scan row: %w", err)}
				return
			}
			out = append(out, item)
		}
		if err := rows.Err(); err != nil {
			resultChan <- queryResult[T]{Error: fmt.Errorf("failed to read rows: %w", err)}
			return
		}

		resultChan <- queryResult[T]{Rows: out}
	}()

	return resultChan
}

// await waits for an async query or for ctx to be cancelled
func await[T any](ctx context.Context, results <-chan queryResult[T]) ([]T, error) {
	select {
	case result := <-results:
		if result.Error != nil {
			return nil, result.Error
		}
		return result.Rows, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
