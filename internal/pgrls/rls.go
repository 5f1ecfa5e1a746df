package pgrls

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithUser runs fn inside a transaction whose JWT claim GUCs identify
// the given auth user, so RLS policies apply exactly as they would for
// a request bearing that user's token. set_config uses is_local=true:
// the claims vanish when the transaction ends, which keeps pooled
// connections clean.
func WithUser(ctx context.Context, pool *pgxpool.Pool, authUserID string, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.sub', $1, true)", authUserID); err != nil {
		return fmt.Errorf("set user claim: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.role', 'authenticated', true)"); err != nil {
		return fmt.Errorf("set role claim: %w", err)
	}
	if _, err := tx.Exec(ctx, "SET LOCAL ROLE authenticated"); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReadRows executes one read-only statement under the user's RLS scope
// and returns generic rows keyed by column name. The transaction is
// always rolled back; generated SQL never commits.
func ReadRows(ctx context.Context, pool *pgxpool.Pool, authUserID, sql string) ([]map[string]any, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.sub', $1, true)", authUserID); err != nil {
		return nil, fmt.Errorf("set user claim: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.role', 'authenticated', true)"); err != nil {
		return nil, fmt.Errorf("set role claim: %w", err)
	}
	if _, err := tx.Exec(ctx, "SET LOCAL ROLE authenticated"); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0, 16)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}
