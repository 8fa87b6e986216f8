package executor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Conn is the connection (or pool) the executor dispatches queries on.
type Conn interface {
	Query(ctx context.Context, statement string, args ...any) ([]Row, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer establishes a new Conn.
type Dialer func(ctx context.Context) (Conn, error)

// SQLDialer opens a database/sql pool for driver ("sqlite3" or "pgx") and
// pings it before handing it to the executor.
func SQLDialer(driverName, dsn string, maxOpenConns int) Dialer {
	return func(ctx context.Context) (Conn, error) {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if maxOpenConns > 0 {
			db.SetMaxOpenConns(maxOpenConns)
			db.SetMaxIdleConns(maxOpenConns)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		return &sqlConn{db: db}, nil
	}
}

type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Query(ctx context.Context, statement string, args ...any) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
