package db

import (
	"context"
	"time"
)

// Database is a pooled SQL connection.
type Database interface {
	Querier

	// Transaction runs fn in a transaction, committing when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Transaction is an open database transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Scanner is implemented by both Row and Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Row is the result of QueryRow.
type Row interface {
	Scanner
}

// Rows is an iterator over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Stats is a snapshot of connection pool statistics.
type Stats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
	WaitDuration    time.Duration
}
