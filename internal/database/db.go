package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

// DB is the slice of sqlx the repositories use, plus transaction-in-context
// support. Repositories call Querier to transparently run against an open
// transaction when one is carried on the context.
type DB interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Close() error
	DriverName() string
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	PingContext(ctx context.Context) error
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	Rebind(query string) string
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	SetConnMaxIdleTime(d time.Duration)
	SetConnMaxLifetime(d time.Duration)
	SetMaxIdleConns(n int)
	SetMaxOpenConns(n int)
	Stats() sql.DBStats
	Unsafe() *sqlx.DB

	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
	Querier(ctx context.Context) Querier
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Querier is the query surface shared by the raw pool and an open
// transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
	}
}

func (db *DatabaseInstance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, db.logger, db, opts)
}

// Querier returns the transaction carried on the context when one is open,
// otherwise the pool itself.
func (db *DatabaseInstance) Querier(ctx context.Context) Querier {
	if tx := OpenTx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// RunInTx starts a transaction (or joins the one already on the context),
// runs fn with the transaction on its context, and commits if fn succeeds.
// Any error rolls the whole transaction back.
func (db *DatabaseInstance) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if OpenTx(ctx) != nil {
		return fn(ctx)
	}

	ctxTx, tx, err := db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	// Rollback with the outer context: against ctxTx it would refuse to
	// close a transaction the context still marks open.
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(ctxTx); err != nil {
		return err
	}
	return tx.Commit(ctxTx)
}
