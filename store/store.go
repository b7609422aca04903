package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type (
	// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx
	DBTX interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// Conn holds every query that is safe to run either inside or
	// outside a transaction
	Conn struct {
		q DBTX
	}

	// Tx is only handed out by Control.WithTx. Writes to the interests
	// relation are only available here.
	Tx struct {
		Conn
	}

	Control struct {
		Conn
		db   *sql.DB
		path string
	}
)

func openDatabase(ctx context.Context, dbfile string) (*sql.DB, error) {
	err := os.MkdirAll(filepath.Dir(dbfile), 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory for %v, cause %w", dbfile, err)
	}
	// _txlock=immediate makes every BeginTx take the write lock upfront,
	// so two growth transactions cannot interleave their reads and writes
	connstr := fmt.Sprintf("file:%v?_writable_schema=false&_journal=wal&_fk=1&_busy_timeout=5000&_txlock=immediate&mode=rwc", dbfile)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", dbfile, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping database %v, cause %v", dbfile, err)
	}
	return conn, nil
}

// Open loads the database at dbfile, creating it when needed, and
// brings the schema up to date.
func Open(ctx context.Context, dbfile string) (*Control, error) {
	conn, err := openDatabase(ctx, dbfile)
	if err != nil {
		return nil, StoreUnavailable{Op: "open", cause: err}
	}
	c := &Control{Conn: Conn{q: conn}, db: conn, path: dbfile}
	err = c.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init database %v, cause %w", dbfile, err)
	}
	return c, nil
}

func (c *Control) init(ctx context.Context) error {
	err := migrate(ctx, c.db)
	if err != nil {
		return err
	}
	return c.verifySchema(ctx)
}

// WithTx runs fn inside a transaction. The transaction is committed only
// if fn returns nil, any error, panic or context cancellation rolls it back.
func (c *Control) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	sqltx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqltx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqltx.Rollback()
			return
		}
		if cerr := sqltx.Commit(); cerr != nil {
			err = classify("commit", cerr)
		}
	}()
	err = fn(ctx, &Tx{Conn: Conn{q: sqltx}})
	return err
}

func (c *Control) Path() string {
	return c.path
}

func (c *Control) Close() error {
	return c.db.Close()
}
