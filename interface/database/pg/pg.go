package pg

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"

	db "github.com/hotosm/oam-stac-ingester/interface/database"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/lib/pq"
)

// DefaultChunkSize is the number of items sent to pgstac in a single call
const DefaultChunkSize = 500

// pgInterface allows to use either a sql.DB or a sql.Tx
type pgInterface interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BackendTx implements CatalogTxBackend
type BackendTx struct {
	*sql.Tx
	Backend
}

// BackendDB implements CatalogDBBackend
type BackendDB struct {
	*sql.DB
	Backend
}

// Backend implements CatalogBackend on a pgstac database
type Backend struct {
	pgInterface
	ChunkSize int
}

/* http://www.postgresql.org/docs/9.3/static/errcodes-appendix.html */
const (
	noError             = "00000"
	connectionFailure   = "08006"
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"

	notPqError = "X"
)

func pqErrorCode(err error) pq.ErrorCode {
	if err == nil {
		return noError
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return pqerr.Code
	}
	return notPqError
}

// StartTransaction implements CatalogDBBackend
func (bdb BackendDB) StartTransaction(ctx context.Context) (db.CatalogTxBackend, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return BackendTx{}, err
	}
	return BackendTx{tx, Backend{pgInterface: tx, ChunkSize: bdb.ChunkSize}}, nil
}

// Rollback overloads sql.Tx.Rollback to be idempotent
func (btx BackendTx) Rollback() error {
	err := btx.Tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// New creates a new backend using Postgres (pgstac schema)
func New(ctx context.Context, dbConnection string) (*BackendDB, error) {
	db, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, fmt.Errorf("sql.open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		if pqErrorCode(err) == connectionFailure {
			err = service.MakeTemporary(err)
		}
		return nil, fmt.Errorf("sql.ping: %w", err)
	}
	return &BackendDB{db, Backend{pgInterface: db, ChunkSize: DefaultChunkSize}}, nil
}

// DSN returns the connection string of a postgres database
func DSN(user, password, host, port, database string) string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
	}
	return u.String()
}

func itemsFunction(mode db.InsertMode) (string, error) {
	switch mode {
	case db.Insert:
		return "SELECT pgstac.create_items($1::text::jsonb)", nil
	case db.Upsert:
		return "SELECT pgstac.upsert_items($1::text::jsonb)", nil
	}
	return "", fmt.Errorf("unsupported insert mode: %v", mode)
}

func collectionFunction(mode db.InsertMode) (string, error) {
	switch mode {
	case db.Insert:
		return "SELECT pgstac.create_collection($1::text::jsonb)", nil
	case db.Upsert:
		return "SELECT pgstac.upsert_collection($1::text::jsonb)", nil
	}
	return "", fmt.Errorf("unsupported insert mode: %v", mode)
}

// LoadItems implements CatalogBackend
func (b Backend) LoadItems(ctx context.Context, items [][]byte, mode db.InsertMode) (int, error) {
	query, err := itemsFunction(mode)
	if err != nil {
		return 0, fmt.Errorf("LoadItems: %w", err)
	}
	chunkSize := b.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	loaded := 0
	for start := 0; start < len(items); start += chunkSize {
		chunk := items[start:min(start+chunkSize, len(items))]
		array := append(append([]byte("["), bytes.Join(chunk, []byte(","))...), ']')
		if _, err := b.ExecContext(ctx, query, string(array)); err != nil {
			switch pqErrorCode(err) {
			case uniqueViolation:
				return loaded, db.ErrAlreadyExists{Type: "item", ID: pqDetail(err)}
			case foreignKeyViolation:
				return loaded, db.ErrNotFound{Type: "collection", ID: pqDetail(err)}
			}
			return loaded, fmt.Errorf("LoadItems.Exec: %w", err)
		}
		loaded += len(chunk)
	}
	return loaded, nil
}

// LoadCollection implements CatalogBackend
func (b Backend) LoadCollection(ctx context.Context, collection []byte, mode db.InsertMode) error {
	query, err := collectionFunction(mode)
	if err != nil {
		return fmt.Errorf("LoadCollection: %w", err)
	}
	if _, err := b.ExecContext(ctx, query, string(collection)); err != nil {
		if pqErrorCode(err) == uniqueViolation {
			return db.ErrAlreadyExists{Type: "collection", ID: pqDetail(err)}
		}
		return fmt.Errorf("LoadCollection.Exec: %w", err)
	}
	return nil
}

// ItemsCount returns the number of items of the collection
func (b Backend) ItemsCount(ctx context.Context, collection string) (int, error) {
	var n int
	if err := b.QueryRowContext(ctx, "SELECT count(*) FROM pgstac.items WHERE collection = $1", collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("ItemsCount: %w", err)
	}
	return n, nil
}

func pqDetail(err error) string {
	var pqerr *pq.Error
	if errors.As(err, &pqerr) && pqerr.Detail != "" {
		return pqerr.Detail
	}
	return err.Error()
}
