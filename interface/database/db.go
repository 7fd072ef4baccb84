package db

import (
	"context"
	"fmt"
)

// InsertMode defines the behaviour of the loader when a document already exists
type InsertMode int

const (
	// Insert fails if a document already exists
	Insert InsertMode = iota
	// Upsert replaces the existing documents (by id)
	Upsert
)

func (m InsertMode) String() string {
	switch m {
	case Insert:
		return "insert"
	case Upsert:
		return "upsert"
	}
	return fmt.Sprintf("InsertMode(%d)", int(m))
}

type ErrAlreadyExists struct {
	Type, ID string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Type, e.ID)
}

type ErrNotFound struct {
	Type, ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

type CatalogTxBackend interface {
	CatalogBackend
	// Must be call to apply transaction
	Commit() error
	// Might be called to cancel the transaction (no effect if commit has already be done)
	Rollback() error
}

type CatalogDBBackend interface {
	CatalogBackend
	StartTransaction(ctx context.Context) (CatalogTxBackend, error)
}

type CatalogBackend interface {
	// LoadItems loads STAC items. Each item must have a "collection" member referencing an existing collection.
	// Returns the number of items loaded.
	// May return ErrAlreadyExists (Insert mode) or ErrNotFound (unknown collection)
	LoadItems(ctx context.Context, items [][]byte, mode InsertMode) (int, error)
	// LoadCollection loads a STAC collection. May return ErrAlreadyExists (Insert mode)
	LoadCollection(ctx context.Context, collection []byte, mode InsertMode) error
}

// UnitOfWork runs a function and commit the database at the end or rollback if the function returns an error
func UnitOfWork(ctx context.Context, db CatalogDBBackend, f func(tx CatalogTxBackend) error) (err error) {
	// Start transaction
	txn, err := db.StartTransaction(ctx)
	if err != nil {
		return fmt.Errorf("uow.starttransaction: %w", err)
	}

	// Rollback if not successful
	defer func() {
		if e := txn.Rollback(); err == nil {
			err = e
		}
	}()

	// Execute function
	if err = f(txn); err != nil {
		return fmt.Errorf("uow.%w", err)
	}

	return txn.Commit()
}
