package kv

import (
	"context"

	"github.com/erigontech/mdbx-go/mdbx"
)

// Tx is a read-only view of the environment. It is bound to one OS thread
// for its lifetime by the mdbx-go binding and must not escape the
// callback it was handed to.
type Tx interface {
	GetOne(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)

	// dup-sorted reads, per spec.md §4.G "sorted duplicate values"
	CntDup(table string, key []byte) (int, error)
	FirstDup(table string, key []byte) ([]byte, bool, error)

	Cursor(table string) (Cursor, error)
}

// RwTx is a read-write transaction. Exactly one RwTx may be open against
// an Env at a time; Update blocks until any prior writer commits.
type RwTx interface {
	Tx

	Put(table string, key, val []byte) error
	PutNoOverwrite(table string, key, val []byte) error
	Delete(table string, key []byte) error

	AppendDup(table string, key, val []byte) error
	DeleteExact(table string, key, val []byte) error

	RwCursor(table string) (RwCursor, error)
}

type tx struct {
	env  *Env
	txn  *mdbx.Txn
	dbis map[string]mdbx.DBI
}

func (e *Env) dbi(txn *mdbx.Txn, table string) (mdbx.DBI, error) {
	if _, ok := e.tables[table]; !ok {
		return 0, ErrTableNotFound
	}
	flags := mdbx.DBIFlags(0)
	if item := e.tables[table]; item.Flags&DupSort != 0 {
		flags |= mdbx.DupSort
	}
	dbi, err := txn.OpenDBI(table, flags, nil, nil)
	if err != nil {
		return 0, err
	}
	return dbi, nil
}

func (t *tx) resolve(table string) (mdbx.DBI, error) {
	if dbi, ok := t.dbis[table]; ok {
		return dbi, nil
	}
	dbi, err := t.env.dbi(t.txn, table)
	if err != nil {
		return 0, err
	}
	t.dbis[table] = dbi
	return dbi, nil
}

func (t *tx) GetOne(table string, key []byte) ([]byte, error) {
	dbi, err := t.resolve(table)
	if err != nil {
		return nil, err
	}
	v, err := t.txn.Get(dbi, key)
	if mdbx.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (t *tx) Has(table string, key []byte) (bool, error) {
	_, err := t.GetOne(table, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) CntDup(table string, key []byte) (int, error) {
	c, err := t.Cursor(table)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	if _, _, err := c.SeekExact(key); err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return c.CountDup()
}

func (t *tx) FirstDup(table string, key []byte) ([]byte, bool, error) {
	c, err := t.Cursor(table)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()
	_, v, err := c.SeekExact(key)
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (t *tx) Cursor(table string) (Cursor, error) {
	dbi, err := t.resolve(table)
	if err != nil {
		return nil, err
	}
	c, err := t.txn.OpenCursor(dbi)
	if err != nil {
		return nil, err
	}
	return &cursor{c: c}, nil
}

type rwTx struct {
	tx
}

func (t *rwTx) Put(table string, key, val []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	dbi, err := t.resolve(table)
	if err != nil {
		return err
	}
	return t.txn.Put(dbi, key, val, 0)
}

func (t *rwTx) PutNoOverwrite(table string, key, val []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	dbi, err := t.resolve(table)
	if err != nil {
		return err
	}
	err = t.txn.Put(dbi, key, val, mdbx.NoOverwrite)
	if mdbx.IsKeyExists(err) {
		return ErrKeyExists
	}
	return err
}

func (t *rwTx) Delete(table string, key []byte) error {
	dbi, err := t.resolve(table)
	if err != nil {
		return err
	}
	err = t.txn.Del(dbi, key, nil)
	if mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

// AppendDup appends val to key's duplicate list assuming append order:
// the caller must already have arranged for lexicographic order to match
// insertion order. None of the helpers in this package call it.
func (t *rwTx) AppendDup(table string, key, val []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	dbi, err := t.resolve(table)
	if err != nil {
		return err
	}
	return t.txn.Put(dbi, key, val, mdbx.AppendDup)
}

func (t *rwTx) DeleteExact(table string, key, val []byte) error {
	dbi, err := t.resolve(table)
	if err != nil {
		return err
	}
	err = t.txn.Del(dbi, key, val)
	if mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

func (t *rwTx) RwCursor(table string) (RwCursor, error) {
	dbi, err := t.resolve(table)
	if err != nil {
		return nil, err
	}
	c, err := t.txn.OpenCursor(dbi)
	if err != nil {
		return nil, err
	}
	return &cursor{c: c}, nil
}

// View runs fn in a read-only transaction. The transaction is aborted
// (never committed) regardless of fn's outcome, matching MDBX's
// read-only-txn-has-nothing-to-commit semantics.
func (e *Env) View(ctx context.Context, fn func(tx Tx) error) error {
	return e.env.View(func(txn *mdbx.Txn) error {
		t := &tx{env: e, txn: txn, dbis: make(map[string]mdbx.DBI, len(e.tables))}
		return fn(t)
	})
}

// Update runs fn in a single read-write transaction and commits iff fn
// returns nil. Per spec.md §4.H this is the unit of atomicity the
// persistence policy builds on: an accepted event's dgKey/snKey/onKey/
// dtss writes all land in one Update call.
func (e *Env) Update(ctx context.Context, fn func(tx RwTx) error) error {
	return e.env.Update(func(txn *mdbx.Txn) error {
		t := &rwTx{tx{env: e, txn: txn, dbis: make(map[string]mdbx.DBI, len(e.tables))}}
		return fn(t)
	})
}
