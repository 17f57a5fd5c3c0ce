package kv

import "errors"

// ErrKeyEmpty is returned by Put, PutNoOverwrite and AppendDup when the
// caller supplies a zero-length key: the underlying MDBX engine cannot
// store an empty key.
var ErrKeyEmpty = errors.New("kv: key must not be empty")

// ErrKeyExists is returned by the no-overwrite single-value put when a
// value is already present for the key.
var ErrKeyExists = errors.New("kv: key already has a value")

// ErrNotFound is returned by single-value reads when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// ErrTableNotFound is returned when a table name was not registered in
// the TableCfg passed to Open.
var ErrTableNotFound = errors.New("kv: table not found")

// ErrTxClosed is returned by any Tx method called after Commit/Rollback.
var ErrTxClosed = errors.New("kv: transaction already closed")

// ErrOrdinalOverflow is returned by AppendOnVal when top's last assigned
// ordinal is already Ordinal's maximum value (spec.md §4.G's MaxON).
var ErrOrdinalOverflow = errors.New("kv: ordinal overflow")
