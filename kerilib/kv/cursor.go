package kv

import "github.com/erigontech/mdbx-go/mdbx"

// Cursor walks one table in key order, and for DupSort tables also walks
// a key's duplicate list in the b-tree's native (lexicographic) order.
// The IoDup/IoSet families layer insertion order on top of this by
// encoding an ordinal into the key or value, per spec.md §4.G.
type Cursor interface {
	First() (k, v []byte, err error)
	Next() (k, v []byte, err error)
	Last() (k, v []byte, err error)
	Seek(prefix []byte) (k, v []byte, err error)
	SeekExact(key []byte) (k, v []byte, err error)

	// dup-sorted cursor ops
	FirstDup() (v []byte, err error)
	NextDup() (v []byte, err error)
	LastDup() (v []byte, err error)
	SeekBothRange(key, val []byte) (v []byte, err error)
	CountDup() (int, error)

	Close()
}

// RwCursor additionally supports positioned mutation, used by the
// IoDup/IoSet delete paths that must remove one specific duplicate value
// without disturbing its neighbors.
type RwCursor interface {
	Cursor
	Put(k, v []byte) error
	PutNoDupData(k, v []byte) error
	DelCurrent() error
}

type cursor struct {
	c *mdbx.Cursor
}

func wrapNotFound(err error) error {
	if mdbx.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (c *cursor) First() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.First)
	return k, v, wrapNotFound(err)
}

func (c *cursor) Next() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Next)
	return k, v, wrapNotFound(err)
}

func (c *cursor) Last() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Last)
	return k, v, wrapNotFound(err)
}

func (c *cursor) Seek(prefix []byte) ([]byte, []byte, error) {
	k, v, err := c.c.Get(prefix, nil, mdbx.SetRange)
	return k, v, wrapNotFound(err)
}

func (c *cursor) SeekExact(key []byte) ([]byte, []byte, error) {
	k, v, err := c.c.Get(key, nil, mdbx.Set)
	return k, v, wrapNotFound(err)
}

func (c *cursor) FirstDup() ([]byte, error) {
	_, v, err := c.c.Get(nil, nil, mdbx.FirstDup)
	return v, wrapNotFound(err)
}

func (c *cursor) NextDup() ([]byte, error) {
	_, v, err := c.c.Get(nil, nil, mdbx.NextDup)
	return v, wrapNotFound(err)
}

func (c *cursor) LastDup() ([]byte, error) {
	_, v, err := c.c.Get(nil, nil, mdbx.LastDup)
	return v, wrapNotFound(err)
}

func (c *cursor) SeekBothRange(key, val []byte) ([]byte, error) {
	_, v, err := c.c.Get(key, val, mdbx.GetBothRange)
	return v, wrapNotFound(err)
}

func (c *cursor) CountDup() (int, error) {
	n, err := c.c.Count()
	return int(n), err
}

func (c *cursor) Put(k, v []byte) error {
	return c.c.Put(k, v, 0)
}

func (c *cursor) PutNoDupData(k, v []byte) error {
	err := c.c.Put(k, v, mdbx.NoDupData)
	if mdbx.IsKeyExists(err) {
		return ErrKeyExists
	}
	return err
}

func (c *cursor) DelCurrent() error {
	return c.c.Del(0)
}

func (c *cursor) Close() {
	c.c.Close()
}
