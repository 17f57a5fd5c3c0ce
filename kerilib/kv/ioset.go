package kv

import "bytes"

// IoSet tables store an insertion-ordered set of values under a logical
// key without relying on the DupSort comparator at all: the stored key is
// the logical key with a 16-byte big-endian Ordinal appended, so distinct
// insertions never collide and a prefix scan over the logical key yields
// every member in insertion order. Per spec.md §4.G this is the encoding
// used where the value itself can be large or non-comparable (so baking
// an ordinal into the *value*, as IoDup does, would be wasteful or
// awkward) but the table must still remember arrival order — e.g. escrow
// membership lists.

func ioSetKey(key []byte, ord Ordinal) []byte {
	out := make([]byte, 0, len(key)+len(ord))
	out = append(out, key...)
	out = append(out, ord[:]...)
	return out
}

func nextIoSetOrdinal(tx Tx, table string, key []byte) (Ordinal, error) {
	c, err := tx.Cursor(table)
	if err != nil {
		return Ordinal{}, err
	}
	defer c.Close()

	// The last member of the set, if any, sorts immediately before the
	// first key that does not share the key prefix: seek to key+0xff..
	// is unnecessary because we instead seek to the prefix and walk
	// forward, tracking the last matching entry.
	k, _, err := c.Seek(key)
	if err == ErrNotFound {
		return ZeroOrdinal, nil
	}
	if err != nil {
		return Ordinal{}, err
	}
	var lastOrd *Ordinal
	for {
		if !bytes.HasPrefix(k, key) || len(k) != len(key)+16 {
			break
		}
		var ord Ordinal
		copy(ord[:], k[len(key):])
		lastOrd = &ord
		k, _, err = c.Next()
		if err == ErrNotFound {
			break
		}
		if err != nil {
			return Ordinal{}, err
		}
	}
	if lastOrd == nil {
		return ZeroOrdinal, nil
	}
	next, ok := lastOrd.Next()
	if !ok {
		return Ordinal{}, errIoSetOverflow(key)
	}
	return next, nil
}

// AddIoSetVal appends val as the newest member of the set stored under
// key, silently doing nothing if an equal value is already a member.
func AddIoSetVal(tx RwTx, table string, key, val []byte) error {
	existing, err := GetIoSetVals(tx, table, key)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if bytes.Equal(v, val) {
			return nil
		}
	}
	ord, err := nextIoSetOrdinal(tx, table, key)
	if err != nil {
		return err
	}
	return tx.Put(table, ioSetKey(key, ord), val)
}

// GetIoSetVals returns every member of the set stored under key, in
// insertion order.
func GetIoSetVals(tx Tx, table string, key []byte) ([][]byte, error) {
	c, err := tx.Cursor(table)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var out [][]byte
	k, v, err := c.Seek(key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for {
		if !bytes.HasPrefix(k, key) || len(k) != len(key)+16 {
			break
		}
		out = append(out, v)
		k, v, err = c.Next()
		if err == ErrNotFound {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DelIoSetVal removes val from the set stored under key, if present.
func DelIoSetVal(tx RwTx, table string, key, val []byte) error {
	c, err := tx.RwCursor(table)
	if err != nil {
		return err
	}
	defer c.Close()

	k, v, err := c.Seek(key)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	for {
		if !bytes.HasPrefix(k, key) || len(k) != len(key)+16 {
			return nil
		}
		if bytes.Equal(v, val) {
			return c.DelCurrent()
		}
		k, v, err = c.Next()
		if err == ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// DelIoSetVals removes every member of the set stored under key.
func DelIoSetVals(tx RwTx, table string, key []byte) error {
	members, err := GetIoSetVals(tx, table, key)
	if err != nil {
		return err
	}
	for _, v := range members {
		if err := DelIoSetVal(tx, table, key, v); err != nil {
			return err
		}
	}
	return nil
}

func errIoSetOverflow(key []byte) error {
	return &ordinalOverflowError{key: append([]byte(nil), key...)}
}

type ordinalOverflowError struct{ key []byte }

func (e *ordinalOverflowError) Error() string {
	return "kv: IoSet ordinal overflow for key " + string(e.key)
}
