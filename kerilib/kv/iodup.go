package kv

import (
	"bytes"
	"fmt"
)

// The IoDup encoding absorbs an insertion-order ordinal into the front of
// the stored value: "<32-hex-ordinal>.<value>". Because the ordinal is a
// fixed-width, zero-padded big-endian counter, the DupSort b-tree's native
// lexicographic comparator on the combined value coincides with insertion
// order, which is the property spec.md §4.G calls IoDup: "insertion-order
// duplicate emulation" over a store whose duplicate comparator is
// otherwise only lexicographic.

const ordinalHexLen = 32

func encodeIoDupVal(ord Ordinal, val []byte) []byte {
	buf := make([]byte, 0, ordinalHexLen+1+len(val))
	buf = append(buf, []byte(ord.Hex())...)
	buf = append(buf, '.')
	buf = append(buf, val...)
	return buf
}

func decodeIoDupVal(stored []byte) (Ordinal, []byte, error) {
	if len(stored) < ordinalHexLen+1 || stored[ordinalHexLen] != '.' {
		return Ordinal{}, nil, fmt.Errorf("kv: malformed IoDup value %q", stored)
	}
	ord, err := ParseOrdinal(string(stored[:ordinalHexLen]))
	if err != nil {
		return Ordinal{}, nil, err
	}
	return ord, stored[ordinalHexLen+1:], nil
}

// PutIoDupVals replaces every value currently stored under key with vals,
// in the given order: vals[0] becomes the first duplicate read back by
// GetIoDupVals, and so on.
func PutIoDupVals(tx RwTx, table string, key []byte, vals [][]byte) error {
	if err := tx.Delete(table, key); err != nil {
		return err
	}
	c, err := tx.RwCursor(table)
	if err != nil {
		return err
	}
	defer c.Close()
	ord := ZeroOrdinal
	for _, v := range vals {
		if err := c.Put(key, encodeIoDupVal(ord, v)); err != nil {
			return err
		}
		next, ok := ord.Next()
		if !ok {
			return fmt.Errorf("kv: IoDup ordinal overflow for key %x", key)
		}
		ord = next
	}
	return nil
}

// AddIoDupVal appends val as the newest duplicate under key, assigning it
// the next ordinal after whatever is currently last.
func AddIoDupVal(tx RwTx, table string, key, val []byte) error {
	c, err := tx.RwCursor(table)
	if err != nil {
		return err
	}
	defer c.Close()

	next := ZeroOrdinal
	if _, _, serr := c.SeekExact(key); serr == nil {
		lv, lerr := c.LastDup()
		if lerr != nil && lerr != ErrNotFound {
			return lerr
		}
		if lerr == nil {
			ord, _, derr := decodeIoDupVal(lv)
			if derr != nil {
				return derr
			}
			n, ok := ord.Next()
			if !ok {
				return fmt.Errorf("kv: IoDup ordinal overflow for key %x", key)
			}
			next = n
		}
	} else if serr != ErrNotFound {
		return serr
	}
	return c.Put(key, encodeIoDupVal(next, val))
}

// GetIoDupVals returns every value stored under key in insertion order.
func GetIoDupVals(tx Tx, table string, key []byte) ([][]byte, error) {
	raw, err := GetAllDup(tx, table, key)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(raw))
	for _, r := range raw {
		_, v, err := decodeIoDupVal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CntIoDupVals reports how many values are stored under key.
func CntIoDupVals(tx Tx, table string, key []byte) (int, error) {
	return tx.CntDup(table, key)
}

// DelIoDupVal removes the first stored duplicate under key whose decoded
// value equals val, preserving the ordinal prefixes (and hence the
// insertion order) of whatever remains.
func DelIoDupVal(tx RwTx, table string, key, val []byte) error {
	raw, err := GetAllDup(tx, table, key)
	if err != nil {
		return err
	}
	for _, r := range raw {
		_, v, derr := decodeIoDupVal(r)
		if derr != nil {
			return derr
		}
		if bytes.Equal(v, val) {
			return tx.DeleteExact(table, key, r)
		}
	}
	return nil
}

// DelIoDupVals removes every duplicate stored under key.
func DelIoDupVals(tx RwTx, table string, key []byte) error {
	return tx.Delete(table, key)
}
