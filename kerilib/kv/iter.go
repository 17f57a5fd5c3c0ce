package kv

import "bytes"

// Item is one key/value pair yielded by the iterator helpers below.
type Item struct {
	Key []byte
	Val []byte
}

// GetOnItemIter walks the ordinal-keyed ("onKey") entries whose key
// shares prefix, in ascending ordinal order, starting at or after
// startOrd. onKey tables encode the ordinal directly into the table key
// (prefix + 32-hex ordinal, per spec.md §4.H), so this is a plain
// prefix-bounded forward cursor scan — no IoDup/IoSet decoding needed.
func GetOnItemIter(tx Tx, table string, prefix []byte, startOrd Ordinal) ([]Item, error) {
	c, err := tx.Cursor(table)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	seekKey := append(append([]byte(nil), prefix...), startOrd.Hex()...)
	k, v, err := c.Seek(seekKey)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Item
	for {
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		out = append(out, Item{Key: append([]byte(nil), k...), Val: append([]byte(nil), v...)})
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

// GetIoDupItemIter returns every IoDup value under key as an Item slice
// whose Val is already stripped of its ordinal prefix, for callers that
// want a uniform Item-based walk across the onKey/IoDup/IoSet families.
func GetIoDupItemIter(tx Tx, table string, key []byte) ([]Item, error) {
	vals, err := GetIoDupVals(tx, table, key)
	if err != nil {
		return nil, err
	}
	out := make([]Item, len(vals))
	for i, v := range vals {
		out[i] = Item{Key: key, Val: v}
	}
	return out, nil
}

// GetTopIoDupItemIter returns only the most recently inserted IoDup value
// under key, or false if key has no entries — used to read the
// latest-escrowed or latest-received-signature entry without walking the
// whole duplicate list.
func GetTopIoDupItemIter(tx Tx, table string, key []byte) (Item, bool, error) {
	vals, err := GetIoDupVals(tx, table, key)
	if err != nil {
		return Item{}, false, err
	}
	if len(vals) == 0 {
		return Item{}, false, nil
	}
	last := vals[len(vals)-1]
	return Item{Key: key, Val: last}, true, nil
}
