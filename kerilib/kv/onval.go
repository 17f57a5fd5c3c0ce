package kv

import "bytes"

// AppendOnVal implements spec.md §4.G's appendOnVal(top, val) -> on: it
// atomically finds the maximum ordinal already stored under top, writes
// val at the next one (or 0 if top has no entries yet), and returns the
// assigned ordinal. Keys are top || 32-hex(on), the same onKey encoding
// GetOnItemIter reads back (baser's fels table is the concrete example:
// the first-seen append-only log keyed by this exact scheme).
func AppendOnVal(tx RwTx, table string, top []byte, val []byte) (Ordinal, error) {
	last, found, err := lastOn(tx, table, top)
	if err != nil {
		return Ordinal{}, err
	}
	on := ZeroOrdinal
	if found {
		next, ok := last.Next()
		if !ok {
			return Ordinal{}, ErrOrdinalOverflow
		}
		on = next
	}
	key := make([]byte, 0, len(top)+32)
	key = append(key, top...)
	key = append(key, []byte(on.Hex())...)
	if err := tx.Put(table, key, val); err != nil {
		return Ordinal{}, err
	}
	return on, nil
}

// lastOn walks every key under top and returns the largest ordinal
// found, or false if top has no entries. A forward scan over the whole
// range rather than a reverse seek-to-last, matching GetOnItemIter's own
// forward-cursor style; onKey ranges are expected to be small relative
// to table-wide scans (one AID's event log), not system-wide.
func lastOn(tx Tx, table string, top []byte) (Ordinal, bool, error) {
	c, err := tx.Cursor(table)
	if err != nil {
		return Ordinal{}, false, err
	}
	defer c.Close()

	k, _, err := c.Seek(top)
	if err == ErrNotFound {
		return Ordinal{}, false, nil
	}
	if err != nil {
		return Ordinal{}, false, err
	}

	var last Ordinal
	found := false
	for {
		if !bytes.HasPrefix(k, top) {
			break
		}
		ord, perr := ParseOrdinal(string(k[len(top):]))
		if perr != nil {
			return Ordinal{}, false, perr
		}
		last = ord
		found = true
		k, _, err = c.Next()
		if err == ErrNotFound {
			break
		}
		if err != nil {
			return Ordinal{}, false, err
		}
	}
	return last, found, nil
}
