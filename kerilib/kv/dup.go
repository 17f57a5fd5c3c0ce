package kv

// GetAllDup returns every value stored under key in a DupSort table, in
// the b-tree's native lexicographic duplicate order. Used directly by
// tables where insertion order either doesn't matter or is already
// lexicographic (e.g. a signature index keyed by signer index).
func GetAllDup(tx Tx, table string, key []byte) ([][]byte, error) {
	c, err := tx.Cursor(table)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var out [][]byte
	_, v, err := c.SeekExact(key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out = append(out, v)
	for {
		v, err := c.NextDup()
		if err == ErrNotFound {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// AddDup inserts val as one more duplicate under key, silently doing
// nothing if the exact (key, val) pair is already present — DupSort
// tables never store the same (key, val) twice regardless of flags.
func AddDup(tx RwTx, table string, key, val []byte) error {
	c, err := tx.RwCursor(table)
	if err != nil {
		return err
	}
	defer c.Close()
	err = c.PutNoDupData(key, val)
	if err == ErrKeyExists {
		return nil
	}
	return err
}

// CntDupVals reports how many values are stored under key.
func CntDupVals(tx Tx, table string, key []byte) (int, error) {
	return tx.CntDup(table, key)
}

// DelDupVal removes exactly (key, val) from a DupSort table, leaving any
// other duplicates under key untouched.
func DelDupVal(tx RwTx, table string, key, val []byte) error {
	return tx.DeleteExact(table, key, val)
}

// DelAllDup removes every duplicate stored under key.
func DelAllDup(tx RwTx, table string, key []byte) error {
	return tx.Delete(table, key)
}
