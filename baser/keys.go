package baser

import (
	"fmt"
	"strings"

	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"
)

// DgKey builds the dgKey(aid, dig) key described in spec.md §3:
// aid || '.' || dig.
func DgKey(aid, dig string) []byte {
	return []byte(aid + "." + dig)
}

// SnKey builds the snKey(aid, sn) key: aid || '.' || 32-hex(sn).
func SnKey(aid string, sn uint64) []byte {
	return []byte(aid + "." + kv.OrdinalFromUint64(sn).Hex())
}

// OnKey builds the onKey(top, on) key: top || sep || 32-hex(on), with
// sep defaulting to '.'.
func OnKey(top string, on kv.Ordinal, sep byte) []byte {
	if sep == 0 {
		sep = '.'
	}
	return append([]byte(top+string(sep)), on.Hex()...)
}

// DtKey builds the dtKey(aid, isoTs) key: aid || '|' || isoTs. A
// distinct separator is required because ISO-8601 timestamps contain
// '.' themselves.
func DtKey(aid, isoTs string) []byte {
	return []byte(aid + "|" + isoTs)
}

// SplitSnKey reverses SnKey, recovering aid and sn.
func SplitSnKey(key []byte) (aid string, sn uint64, err error) {
	s := string(key)
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 || len(s)-idx-1 != 32 {
		return "", 0, fmt.Errorf("baser: malformed snKey %q", s)
	}
	ord, err := kv.ParseOrdinal(s[idx+1:])
	if err != nil {
		return "", 0, err
	}
	return s[:idx], ordinalToUint64(ord), nil
}

// SplitDgKey reverses DgKey, recovering aid and dig. Since neither aid
// nor dig qb64 text ever contains '.', the first '.' is the separator.
func SplitDgKey(key []byte) (aid, dig string, err error) {
	s := string(key)
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return "", "", fmt.Errorf("baser: malformed dgKey %q", s)
	}
	return s[:idx], s[idx+1:], nil
}

func ordinalToUint64(o kv.Ordinal) uint64 {
	var v uint64
	for i := 8; i < 16; i++ {
		v = v<<8 | uint64(o[i])
	}
	return v
}
