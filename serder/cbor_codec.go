package serder

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR major types used by this codec.
const (
	cborMajorText  = 3
	cborMajorArray = 4
	cborMajorMap   = 5
)

// cborHeader encodes a CBOR initial byte plus any following length bytes
// for a definite-length item of the given major type and count, per the
// core CBOR specification's additional-information encoding.
func cborHeader(major byte, n uint64) []byte {
	mt := major << 5
	switch {
	case n < 24:
		return []byte{mt | byte(n)}
	case n <= 0xff:
		return []byte{mt | 24, byte(n)}
	case n <= 0xffff:
		return []byte{mt | 25, byte(n >> 8), byte(n)}
	case n <= 0xffffffff:
		return []byte{mt | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		b := make([]byte, 9)
		b[0] = mt | 27
		for i := 0; i < 8; i++ {
			b[8-i] = byte(n >> (8 * i))
		}
		return b
	}
}

// cborReadHeader decodes a definite-length CBOR item header, returning
// the declared major type, the count, and the number of header bytes
// consumed.
func cborReadHeader(b []byte) (major byte, n uint64, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, 0, fmt.Errorf("serder: empty CBOR buffer")
	}
	major = b[0] >> 5
	ai := b[0] & 0x1f
	switch {
	case ai < 24:
		return major, uint64(ai), 1, nil
	case ai == 24:
		if len(b) < 2 {
			return 0, 0, 0, fmt.Errorf("serder: truncated CBOR length")
		}
		return major, uint64(b[1]), 2, nil
	case ai == 25:
		if len(b) < 3 {
			return 0, 0, 0, fmt.Errorf("serder: truncated CBOR length")
		}
		return major, uint64(b[1])<<8 | uint64(b[2]), 3, nil
	case ai == 26:
		if len(b) < 5 {
			return 0, 0, 0, fmt.Errorf("serder: truncated CBOR length")
		}
		var n uint64
		for i := 0; i < 4; i++ {
			n = n<<8 | uint64(b[1+i])
		}
		return major, n, 5, nil
	case ai == 27:
		if len(b) < 9 {
			return 0, 0, 0, fmt.Errorf("serder: truncated CBOR length")
		}
		var n uint64
		for i := 0; i < 8; i++ {
			n = n<<8 | uint64(b[1+i])
		}
		return major, n, 9, nil
	default:
		return 0, 0, 0, fmt.Errorf("serder: unsupported CBOR additional info %d (indefinite length unsupported)", ai)
	}
}

// encodeCBOR renders ked as a CBOR map with keys in declared order. Map
// key-sort is the default behavior fxamacker/cbor applies to Go maps, so
// the map header and key/value pairs are written directly instead,
// delegating only scalar value encoding back to the library.
func encodeCBOR(ked Ked) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cborHeader(cborMajorMap, uint64(len(ked))))
	for _, f := range ked {
		kb, err := cbor.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		vb, err := encodeCBORValue(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	return buf.Bytes(), nil
}

func encodeCBORValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case Ked:
		return encodeCBOR(t)
	case []any:
		var buf bytes.Buffer
		buf.Write(cborHeader(cborMajorArray, uint64(len(t))))
		for _, item := range t {
			b, err := encodeCBORValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		return buf.Bytes(), nil
	case []string:
		var buf bytes.Buffer
		buf.Write(cborHeader(cborMajorArray, uint64(len(t))))
		for _, s := range t {
			b, err := cbor.Marshal(s)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		return buf.Bytes(), nil
	default:
		return cbor.Marshal(t)
	}
}

// decodeCBOR parses raw as a CBOR map, preserving key order as it was
// written on the wire.
func decodeCBOR(raw []byte) (Ked, error) {
	ked, _, err := decodeCBORMap(raw)
	return ked, err
}

func decodeCBORMap(raw []byte) (Ked, int, error) {
	major, n, hdrLen, err := cborReadHeader(raw)
	if err != nil {
		return nil, 0, err
	}
	if major != cborMajorMap {
		return nil, 0, fmt.Errorf("serder: expected CBOR map, got major type %d", major)
	}
	pos := hdrLen
	var ked Ked
	for i := uint64(0); i < n; i++ {
		var key string
		keyLen, err := cborUnmarshalOne(raw[pos:], &key)
		if err != nil {
			return nil, 0, err
		}
		pos += keyLen

		val, valLen, err := decodeCBORValue(raw[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += valLen
		ked = append(ked, Field{Name: key, Value: val})
	}
	return ked, pos, nil
}

func decodeCBORValue(raw []byte) (any, int, error) {
	major, _, _, err := cborReadHeader(raw)
	if err != nil {
		return nil, 0, err
	}
	switch major {
	case cborMajorMap:
		return decodeCBORMapAsAny(raw)
	case cborMajorArray:
		return decodeCBORArray(raw)
	default:
		var s any
		n, err := cborUnmarshalOne(raw, &s)
		return s, n, err
	}
}

func decodeCBORMapAsAny(raw []byte) (any, int, error) {
	ked, n, err := decodeCBORMap(raw)
	return ked, n, err
}

func decodeCBORArray(raw []byte) (any, int, error) {
	_, n, hdrLen, err := cborReadHeader(raw)
	if err != nil {
		return nil, 0, err
	}
	pos := hdrLen
	out := make([]any, 0, n)
	for i := uint64(0); i < n; i++ {
		v, vn, err := decodeCBORValue(raw[pos:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
		pos += vn
	}
	return out, pos, nil
}

// cborUnmarshalOne decodes exactly one CBOR data item from the front of
// raw into dst, returning how many bytes it consumed.
func cborUnmarshalOne(raw []byte, dst any) (int, error) {
	dec := cbor.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		return 0, err
	}
	return dec.NumBytesRead(), nil
}
