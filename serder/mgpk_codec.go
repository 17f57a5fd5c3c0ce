package serder

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeMGPK renders ked as a MessagePack map with keys in declared
// order, using the encoder's explicit EncodeMapLen so the wire header
// reflects field count without the library re-sorting a Go map.
func encodeMGPK(ked Ked) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeMGPKKed(enc, ked); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMGPKKed(enc *msgpack.Encoder, ked Ked) error {
	if err := enc.EncodeMapLen(len(ked)); err != nil {
		return err
	}
	for _, f := range ked {
		if err := enc.EncodeString(f.Name); err != nil {
			return err
		}
		if err := encodeMGPKValue(enc, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodeMGPKValue(enc *msgpack.Encoder, v any) error {
	switch t := v.(type) {
	case Ked:
		return encodeMGPKKed(enc, t)
	case []any:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, item := range t {
			if err := encodeMGPKValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case []string:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, s := range t {
			if err := enc.EncodeString(s); err != nil {
				return err
			}
		}
		return nil
	case string:
		return enc.EncodeString(t)
	default:
		return enc.Encode(t)
	}
}

// decodeMGPK parses raw as a MessagePack map, preserving key order as it
// was written on the wire.
func decodeMGPK(raw []byte) (Ked, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	return decodeMGPKKed(dec)
}

func decodeMGPKKed(dec *msgpack.Decoder) (Ked, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	var ked Ked
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		val, err := decodeMGPKValue(dec)
		if err != nil {
			return nil, err
		}
		ked = append(ked, Field{Name: key, Value: val})
	}
	return ked, nil
}

func decodeMGPKValue(dec *msgpack.Decoder) (any, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case msgpack.IsMapCode(code):
		return decodeMGPKKed(dec)
	case msgpack.IsArrayCode(code):
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := decodeMGPKValue(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case msgpack.IsStringCode(code):
		return dec.DecodeString()
	default:
		return nil, fmt.Errorf("serder: unsupported MGPK code %#x in event dict", code)
	}
}
