package serder

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeJSON writes ked as a JSON object with keys in declared order.
// encoding/json's own struct/map marshaling cannot do this (maps sort
// keys, structs need compile-time fields), so the object braces and
// key/value separators are written by hand while each scalar value still
// goes through encoding/json for correct string escaping and number
// formatting.
func encodeJSON(ked Ked) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range ked {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := encodeJSONValue(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeJSONValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case Ked:
		return encodeJSON(t)
	case []Ked:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, k := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := encodeJSON(k)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case []string:
		return json.Marshal(t)
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := encodeJSONValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(t)
	}
}

// decodeJSON parses raw preserving the source order of object keys at
// every nesting level, using json.Decoder's token stream rather than
// unmarshaling into a map (which would discard order).
func decodeJSON(raw []byte) (Ked, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("serder: JSON root is not an object")
	}
	return decodeJSONObject(dec)
}

func decodeJSONObject(dec *json.Decoder) (Ked, error) {
	var ked Ked
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("serder: non-string object key")
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		ked = append(ked, Field{Name: key, Value: val})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return ked, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			var out []any
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		default:
			return nil, fmt.Errorf("serder: unexpected JSON delimiter %v", t)
		}
	default:
		return t, nil
	}
}
