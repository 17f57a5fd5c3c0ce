// Package serder implements the versioned, size-framed event
// serialization described in spec.md §3/§4.C: JSON via a field-order
// preserving writer over encoding/json, CBOR with the map header and
// key/value pairs written in declared order and only scalars encoded by
// github.com/fxamacker/cbor/v2, and MGPK via
// github.com/vmihailenco/msgpack/v5.
package serder

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

// Kind names one of the three supported serialization formats.
type Kind string

const (
	JSON Kind = "JSON"
	CBOR Kind = "CBOR"
	MGPK Kind = "MGPK"
)

var versionRe = regexp.MustCompile(`^KERI10(JSON|CBOR|MGPK)([0-9a-f]{6})_`)

const versionStringLen = 18

// Field is one ordered (name, value) pair of an event dict. Values are
// either strings, nested []Field maps, or []any lists of strings/Fields,
// matching the limited JSON/CBOR/MGPK shapes KERI event dicts use.
type Field struct {
	Name  string
	Value any
}

// Ked is an ordered event dict: field order is significant and is
// preserved through every Kind's encoding, per spec.md §4.C.
type Ked []Field

// Get returns the value of the named field and whether it was present.
func (k Ked) Get(name string) (any, bool) {
	for _, f := range k {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the named field's value as a string, or "" if absent
// or not a string. It also honors the spec.md Open-Question compatibility
// rule: a reader asking for "aid" also accepts a legacy "pre" field, and
// vice versa, so the field-access layer — not every caller — absorbs the
// rename.
func (k Ked) GetString(name string) string {
	if v, ok := k.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if alt, ok := aidPreAlias[name]; ok {
		if v, ok := k.Get(alt); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

var aidPreAlias = map[string]string{"aid": "pre", "pre": "aid"}

// Serder is the parsed-and-verified form of one KERI event: its ordered
// dict, canonical bytes, framing kind, byte size, and content digest.
type Serder struct {
	ked  Ked
	raw  []byte
	kind Kind
	size int
	dig  primitives.Diger
}

// Ked returns the event's ordered field list.
func (s Serder) Ked() Ked { return s.ked }

// Raw returns the canonical serialized bytes.
func (s Serder) Raw() []byte { return s.raw }

// Kind reports the wire format the event was framed in.
func (s Serder) Kind() Kind { return s.kind }

// Size returns len(Raw()).
func (s Serder) Size() int { return s.size }

// Diger returns the Blake3-256 digest of Raw() in qb64 form.
func (s Serder) Diger() primitives.Diger { return s.dig }

// NewFromKed serializes ked in kind, computes its digest, and patches the
// version string's size field to the actual serialized length — the
// two-pass construction spec.md §3 describes ("serializes, computes
// digest, patches vs").
func NewFromKed(ked Ked, kind Kind) (Serder, error) {
	placeholder := Field{Name: "vs", Value: versionString(kind, 0)}
	withPlaceholder := replaceField(ked, placeholder)

	raw, err := encode(withPlaceholder, kind)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromKed", err)
	}
	final := replaceField(ked, Field{Name: "vs", Value: versionString(kind, len(raw))})
	raw, err = encode(final, kind)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromKed", err)
	}

	dig, err := primitives.NewDiger(raw, primitives.CodeBlake3_256)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromKed", err)
	}
	return Serder{ked: final, raw: raw, kind: kind, size: len(raw), dig: dig}, nil
}

// NewFromRaw parses the version string prefix of raw to learn kind and
// size, decodes exactly size bytes into a Ked, and computes the digest
// over those bytes, per spec.md §3's "construction from raw" path.
func NewFromRaw(raw []byte) (Serder, error) {
	if len(raw) < versionStringLen {
		return Serder{}, kerierr.New(kerierr.ShortageError, "serder.NewFromRaw", fmt.Errorf("buffer shorter than version string"))
	}
	m := versionRe.FindSubmatch(raw[:versionStringLen])
	if m == nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromRaw", fmt.Errorf("malformed version string %q", raw[:versionStringLen]))
	}
	kind := Kind(m[1])
	size, err := strconv.ParseInt(string(m[2]), 16, 64)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromRaw", err)
	}
	if int64(len(raw)) < size {
		return Serder{}, kerierr.New(kerierr.ShortageError, "serder.NewFromRaw", fmt.Errorf("buffer has %d bytes, want %d", len(raw), size))
	}
	body := raw[:size]

	ked, err := decode(body, kind)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromRaw", err)
	}
	dig, err := primitives.NewDiger(body, primitives.CodeBlake3_256)
	if err != nil {
		return Serder{}, kerierr.New(kerierr.ValidationError, "serder.NewFromRaw", err)
	}
	return Serder{ked: ked, raw: body, kind: kind, size: int(size), dig: dig}, nil
}

func versionString(kind Kind, size int) string {
	return fmt.Sprintf("KERI10%s%06x_", kind, size)
}

func replaceField(ked Ked, f Field) Ked {
	out := make(Ked, len(ked))
	found := false
	for i, existing := range ked {
		if existing.Name == f.Name {
			out[i] = f
			found = true
		} else {
			out[i] = existing
		}
	}
	if !found {
		out = append(Ked{f}, ked...)
	}
	return out
}

func encode(ked Ked, kind Kind) ([]byte, error) {
	switch kind {
	case JSON:
		return encodeJSON(ked)
	case CBOR:
		return encodeCBOR(ked)
	case MGPK:
		return encodeMGPK(ked)
	default:
		return nil, fmt.Errorf("serder: unknown kind %q", kind)
	}
}

func decode(raw []byte, kind Kind) (Ked, error) {
	switch kind {
	case JSON:
		return decodeJSON(raw)
	case CBOR:
		return decodeCBOR(raw)
	case MGPK:
		return decodeMGPK(raw)
	default:
		return nil, fmt.Errorf("serder: unknown kind %q", kind)
	}
}

