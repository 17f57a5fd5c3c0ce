// Package event implements the three event factories of spec.md §4.D:
// incept, rotate, and interact. Factories build a Serder and, for icp,
// derive the Aider; they never validate against prior chain state — that
// is kever's job.
package event

import (
	"fmt"
	"strconv"

	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// Ilk names one of the event types spec.md §6 lists; core validates the
// first five (icp, rot, ixn, dip, drt).
type Ilk string

const (
	IlkIcp Ilk = "icp"
	IlkRot Ilk = "rot"
	IlkIxn Ilk = "ixn"
	IlkDip Ilk = "dip"
	IlkDrt Ilk = "drt"
	IlkRct Ilk = "rct"
	IlkVrc Ilk = "vrc"
	IlkRpy Ilk = "rpy"
	IlkIss Ilk = "iss"
	IlkRev Ilk = "rev"
	IlkVcp Ilk = "vcp"
	IlkVrt Ilk = "vrt"
	IlkBis Ilk = "bis"
	IlkBrv Ilk = "brv"
)

// DerivationCode selects which Aider derivation incept uses.
type DerivationCode int

const (
	// Basic copies the first inception key's raw bytes (and code) as
	// the AID, per spec.md §4.D step 2.
	Basic DerivationCode = iota
	// SelfAddressing hashes the inception record with its aid field
	// blanked.
	SelfAddressing
)

func hexN(n int) string { return strconv.FormatInt(int64(n), 16) }

// InceptionParams bundles incept's arguments; zero Sith/Kind select the
// spec's defaults (Sith = len(Keys), Kind = serder.JSON).
type InceptionParams struct {
	Keys  []primitives.Verfer
	Sith  int // 0 means len(Keys)
	Nxt   primitives.Nexter
	Toad  int
	Wits  []string
	Cnfg  []string
	Code  DerivationCode
	Kind  serder.Kind
}

// Incept builds an icp event. Per spec.md §4.D step 1, a key set that
// contains any non-transferable key (code B) forbids a non-empty nxt.
func Incept(p InceptionParams) (serder.Serder, primitives.Aider, error) {
	if len(p.Keys) == 0 {
		return serder.Serder{}, primitives.Aider{}, kerierr.New(kerierr.ValidationError, "event.Incept", fmt.Errorf("at least one key required"))
	}
	sith := p.Sith
	if sith == 0 {
		sith = len(p.Keys)
	}
	kind := p.Kind
	if kind == "" {
		kind = serder.JSON
	}

	for _, k := range p.Keys {
		if !k.Transferable() && !p.Nxt.Empty() {
			return serder.Serder{}, primitives.Aider{}, kerierr.New(kerierr.DerivationError, "event.Incept", fmt.Errorf("non-transferable key with non-empty nxt"))
		}
	}

	keyStrs := make([]any, len(p.Keys))
	for i, k := range p.Keys {
		keyStrs[i] = k.Qb64()
	}
	witStrs := make([]any, len(p.Wits))
	for i, w := range p.Wits {
		witStrs[i] = w
	}
	cnfgStrs := make([]any, len(p.Cnfg))
	for i, c := range p.Cnfg {
		cnfgStrs[i] = c
	}

	ked := serder.Ked{
		{Name: "vs", Value: ""},
		{Name: "aid", Value: ""},
		{Name: "sn", Value: "0"},
		{Name: "ilk", Value: string(IlkIcp)},
		{Name: "sith", Value: hexN(sith)},
		{Name: "keys", Value: keyStrs},
		{Name: "nxt", Value: p.Nxt.Qb64()},
		{Name: "toad", Value: hexN(p.Toad)},
		{Name: "wits", Value: witStrs},
		{Name: "cnfg", Value: cnfgStrs},
	}

	blank, err := serder.NewFromKed(ked, kind)
	if err != nil {
		return serder.Serder{}, primitives.Aider{}, err
	}

	var aider primitives.Aider
	switch p.Code {
	case Basic:
		aider, err = primitives.NewAiderBasic(p.Keys[0])
	case SelfAddressing:
		aider, err = primitives.NewAiderSelfAddressing(blank.Raw(), primitives.CodeBlake3_256)
	default:
		err = fmt.Errorf("event.Incept: unknown derivation code %d", p.Code)
	}
	if err != nil {
		return serder.Serder{}, primitives.Aider{}, kerierr.New(kerierr.ValidationError, "event.Incept", err)
	}

	final := patchField(ked, "aid", aider.Qb64())
	s, err := serder.NewFromKed(final, kind)
	if err != nil {
		return serder.Serder{}, primitives.Aider{}, err
	}
	return s, aider, nil
}

// RotationParams bundles rotate's arguments.
type RotationParams struct {
	Aid  primitives.Aider
	Keys []primitives.Verfer
	Dig  primitives.Diger // prior event digest
	Sn   int
	Sith int // 0 means len(Keys)
	Nxt  primitives.Nexter
	Toad int
	Cuts []string
	Adds []string
	Data []string
	Kind serder.Kind
}

// Rotate builds a rot event. Per spec.md §4.D, sn must be at least 1;
// this factory does not verify the chain against prior state, only its
// own argument shape.
func Rotate(p RotationParams) (serder.Serder, error) {
	if p.Sn < 1 {
		return serder.Serder{}, kerierr.New(kerierr.ValidationError, "event.Rotate", fmt.Errorf("sn must be >= 1, got %d", p.Sn))
	}
	sith := p.Sith
	if sith == 0 {
		sith = len(p.Keys)
	}
	kind := p.Kind
	if kind == "" {
		kind = serder.JSON
	}

	keyStrs := make([]any, len(p.Keys))
	for i, k := range p.Keys {
		keyStrs[i] = k.Qb64()
	}
	cutStrs := make([]any, len(p.Cuts))
	for i, c := range p.Cuts {
		cutStrs[i] = c
	}
	addStrs := make([]any, len(p.Adds))
	for i, a := range p.Adds {
		addStrs[i] = a
	}
	dataStrs := make([]any, len(p.Data))
	for i, d := range p.Data {
		dataStrs[i] = d
	}

	ked := serder.Ked{
		{Name: "vs", Value: ""},
		{Name: "aid", Value: p.Aid.Qb64()},
		{Name: "sn", Value: hexN(p.Sn)},
		{Name: "ilk", Value: string(IlkRot)},
		{Name: "dig", Value: p.Dig.Qb64()},
		{Name: "sith", Value: hexN(sith)},
		{Name: "keys", Value: keyStrs},
		{Name: "nxt", Value: p.Nxt.Qb64()},
		{Name: "toad", Value: hexN(p.Toad)},
		{Name: "cuts", Value: cutStrs},
		{Name: "adds", Value: addStrs},
		{Name: "data", Value: dataStrs},
	}
	return serder.NewFromKed(ked, kind)
}

// InteractionParams bundles interact's arguments.
type InteractionParams struct {
	Aid  primitives.Aider
	Dig  primitives.Diger
	Sn   int
	Data []string
	Kind serder.Kind
}

// Interact builds an ixn event: pure construction, no chain validation.
func Interact(p InteractionParams) (serder.Serder, error) {
	if p.Sn < 1 {
		return serder.Serder{}, kerierr.New(kerierr.ValidationError, "event.Interact", fmt.Errorf("sn must be >= 1, got %d", p.Sn))
	}
	kind := p.Kind
	if kind == "" {
		kind = serder.JSON
	}
	dataStrs := make([]any, len(p.Data))
	for i, d := range p.Data {
		dataStrs[i] = d
	}
	ked := serder.Ked{
		{Name: "vs", Value: ""},
		{Name: "aid", Value: p.Aid.Qb64()},
		{Name: "sn", Value: hexN(p.Sn)},
		{Name: "ilk", Value: string(IlkIxn)},
		{Name: "dig", Value: p.Dig.Qb64()},
		{Name: "data", Value: dataStrs},
	}
	return serder.NewFromKed(ked, kind)
}

func patchField(ked serder.Ked, name string, val any) serder.Ked {
	out := make(serder.Ked, len(ked))
	copy(out, ked)
	for i, f := range out {
		if f.Name == name {
			out[i] = serder.Field{Name: name, Value: val}
		}
	}
	return out
}

// DecodeKeys parses a ked's "keys" field into Verfers.
func DecodeKeys(ked serder.Ked) ([]primitives.Verfer, error) {
	v, ok := ked.Get("keys")
	if !ok {
		return nil, fmt.Errorf("event: ked has no keys field")
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("event: keys field is not a list")
	}
	out := make([]primitives.Verfer, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("event: key entry is not a string")
		}
		m, err := primitives.NewCryMatFromQb64(s)
		if err != nil {
			return nil, err
		}
		vf, err := primitives.NewVerfer(m)
		if err != nil {
			return nil, err
		}
		out = append(out, vf)
	}
	return out, nil
}
