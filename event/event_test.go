package event

import (
	"testing"

	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

func newVerfer(t *testing.T, transferable bool) primitives.Verfer {
	t.Helper()
	signer, err := primitives.NewSignerRandom(transferable)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	return signer.Verfer()
}

func TestInceptBasicDerivation(t *testing.T) {
	vf := newVerfer(t, true)
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{vf})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}
	s, aid, err := Incept(InceptionParams{
		Keys: []primitives.Verfer{vf},
		Nxt:  nxt,
		Code: Basic,
	})
	if err != nil {
		t.Fatalf("Incept: %v", err)
	}
	if aid.Qb64() != vf.Qb64() {
		t.Fatalf("expected basic-derivation aid to equal the first key, got %q want %q", aid.Qb64(), vf.Qb64())
	}
	if s.Ked().GetString("aid") != aid.Qb64() {
		t.Fatal("expected serialized aid field to match derived aid")
	}
}

func TestInceptSelfAddressingDerivation(t *testing.T) {
	vf := newVerfer(t, true)
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{vf})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}
	s, aid, err := Incept(InceptionParams{
		Keys: []primitives.Verfer{vf},
		Nxt:  nxt,
		Code: SelfAddressing,
	})
	if err != nil {
		t.Fatalf("Incept: %v", err)
	}
	if aid.Qb64() == vf.Qb64() {
		t.Fatal("expected self-addressing aid to differ from the raw key")
	}
	if s.Ked().GetString("ilk") != string(IlkIcp) {
		t.Fatal("expected ilk icp")
	}
}

func TestInceptRejectsNonTransferableWithNxt(t *testing.T) {
	vf := newVerfer(t, false)
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{vf})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}
	_, _, err = Incept(InceptionParams{
		Keys: []primitives.Verfer{vf},
		Nxt:  nxt,
		Code: Basic,
	})
	if err == nil {
		t.Fatal("expected rejection of non-transferable key with non-empty nxt")
	}
}

func TestRotateRejectsZeroSn(t *testing.T) {
	vf := newVerfer(t, true)
	aid, err := primitives.NewAiderBasic(vf)
	if err != nil {
		t.Fatalf("NewAiderBasic: %v", err)
	}
	dig, err := primitives.NewDiger([]byte("prior"), primitives.CodeBlake3_256)
	if err != nil {
		t.Fatalf("NewDiger: %v", err)
	}
	_, err = Rotate(RotationParams{
		Aid:  aid,
		Keys: []primitives.Verfer{vf},
		Dig:  dig,
		Sn:   0,
	})
	if err == nil {
		t.Fatal("expected rejection of rot with sn=0")
	}
}

func TestDecodeKeysRoundTrip(t *testing.T) {
	vf := newVerfer(t, true)
	ked := serder.Ked{
		{Name: "keys", Value: []any{vf.Qb64()}},
	}
	keys, err := DecodeKeys(ked)
	if err != nil {
		t.Fatalf("DecodeKeys: %v", err)
	}
	if len(keys) != 1 || keys[0].Qb64() != vf.Qb64() {
		t.Fatal("expected decoded key to match original verfer")
	}
}
