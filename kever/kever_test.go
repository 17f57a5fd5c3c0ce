package kever

import (
	"testing"

	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

func newKeyPair(t *testing.T) (primitives.Signer, primitives.Nexter) {
	t.Helper()
	signer, err := primitives.NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{signer.Verfer()})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}
	return signer, nxt
}

func inceptChain(t *testing.T) (primitives.Signer, primitives.Signer, *Kever) {
	t.Helper()
	signer1, nxt1 := newKeyPair(t)
	signer2, _ := newKeyPair(t)
	// nxt1 commits to signer2's key so the rotation below can satisfy it.
	nxt1, err := primitives.NewNexter("1", []primitives.Verfer{signer2.Verfer()})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}

	s, aid, err := event.Incept(event.InceptionParams{
		Keys: []primitives.Verfer{signer1.Verfer()},
		Nxt:  nxt1,
		Code: event.Basic,
	})
	if err != nil {
		t.Fatalf("Incept: %v", err)
	}
	sig := signer1.Sign(s.Raw(), 0)
	ke, err := New(s, aid, []primitives.SigMat{sig})
	if err != nil {
		t.Fatalf("kever.New: %v", err)
	}
	if ke.State() != Live {
		t.Fatalf("expected Live state, got %v", ke.State())
	}
	return signer1, signer2, ke
}

func TestKeverConstructionFromIncept(t *testing.T) {
	_, _, ke := inceptChain(t)
	if ke.Sn() != 0 {
		t.Fatalf("expected sn 0 after construction, got %d", ke.Sn())
	}
}

func TestKeverRotation(t *testing.T) {
	signer1, signer2, ke := inceptChain(t)
	_ = signer1

	var finalNxt primitives.Nexter // zero value: Empty() true, signals abandonment
	rot, err := event.Rotate(event.RotationParams{
		Aid:  ke.Aider(),
		Keys: []primitives.Verfer{signer2.Verfer()},
		Dig:  ke.Diger(),
		Sn:   1,
		Nxt:  finalNxt,
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	sig := signer2.Sign(rot.Raw(), 0)
	if err := ke.Update(rot, []primitives.SigMat{sig}); err != nil {
		t.Fatalf("Update(rot): %v", err)
	}
	if ke.Sn() != 1 {
		t.Fatalf("expected sn 1 after rotation, got %d", ke.Sn())
	}
	if ke.State() != Abandoned {
		t.Fatalf("expected Abandoned after rotating to an empty nxt, got %v", ke.State())
	}
}

func TestKeverRejectsOutOfOrderSn(t *testing.T) {
	signer1, signer2, ke := inceptChain(t)
	_ = signer1

	rot, err := event.Rotate(event.RotationParams{
		Aid:  ke.Aider(),
		Keys: []primitives.Verfer{signer2.Verfer()},
		Dig:  ke.Diger(),
		Sn:   2, // should be 1
		Nxt:  ke.Nexter(),
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	sig := signer2.Sign(rot.Raw(), 0)
	err = ke.Update(rot, []primitives.SigMat{sig})
	if err == nil {
		t.Fatal("expected out-of-order rejection")
	}
}

func TestKeverRejectsMissingSignature(t *testing.T) {
	signer1, _, ke := inceptChain(t)
	_ = signer1

	ixn, err := event.Interact(event.InteractionParams{
		Aid: ke.Aider(),
		Dig: ke.Diger(),
		Sn:  1,
	})
	if err != nil {
		t.Fatalf("Interact: %v", err)
	}
	err = ke.Update(ixn, nil)
	if err == nil {
		t.Fatal("expected missing-signature rejection for unsigned ixn")
	}
}
