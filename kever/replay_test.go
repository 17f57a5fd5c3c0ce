package kever

import (
	"context"
	"testing"

	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"

	"github.com/Arsh-Sandhu/kerigo/baser"
	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

func TestReplayFromBaserReconstructsState(t *testing.T) {
	ctx := context.Background()
	store, err := baser.Open(kv.Options{Temp: true, Clear: true}, nil)
	if err != nil {
		t.Fatalf("baser.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	signer, err := primitives.NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	signer2, err := primitives.NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{signer2.Verfer()})
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}

	s, aid, err := event.Incept(event.InceptionParams{
		Keys: []primitives.Verfer{signer.Verfer()},
		Nxt:  nxt,
		Code: event.Basic,
	})
	if err != nil {
		t.Fatalf("Incept: %v", err)
	}
	sig := signer.Sign(s.Raw(), 0)
	if err := store.PutAccepted(ctx, aid.Qb64(), s, []primitives.SigMat{sig}, "2026-07-31T00:00:00.000000+00:00", true); err != nil {
		t.Fatalf("PutAccepted(icp): %v", err)
	}

	var finalNxt primitives.Nexter
	rot, err := event.Rotate(event.RotationParams{
		Aid:  aid,
		Keys: []primitives.Verfer{signer2.Verfer()},
		Dig:  s.Diger(),
		Sn:   1,
		Nxt:  finalNxt,
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	rsig := signer2.Sign(rot.Raw(), 0)
	if err := store.PutAccepted(ctx, aid.Qb64(), rot, []primitives.SigMat{rsig}, "2026-07-31T00:00:01.000000+00:00", true); err != nil {
		t.Fatalf("PutAccepted(rot): %v", err)
	}

	ke, err := ReplayFromBaser(ctx, store, aid)
	if err != nil {
		t.Fatalf("ReplayFromBaser: %v", err)
	}
	if ke.Sn() != 1 {
		t.Fatalf("expected replayed sn 1, got %d", ke.Sn())
	}
	if ke.State() != Abandoned {
		t.Fatalf("expected Abandoned after replaying the final rotation, got %v", ke.State())
	}
}
