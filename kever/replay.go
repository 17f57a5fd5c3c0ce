package kever

import (
	"context"
	"fmt"

	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// Store is the subset of *baser.Baser this package replays against.
// Declaring it as an interface (rather than importing baser directly)
// avoids a kever -> baser -> kever import cycle, since baser's escrow
// policy will eventually want to construct Kevers of its own.
type Store interface {
	IterKel(ctx context.Context, aid string) ([]string, error)
	GetEvent(ctx context.Context, aid, dig string) ([]byte, error)
	GetSigs(ctx context.Context, aid, dig string) ([]primitives.SigMat, error)
}

// ReplayFromBaser rebuilds a Kever's in-memory state by walking an AID's
// first-seen log from the beginning and re-running every event through
// New/Update exactly as Kevery would live — the same incremental-replay
// approach the teacher's history reader applies to reconstruct account
// state from a changeset log rather than keeping a parallel snapshot.
func ReplayFromBaser(ctx context.Context, store Store, aid primitives.Aider) (*Kever, error) {
	digs, err := store.IterKel(ctx, aid.Qb64())
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "kever.ReplayFromBaser", err)
	}
	if len(digs) == 0 {
		return nil, kerierr.New(kerierr.ValidationError, "kever.ReplayFromBaser", fmt.Errorf("no events found for aid %s", aid.Qb64()))
	}

	raw0, err := store.GetEvent(ctx, aid.Qb64(), digs[0])
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "kever.ReplayFromBaser", err)
	}
	s0, err := serder.NewFromRaw(raw0)
	if err != nil {
		return nil, err
	}
	sigs0, err := store.GetSigs(ctx, aid.Qb64(), digs[0])
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "kever.ReplayFromBaser", err)
	}
	kv, err := New(s0, aid, sigs0)
	if err != nil {
		return nil, err
	}

	for _, dig := range digs[1:] {
		raw, err := store.GetEvent(ctx, aid.Qb64(), dig)
		if err != nil {
			return nil, kerierr.New(kerierr.StorageError, "kever.ReplayFromBaser", err)
		}
		s, err := serder.NewFromRaw(raw)
		if err != nil {
			return nil, err
		}
		sigs, err := store.GetSigs(ctx, aid.Qb64(), dig)
		if err != nil {
			return nil, kerierr.New(kerierr.StorageError, "kever.ReplayFromBaser", err)
		}
		ilk := event.Ilk(s.Ked().GetString("ilk"))
		if ilk == event.IlkIcp || ilk == event.IlkDip {
			continue
		}
		if err := kv.Update(s, sigs); err != nil {
			return nil, err
		}
	}
	return kv, nil
}
