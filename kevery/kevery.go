// Package kevery implements the stream parser and event router of
// spec.md §4.F: it deserializes framed events plus their attached
// signature groups, looks up or creates the AID's Kever, and routes
// recoverable failures to escrow. An in-process google/btree orders
// escrow replay candidates by (aid, sn) so PendingCount and future
// drain passes can walk an AID's backlog in sequence order, and a
// hashicorp/golang-lru memo cache short-circuits a duplicate feed of
// an event digest already accepted this run.
package kevery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Arsh-Sandhu/kerigo/baser"
	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/kever"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// escrowItem orders pending replay candidates by (aid, sn) in the
// btree, so a drain sweep processes an AID's gaps in sequence order.
type escrowItem struct {
	aid string
	sn  uint64
	raw []byte
}

func (a escrowItem) Less(than btree.Item) bool {
	b := than.(escrowItem)
	if a.aid != b.aid {
		return a.aid < b.aid
	}
	return a.sn < b.sn
}

// Kevery holds live Kever state per AID plus the escrow store.
type Kevery struct {
	store   *baser.Baser
	kevers  map[string]*kever.Kever
	pending *btree.BTree
	memo    *lru.Cache[string, bool]
}

// New constructs a Kevery backed by store. memoSize bounds the memo of
// accepted event digests that lets a duplicate feed return early (0
// selects a sensible default).
func New(store *baser.Baser, memoSize int) (*Kevery, error) {
	if memoSize <= 0 {
		memoSize = 4096
	}
	cache, err := lru.New[string, bool](memoSize)
	if err != nil {
		return nil, kerierr.New(kerierr.ConfigurationError, "kevery.New", err)
	}
	return &Kevery{
		store:   store,
		kevers:  make(map[string]*kever.Kever),
		pending: btree.New(16),
		memo:    cache,
	}, nil
}

// Kever returns the live Kever for aid, if one has been constructed.
func (k *Kevery) Kever(aid string) (*kever.Kever, bool) {
	ke, ok := k.kevers[aid]
	return ke, ok
}

// ProcessEvent implements spec.md §4.F's processEvent: deserialize,
// route to the existing Kever or construct one for icp/dip, apply
// update, and escrow recoverable failures.
func (k *Kevery) ProcessEvent(ctx context.Context, raw []byte, sigers []primitives.SigMat, isoTs string) error {
	s, err := serder.NewFromRaw(raw)
	if err != nil {
		return err
	}
	ked := s.Ked()
	ilk := event.Ilk(ked.GetString("ilk"))
	aid := ked.GetString("aid")

	dig := s.Diger().Qb64()
	if _, seen := k.memo.Get(dig); seen {
		return nil
	}

	ke, exists := k.kevers[aid]
	if !exists {
		if ilk != event.IlkIcp && ilk != event.IlkDip {
			if err := k.store.EscrowPut(ctx, baser.EscrowOutOfOrder, aid, raw, sigers); err != nil {
				return err
			}
			return kerierr.New(kerierr.OutOfOrderError, "kevery.ProcessEvent", fmt.Errorf("no Kever for aid %s", aid))
		}
		aider, err := primitives.NewAiderFromQb64(aid)
		if err != nil {
			return kerierr.New(kerierr.ValidationError, "kevery.ProcessEvent", err)
		}
		newKe, err := kever.New(s, aider, sigers)
		if err != nil {
			return k.escrowOnFailure(ctx, err, aid, raw, sigers)
		}
		if err := k.store.PutAccepted(ctx, aid, s, sigers, isoTs, true); err != nil {
			return err
		}
		k.kevers[aid] = newKe
		k.memo.Add(dig, true)
		return k.drainEscrows(ctx, aid)
	}

	if err := ke.Update(s, sigers); err != nil {
		return k.escrowOnFailure(ctx, err, aid, raw, sigers)
	}
	isEst := ilk == event.IlkRot || ilk == event.IlkDrt
	if err := k.store.PutAccepted(ctx, aid, s, sigers, isoTs, isEst); err != nil {
		return err
	}
	k.memo.Add(dig, true)
	return k.drainEscrows(ctx, aid)
}

func (k *Kevery) escrowOnFailure(ctx context.Context, err error, aid string, raw []byte, sigers []primitives.SigMat) error {
	kind, ok := escrowTableFor(err)
	if !ok {
		return err
	}
	if perr := k.store.EscrowPut(ctx, kind, aid, raw, sigers); perr != nil {
		return perr
	}
	if s, derr := serder.NewFromRaw(raw); derr == nil {
		if sn, perr := strconv.ParseUint(s.Ked().GetString("sn"), 16, 64); perr == nil {
			k.pending.ReplaceOrInsert(escrowItem{aid: aid, sn: sn, raw: raw})
		}
	}
	return err
}

// PendingCount reports how many events escrowed this process's lifetime
// are still outstanding for aid, in (aid, sn) order. It is a best-effort
// in-memory diagnostic: the baser escrow tables, not this btree, are the
// durable record, so a restarted process reports zero until it escrows
// something again.
func (k *Kevery) PendingCount(aid string) int {
	n := 0
	k.pending.AscendGreaterOrEqual(escrowItem{aid: aid, sn: 0}, func(item btree.Item) bool {
		it := item.(escrowItem)
		if it.aid != aid {
			return false
		}
		n++
		return true
	})
	return n
}

func escrowTableFor(err error) (baser.EscrowKind, bool) {
	switch {
	case kerierr.Is(err, kerierr.OutOfOrderError):
		return baser.EscrowOutOfOrder, true
	case kerierr.Is(err, kerierr.MissingSignatureError):
		return baser.EscrowPartialSig, true
	case kerierr.Is(err, kerierr.LikelyDuplicitousError):
		return baser.EscrowLikelyDup, true
	default:
		return "", false
	}
}

// drainEscrows scans every recoverable escrow index for aid and replays
// entries that may now be processable, bounded to a single pass per
// accepted commit per spec.md §5's "at most one generation per accepted
// commit" rule. Each escrow entry carries its own (raw, sigers) pair
// (baser.EscrowEntry), so a genuinely-escrowed event — one that was
// never itself accepted and so never got a row in the sigs table — is
// replayed with the exact signature group it arrived with.
func (k *Kevery) drainEscrows(ctx context.Context, aid string) error {
	kinds := []baser.EscrowKind{baser.EscrowOutOfOrder, baser.EscrowPartialSig, baser.EscrowLikelyDup}
	for _, kind := range kinds {
		entries, err := k.store.EscrowGet(ctx, kind, aid)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := k.store.EscrowDelete(ctx, kind, aid, entry.Raw, entry.Sigers); err != nil {
				return err
			}
			if sDig, derr := serder.NewFromRaw(entry.Raw); derr == nil {
				if sn, perr := strconv.ParseUint(sDig.Ked().GetString("sn"), 16, 64); perr == nil {
					k.pending.Delete(escrowItem{aid: aid, sn: sn, raw: entry.Raw})
				}
			}
			_ = k.ProcessEvent(ctx, entry.Raw, entry.Sigers, "")
		}
	}
	return nil
}
