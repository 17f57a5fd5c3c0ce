package baser

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"

	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"

	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

// EscrowKind names one of the four recoverable-failure escrow indices
// spec.md §3/§7 describes.
type EscrowKind string

const (
	EscrowPartialSig EscrowKind = TablePses
	EscrowOutOfOrder EscrowKind = TableOoes
	EscrowLikelyDup  EscrowKind = TableLdes
	EscrowUnverified EscrowKind = TableUdes
)

// EscrowEntry is one pending event held in an escrow index: the raw
// event bytes plus the signature group it arrived with. A replay that
// only kept raw bytes could never re-verify a genuinely-escrowed event
// (it has no accepted sigs row to recover signatures from), so both
// halves travel together.
type EscrowEntry struct {
	Raw    []byte
	Sigers []primitives.SigMat
}

// escrowPayload is the wire shape EscrowEntry is packed into for
// storage, using the same vmihailenco/msgpack/v5 codec serder already
// depends on rather than hand-rolling a binary framing for this one
// internal record.
type escrowPayload struct {
	Raw    []byte   `msgpack:"raw"`
	Sigers []string `msgpack:"sigers"`
}

func encodeEscrowEntry(raw []byte, sigers []primitives.SigMat) ([]byte, error) {
	stored := make([]string, len(sigers))
	for i, s := range sigers {
		stored[i] = s.Stored()
	}
	return msgpack.Marshal(escrowPayload{Raw: raw, Sigers: stored})
}

func decodeEscrowEntry(data []byte) (EscrowEntry, error) {
	var p escrowPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return EscrowEntry{}, err
	}
	sigers := make([]primitives.SigMat, len(p.Sigers))
	for i, s := range p.Sigers {
		sm, err := primitives.ParseStoredSigMat(s)
		if err != nil {
			return EscrowEntry{}, err
		}
		sigers[i] = sm
	}
	return EscrowEntry{Raw: p.Raw, Sigers: sigers}, nil
}

// EscrowPut adds (raw, sigers) as a pending entry under aid in the given
// escrow index, preserving arrival order via the IoSet encoding so
// Kevery can retry entries in the order they were first seen.
func (b *Baser) EscrowPut(ctx context.Context, kind EscrowKind, aid string, raw []byte, sigers []primitives.SigMat) error {
	payload, err := encodeEscrowEntry(raw, sigers)
	if err != nil {
		return kerierr.New(kerierr.StorageError, "baser.EscrowPut", err)
	}
	err = b.env.Update(ctx, func(tx kv.RwTx) error {
		return kv.AddIoSetVal(tx, string(kind), []byte(aid), payload)
	})
	if err != nil {
		return kerierr.New(kerierr.StorageError, "baser.EscrowPut", err)
	}
	return nil
}

// EscrowGet returns every pending entry under aid in the given escrow
// index, in arrival order, with its originally-attached signature group.
func (b *Baser) EscrowGet(ctx context.Context, kind EscrowKind, aid string) ([]EscrowEntry, error) {
	var out []EscrowEntry
	err := b.env.View(ctx, func(tx kv.Tx) error {
		vals, err := kv.GetIoSetVals(tx, string(kind), []byte(aid))
		if err != nil {
			return err
		}
		for _, v := range vals {
			entry, derr := decodeEscrowEntry(v)
			if derr != nil {
				return derr
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "baser.EscrowGet", err)
	}
	return out, nil
}

// EscrowDelete removes one specific pending (raw, sigers) entry, used
// once Kevery has either accepted or permanently rejected it on retry.
func (b *Baser) EscrowDelete(ctx context.Context, kind EscrowKind, aid string, raw []byte, sigers []primitives.SigMat) error {
	payload, err := encodeEscrowEntry(raw, sigers)
	if err != nil {
		return kerierr.New(kerierr.StorageError, "baser.EscrowDelete", err)
	}
	err = b.env.Update(ctx, func(tx kv.RwTx) error {
		return kv.DelIoSetVal(tx, string(kind), []byte(aid), payload)
	})
	if err != nil {
		return kerierr.New(kerierr.StorageError, "baser.EscrowDelete", err)
	}
	return nil
}

// EscrowDrainAll returns every (aid, entries) pair currently pending in
// the given index, for Kevery's periodic escrow-drain sweep, then clears
// them — the caller re-adds any entry that still fails.
func (b *Baser) EscrowDrainAll(ctx context.Context, kind EscrowKind, aids []string) (map[string][]EscrowEntry, error) {
	out := make(map[string][]EscrowEntry, len(aids))
	for _, aid := range aids {
		entries, err := b.EscrowGet(ctx, kind, aid)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}
		out[aid] = entries
		if err := b.env.Update(ctx, func(tx kv.RwTx) error {
			return kv.DelIoSetVals(tx, string(kind), []byte(aid))
		}); err != nil {
			return nil, kerierr.New(kerierr.StorageError, "baser.EscrowDrainAll", err)
		}
	}
	return out, nil
}
