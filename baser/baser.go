package baser

import (
	"context"
	"fmt"

	kvhex "github.com/Arsh-Sandhu/kerigo-lib/hexutil"
	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"
	"go.uber.org/zap"

	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// Baser is the KEL-specific store: one MDBX environment (via kerilib/kv)
// opened against the Schema in tables.go, plus the zap logger every
// write path reports through explicitly rather than through a package
// global, per spec.md's ambient logging section.
type Baser struct {
	env *kv.Env
	log *zap.SugaredLogger
}

// Open opens (or creates) the KEL database at the given options.
func Open(opts kv.Options, log *zap.SugaredLogger) (*Baser, error) {
	env, err := kv.Open(Schema, opts)
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "baser.Open", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Baser{env: env, log: log}, nil
}

// Close releases the environment.
func (b *Baser) Close() error {
	return b.env.Close()
}

// PutAccepted commits one newly accepted event and its signatures in a
// single transaction, per spec.md §4.H's persistence policy: evts, sigs,
// dtss, kels (first-seen-ordering duplicate set keyed by sn), fels
// (first-seen append-only ordinal), and aeds (updated only for
// establishment ilks) all land atomically.
func (b *Baser) PutAccepted(ctx context.Context, aid string, s serder.Serder, sigers []primitives.SigMat, isoTs string, isEstablishment bool) error {
	dig := s.Diger().Qb64()
	dgk := DgKey(aid, dig)

	err := b.env.Update(ctx, func(tx kv.RwTx) error {
		if err := tx.PutNoOverwrite(TableEvts, dgk, s.Raw()); err != nil && err != kv.ErrKeyExists {
			return err
		}
		for _, sv := range sigMatQb64s(sigers) {
			if err := kv.AddIoSetVal(tx, TableSigs, dgk, sv); err != nil {
				return err
			}
		}
		if err := tx.Put(TableDtss, dgk, []byte(isoTs)); err != nil {
			return err
		}
		sn, ok := snOf(s.Ked())
		if !ok {
			return fmt.Errorf("baser: event missing sn")
		}
		snk := SnKey(aid, sn)
		if err := kv.AddIoSetVal(tx, TableKels, snk, []byte(dig)); err != nil {
			return err
		}

		if _, err := kv.AppendOnVal(tx, TableFels, []byte(aid+"."), []byte(dig)); err != nil {
			return err
		}

		if isEstablishment {
			if err := tx.Put(TableAeds, []byte(aid), []byte(dig)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return kerierr.New(kerierr.StorageError, "baser.PutAccepted", err)
	}
	return nil
}

func sigMatQb64s(sigers []primitives.SigMat) [][]byte {
	out := make([][]byte, len(sigers))
	for i, s := range sigers {
		out[i] = []byte(s.Stored())
	}
	return out
}

// GetSigs returns the signatures stored for (aid, dig), in insertion
// order.
func (b *Baser) GetSigs(ctx context.Context, aid, dig string) ([]primitives.SigMat, error) {
	var out []primitives.SigMat
	err := b.env.View(ctx, func(tx kv.Tx) error {
		vals, err := kv.GetIoSetVals(tx, TableSigs, DgKey(aid, dig))
		if err != nil {
			return err
		}
		for _, v := range vals {
			sig, err := primitives.ParseStoredSigMat(string(v))
			if err != nil {
				return err
			}
			out = append(out, sig)
		}
		return nil
	})
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "baser.GetSigs", err)
	}
	return out, nil
}

func snOf(ked serder.Ked) (uint64, bool) {
	return kvhex.ParseUint64(ked.GetString("sn"))
}

// GetEvent returns the raw event bytes stored at dgKey(aid, dig).
func (b *Baser) GetEvent(ctx context.Context, aid, dig string) ([]byte, error) {
	var raw []byte
	err := b.env.View(ctx, func(tx kv.Tx) error {
		v, err := tx.GetOne(TableEvts, DgKey(aid, dig))
		if err != nil {
			return err
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, kerierr.New(kerierr.ValidationError, "baser.GetEvent", err)
		}
		return nil, kerierr.New(kerierr.StorageError, "baser.GetEvent", err)
	}
	return raw, nil
}

// GetKelAt returns every event digest accepted at (aid, sn), in
// insertion order; length greater than one signals recovery or
// duplicity per spec.md §3.
func (b *Baser) GetKelAt(ctx context.Context, aid string, sn uint64) ([]string, error) {
	var digs []string
	err := b.env.View(ctx, func(tx kv.Tx) error {
		vals, err := kv.GetIoSetVals(tx, TableKels, SnKey(aid, sn))
		if err != nil {
			return err
		}
		for _, v := range vals {
			digs = append(digs, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "baser.GetKelAt", err)
	}
	return digs, nil
}

// IterKel walks the first-seen log (fels.) for aid from the beginning,
// returning event digests in acceptance order — the replay sequence
// kever.ReplayFromBaser consumes.
func (b *Baser) IterKel(ctx context.Context, aid string) ([]string, error) {
	var digs []string
	err := b.env.View(ctx, func(tx kv.Tx) error {
		items, err := kv.GetOnItemIter(tx, TableFels, []byte(aid+"."), kv.ZeroOrdinal)
		if err != nil {
			return err
		}
		for _, it := range items {
			digs = append(digs, string(it.Val))
		}
		return nil
	})
	if err != nil {
		return nil, kerierr.New(kerierr.StorageError, "baser.IterKel", err)
	}
	return digs, nil
}

// LatestEstablishmentDigest returns the digest stored in aeds. for aid.
func (b *Baser) LatestEstablishmentDigest(ctx context.Context, aid string) (string, error) {
	var dig string
	err := b.env.View(ctx, func(tx kv.Tx) error {
		v, err := tx.GetOne(TableAeds, []byte(aid))
		if err != nil {
			return err
		}
		dig = string(v)
		return nil
	})
	if err != nil {
		if err == kv.ErrNotFound {
			return "", kerierr.New(kerierr.ValidationError, "baser.LatestEstablishmentDigest", err)
		}
		return "", kerierr.New(kerierr.StorageError, "baser.LatestEstablishmentDigest", err)
	}
	return dig, nil
}
