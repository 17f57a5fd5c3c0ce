package cmdutil

import (
	"context"
	"testing"

	"go.uber.org/zap"

	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"

	"github.com/Arsh-Sandhu/kerigo/baser"
	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/kever"
	"github.com/Arsh-Sandhu/kerigo/kevery"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

func TestParseStreamAcceptsCountedSigGroup(t *testing.T) {
	ctx := context.Background()
	store, err := baser.Open(kv.Options{Temp: true, Clear: true}, nil)
	if err != nil {
		t.Fatalf("baser.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	kvy, err := kevery.New(store, 0)
	if err != nil {
		t.Fatalf("kevery.New: %v", err)
	}

	signer, err := primitives.NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{signer.Verfer()})
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

	buf := append([]byte{}, s.Raw()...)
	buf = append(buf, []byte("-A01")...)
	buf = append(buf, []byte(sig.Qb64())...)

	if err := ParseStream(ctx, kvy, buf, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("ParseStream: %v", err)
	}

	ke, ok := kvy.Kever(aid.Qb64())
	if !ok {
		t.Fatal("expected a live Kever after parsing the stream")
	}
	if ke.State() != kever.Live {
		t.Fatalf("expected Live state, got %v", ke.State())
	}
}

// TestParserFeedResumesAcrossShortageBoundary exercises spec.md §9's
// resumable-parser design note directly: a single event+sig-group
// stream split partway through the serialized event across two Feed calls must suspend with a
// ShortageError on the first (short) call and fully commit once the
// rest arrives on the second, with no event reprocessed or lost.
func TestParserFeedResumesAcrossShortageBoundary(t *testing.T) {
	ctx := context.Background()
	store, err := baser.Open(kv.Options{Temp: true, Clear: true}, nil)
	if err != nil {
		t.Fatalf("baser.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	kvy, err := kevery.New(store, 0)
	if err != nil {
		t.Fatalf("kevery.New: %v", err)
	}

	signer, err := primitives.NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	nxt, err := primitives.NewNexter("1", []primitives.Verfer{signer.Verfer()})
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

	buf := append([]byte{}, s.Raw()...)
	buf = append(buf, []byte("-A01")...)
	buf = append(buf, []byte(sig.Qb64())...)

	// Split mid-event: the first chunk doesn't even contain the full
	// serialized event body.
	split := len(s.Raw()) / 2
	p := NewParser(kvy, zap.NewNop().Sugar())

	n, err := p.Feed(ctx, buf[:split])
	if n != 0 {
		t.Fatalf("expected 0 events processed from a short first chunk, got %d", n)
	}
	if err == nil {
		t.Fatal("expected a ShortageError suspending the first Feed call")
	}
	if !kerierr.Is(err, kerierr.ShortageError) {
		t.Fatalf("expected ShortageError, got %v", err)
	}
	if p.Pending() != split {
		t.Fatalf("expected %d bytes retained across the boundary, got %d", split, p.Pending())
	}

	n, err = p.Feed(ctx, buf[split:])
	if err != nil {
		t.Fatalf("Feed (remainder): %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 event processed once the stream completed, got %d", n)
	}
	if p.Pending() != 0 {
		t.Fatalf("expected an empty buffer after a full drain, got %d bytes pending", p.Pending())
	}

	ke, ok := kvy.Kever(aid.Qb64())
	if !ok {
		t.Fatal("expected a live Kever after the resumed parse completed")
	}
	if ke.State() != kever.Live {
		t.Fatalf("expected Live state, got %v", ke.State())
	}
}
