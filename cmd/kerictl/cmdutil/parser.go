package cmdutil

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/kevery"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// Parser is spec.md §9's "coroutine parser" design note reimplemented as
// a state machine: a growable buffer plus a cursor, rather than a
// generator-based co-routine. Feed appends bytes and routes every
// complete (event, sigers) pair it can find through ProcessEvent,
// suspending at the first ShortageError boundary instead of failing the
// whole stream. The caller then feeds more bytes and calls Feed again,
// which resumes from exactly the buffer position the previous call
// left off at — retrying is idempotent, since the unconsumed prefix
// stays buffered rather than being discarded.
type Parser struct {
	kvy *kevery.Kevery
	log *zap.SugaredLogger
	buf []byte
}

// NewParser constructs a Parser against kvy, logging escrowed events
// through log.
func NewParser(kvy *kevery.Kevery, log *zap.SugaredLogger) *Parser {
	return &Parser{kvy: kvy, log: log}
}

// Pending reports how many unconsumed bytes are currently buffered,
// awaiting either more data (a prior Feed suspended on ShortageError) or
// the next Feed call entirely.
func (p *Parser) Pending() int { return len(p.buf) }

// Feed appends data to the parser's buffer and processes as many
// complete (event, sigers) pairs as it can, per spec.md §4.F's
// count-code framing. It returns the number of events routed through
// ProcessEvent this call.
//
// If the buffer runs out mid-primitive, Feed returns a ShortageError
// (kerierr.Is(err, kerierr.ShortageError) reports true) and retains the
// unconsumed bytes rather than discarding them; the caller should obtain
// more bytes and call Feed again. Any other error is fatal: the stream
// position at the start of the failing event is not retried.
//
// Matching spec.md §7's propagation rule, an escrowable ProcessEvent
// failure is logged and the stream continues; any other ProcessEvent
// failure aborts Feed immediately.
func (p *Parser) Feed(ctx context.Context, data []byte) (int, error) {
	p.buf = append(p.buf, data...)
	processed := 0
	for len(p.buf) > 0 {
		s, err := serder.NewFromRaw(p.buf)
		if err != nil {
			return processed, err
		}

		sigers, n, err := readCountedSigGroup(p.buf[s.Size():])
		if err != nil {
			return processed, err
		}

		raw := append([]byte(nil), p.buf[:s.Size()]...)
		p.buf = p.buf[s.Size()+n:]

		isoTs := time.Now().UTC().Format("2006-01-02T15:04:05.000000+00:00")
		if perr := p.kvy.ProcessEvent(ctx, raw, sigers, isoTs); perr != nil {
			if kerierr.IsEscrowable(perr) {
				p.log.Infow("event escrowed", "error", perr)
				processed++
				continue
			}
			return processed, perr
		}
		processed++
	}
	return processed, nil
}

// ParseStream is a one-shot convenience wrapper over Parser for callers
// with the whole stream already in memory: it feeds buf in a single
// call and treats a trailing ShortageError (an incomplete event at the
// end of buf) as a fatal error, since there is no further data to feed.
func ParseStream(ctx context.Context, kvy *kevery.Kevery, buf []byte, log *zap.SugaredLogger) error {
	p := NewParser(kvy, log)
	_, err := p.Feed(ctx, buf)
	return err
}

// readCountedSigGroup parses a "-A<nn>" count code followed by exactly
// nn qb64 SigMat primitives, each SigTwoEd25519.RawSize*? bytes... in
// practice each primitive's own code self-describes its length, so the
// primitives are read back-to-back by repeated qb64 decoding via
// primitives.NewCryMatFromQb64 until nn have been consumed.
func readCountedSigGroup(buf []byte) ([]primitives.SigMat, int, error) {
	const prefix = "-A"
	if len(buf) < len(prefix)+2 {
		return nil, 0, kerierr.New(kerierr.ShortageError, "cmdutil.readCountedSigGroup", fmt.Errorf("buffer too short for count code"))
	}
	if string(buf[:len(prefix)]) != prefix {
		return nil, 0, kerierr.New(kerierr.ValidationError, "cmdutil.readCountedSigGroup", fmt.Errorf("missing -A count code"))
	}
	nn, err := strconv.ParseInt(string(buf[len(prefix):len(prefix)+2]), 16, 64)
	if err != nil {
		return nil, 0, kerierr.New(kerierr.ValidationError, "cmdutil.readCountedSigGroup", err)
	}
	pos := len(prefix) + 2

	sigers := make([]primitives.SigMat, 0, nn)
	for i := int64(0); i < nn; i++ {
		if pos >= len(buf) {
			return nil, 0, kerierr.New(kerierr.ShortageError, "cmdutil.readCountedSigGroup", fmt.Errorf("truncated signature trail"))
		}
		m, consumed, err := decodeOneQb64(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		sig, err := primitives.NewSigMat(m, int(i))
		if err != nil {
			return nil, 0, kerierr.New(kerierr.ValidationError, "cmdutil.readCountedSigGroup", err)
		}
		sigers = append(sigers, sig)
		pos += consumed
	}
	return sigers, pos, nil
}

// decodeOneQb64 greedily grows a candidate substring until it parses as
// a complete qb64 primitive, since primitive lengths are self-describing
// only once the code's declared raw size is known.
func decodeOneQb64(buf []byte) (primitives.CryMat, int, error) {
	for n := 4; n <= len(buf); n += 4 {
		m, err := primitives.NewCryMatFromQb64(string(buf[:n]))
		if err == nil {
			return m, n, nil
		}
	}
	return primitives.CryMat{}, 0, kerierr.New(kerierr.ShortageError, "cmdutil.decodeOneQb64", fmt.Errorf("no complete primitive found"))
}
