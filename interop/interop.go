// Package interop bridges this engine's qb64 primitives to the
// did:key-style multibase/multicodec text representation other
// decentralized-identity tooling expects, per spec.md's supplemental
// interop requirement. This is presentation-only: qb64 remains the
// canonical form everywhere digests and signatures are computed.
package interop

import (
	"fmt"

	mbase "github.com/multiformats/go-multibase"
	mcodec "github.com/multiformats/go-multicodec"
	varint "github.com/multiformats/go-varint"

	"github.com/Arsh-Sandhu/kerigo/coder"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
)

// VerferToMultibase renders a Verfer as a multibase/multicodec
// "did:key"-style text string: base58btc-encoded bytes of the
// multicodec prefix followed by the raw public key.
func VerferToMultibase(v primitives.Verfer) (string, error) {
	prefixed := append(varint.ToUvarint(uint64(mcodec.Ed25519Pub)), v.Raw()...)
	return mbase.Encode(mbase.Base58BTC, prefixed)
}

// MultibaseToVerfer parses a multibase/multicodec public key string back
// into a Verfer, assuming an Ed25519 public key multicodec prefix.
func MultibaseToVerfer(s string) (primitives.Verfer, error) {
	_, data, err := mbase.Decode(s)
	if err != nil {
		return primitives.Verfer{}, kerierr.New(kerierr.ValidationError, "interop.MultibaseToVerfer", err)
	}
	code, n, err := readMulticodecPrefix(data)
	if err != nil {
		return primitives.Verfer{}, kerierr.New(kerierr.ValidationError, "interop.MultibaseToVerfer", err)
	}
	if code != mcodec.Ed25519Pub {
		return primitives.Verfer{}, kerierr.New(kerierr.ValidationError, "interop.MultibaseToVerfer", fmt.Errorf("unsupported multicodec %v", code))
	}
	raw := data[n:]
	m, err := primitives.NewCryMatFromRaw(coder.Ed25519VerKey, raw)
	if err != nil {
		return primitives.Verfer{}, err
	}
	return primitives.NewVerfer(m)
}

func readMulticodecPrefix(data []byte) (mcodec.Code, int, error) {
	v, n, err := varint.FromUvarint(data)
	if err != nil {
		return 0, 0, fmt.Errorf("interop: malformed multicodec prefix: %w", err)
	}
	return mcodec.Code(v), n, nil
}
