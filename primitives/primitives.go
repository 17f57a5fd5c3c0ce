// Package primitives implements the typed wrappers over coder.Code/raw
// pairs described in spec.md §4.B: CryMat, Verfer, Signer, Diger, Nexter,
// and Aider. Hashing uses lukechampine.com/blake3 for the default
// Blake3-256 digest code and golang.org/x/crypto's blake2b/blake2s/sha3
// for the alternates, matching the corpus's preference for well-known
// hash packages over a hand-rolled digest layer; Ed25519 comes from the
// standard library, as it does throughout the example pack.
package primitives

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"github.com/Arsh-Sandhu/kerigo/coder"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
)

// CryMat is the qualified cryptographic material pair (code, raw) that
// every primitive in this package embeds. Two CryMat values are equal
// iff their code and raw bytes are equal.
type CryMat struct {
	code coder.Code
	raw  []byte
}

// NewCryMatFromRaw builds a CryMat from an explicit code and raw bytes,
// enforcing RawSize(code) == len(raw).
func NewCryMatFromRaw(code coder.Code, raw []byte) (CryMat, error) {
	if len(raw) != code.RawSize {
		return CryMat{}, kerierr.New(kerierr.ValidationError, "primitives.NewCryMatFromRaw", &coder.InvalidRawLengthError{Code: code, Got: len(raw)})
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return CryMat{code: code, raw: out}, nil
}

// NewCryMatFromQb64 parses a canonical text-form primitive.
func NewCryMatFromQb64(qb64 string) (CryMat, error) {
	if qb64 == "" {
		return CryMat{}, kerierr.New(kerierr.EmptyMaterialError, "primitives.NewCryMatFromQb64", nil)
	}
	code, raw, err := coder.DecodeQb64(qb64)
	if err != nil {
		return CryMat{}, kerierr.New(kerierr.ValidationError, "primitives.NewCryMatFromQb64", err)
	}
	return CryMat{code: code, raw: raw}, nil
}

// Code reports the derivation code.
func (c CryMat) Code() coder.Code { return c.code }

// Raw returns the raw payload bytes. The returned slice must not be
// mutated by callers.
func (c CryMat) Raw() []byte { return c.raw }

// Qb64 renders the canonical text form. Panics only if the CryMat was
// constructed outside this package with an inconsistent length, which
// NewCryMatFromRaw/NewCryMatFromQb64 never allow.
func (c CryMat) Qb64() string {
	s, err := coder.EncodeQb64(c.code, c.raw)
	if err != nil {
		panic(fmt.Sprintf("primitives: invariant violated: %v", err))
	}
	return s
}

// Qb2 renders the canonical binary form.
func (c CryMat) Qb2() []byte {
	b, err := coder.EncodeQb2(c.code, c.raw)
	if err != nil {
		panic(fmt.Sprintf("primitives: invariant violated: %v", err))
	}
	return b
}

// Verfer is a CryMat whose code asserts an Ed25519 (transferable, code D)
// or Ed25519N (non-transferable, code B) public key.
type Verfer struct{ CryMat }

// NewVerfer wraps an existing public key CryMat, rejecting any code other
// than D or B.
func NewVerfer(m CryMat) (Verfer, error) {
	if m.code != coder.Ed25519VerKey && m.code != coder.Ed25519NVerKey {
		return Verfer{}, kerierr.New(kerierr.ValidationError, "primitives.NewVerfer", fmt.Errorf("code %q is not a verification key code", m.code.Selector))
	}
	return Verfer{m}, nil
}

// Transferable reports whether this key's code commits to a future
// rotation (code D) as opposed to being permanently non-transferable
// (code B).
func (v Verfer) Transferable() bool { return v.code == coder.Ed25519VerKey }

// Verify reports whether sig is a valid detached Ed25519 signature of
// msg under this key. It never panics on malformed input; a bad
// signature simply verifies false.
func (v Verfer) Verify(sig SigMat, msg []byte) bool {
	if sig.code.RawSize < ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(v.raw), msg, sig.raw[:ed25519.SignatureSize])
}

// Signer holds an Ed25519 seed and the Verfer derived from it at
// construction.
type Signer struct {
	seed   CryMat
	priv   ed25519.PrivateKey
	verfer Verfer
}

// NewSigner derives a Signer from a 32-byte Ed25519 seed CryMat (code A).
// transferable selects whether the derived Verfer uses code D or code B.
func NewSigner(seed CryMat, transferable bool) (Signer, error) {
	if seed.code != coder.Ed25519Seed {
		return Signer{}, kerierr.New(kerierr.ValidationError, "primitives.NewSigner", fmt.Errorf("code %q is not a seed code", seed.code.Selector))
	}
	priv := ed25519.NewKeyFromSeed(seed.raw)
	pub := priv.Public().(ed25519.PublicKey)
	code := coder.Ed25519NVerKey
	if transferable {
		code = coder.Ed25519VerKey
	}
	vm, err := NewCryMatFromRaw(code, pub)
	if err != nil {
		return Signer{}, err
	}
	verfer, err := NewVerfer(vm)
	if err != nil {
		return Signer{}, err
	}
	return Signer{seed: seed, priv: priv, verfer: verfer}, nil
}

// NewSignerRandom generates a fresh random seed and derives a Signer from
// it, using crypto/rand as every keygen path in the corpus does.
func NewSignerRandom(transferable bool) (Signer, error) {
	seedRaw := make([]byte, coder.Ed25519Seed.RawSize)
	if _, err := rand.Read(seedRaw); err != nil {
		return Signer{}, kerierr.New(kerierr.ConfigurationError, "primitives.NewSignerRandom", err)
	}
	seed, err := NewCryMatFromRaw(coder.Ed25519Seed, seedRaw)
	if err != nil {
		return Signer{}, err
	}
	return NewSigner(seed, transferable)
}

// Verfer returns the public key derived from this signer's seed.
func (s Signer) Verfer() Verfer { return s.verfer }

// Seed returns the underlying seed CryMat.
func (s Signer) Seed() CryMat { return s.seed }

// Sign produces an indexed Ed25519 signature of ser, tagging it with
// index (the signer's position among an AID's current keys).
func (s Signer) Sign(ser []byte, index int) SigMat {
	sig := ed25519.Sign(s.priv, ser)
	m, err := NewCryMatFromRaw(coder.SigTwoEd25519, sig)
	if err != nil {
		panic(fmt.Sprintf("primitives: ed25519 signature length invariant violated: %v", err))
	}
	return SigMat{CryMat: m, index: index}
}

// SigMat is a CryMat plus the signer index KERI's indexed-signature
// scheme requires to bind a signature to one key in a multi-sig set.
type SigMat struct {
	CryMat
	index int
}

// NewSigMat wraps an existing signature CryMat with its signer index.
func NewSigMat(m CryMat, index int) (SigMat, error) {
	if m.code != coder.SigTwoEd25519 && m.code != coder.Ed25519SigNonIdx && m.code != coder.SigFourECDSA_256k1 {
		return SigMat{}, kerierr.New(kerierr.ValidationError, "primitives.NewSigMat", fmt.Errorf("code %q is not a signature code", m.code.Selector))
	}
	return SigMat{CryMat: m, index: index}, nil
}

// Index reports which key in the establishment event's key list produced
// this signature.
func (s SigMat) Index() int { return s.index }

// Stored renders a SigMat as the "index:qb64" text this package's store
// layer persists: KERI's own on-the-wire indexed-signature code folds
// the index into the derivation code itself, but since this
// implementation keeps the index as a plain Go field (see SigMat), the
// persisted form must carry it explicitly alongside the qb64 material.
func (s SigMat) Stored() string {
	return fmt.Sprintf("%d:%s", s.index, s.Qb64())
}

// ParseStoredSigMat reverses Stored.
func ParseStoredSigMat(s string) (SigMat, error) {
	var idx int
	var qb64 string
	n, err := fmt.Sscanf(s, "%d:%s", &idx, &qb64)
	if err != nil || n != 2 {
		return SigMat{}, kerierr.New(kerierr.ValidationError, "primitives.ParseStoredSigMat", fmt.Errorf("malformed stored signature %q", s))
	}
	m, err := NewCryMatFromQb64(qb64)
	if err != nil {
		return SigMat{}, err
	}
	return NewSigMat(m, idx)
}

// DigestCode selects which of the five digest derivation codes a Diger
// uses.
type DigestCode = CodeID

// CodeID names the supported digest algorithms: the Blake3-256 default
// and the alternates, per spec.md §6's one-char code table.
type CodeID int

const (
	CodeBlake3_256 CodeID = iota
	CodeBlake2b_256
	CodeBlake2s_256
	CodeSHA3_256
	CodeSHA2_256
)

func hashFor(code CodeID, data []byte) ([]byte, coder.Code, error) {
	switch code {
	case CodeBlake3_256:
		sum := blake3.Sum256(data)
		return sum[:], coder.Blake3_256, nil
	case CodeBlake2b_256:
		sum := blake2b.Sum256(data)
		return sum[:], coder.Blake2b_256, nil
	case CodeBlake2s_256:
		sum := blake2s.Sum256(data)
		return sum[:], coder.Blake2s_256, nil
	case CodeSHA3_256:
		sum := sha3.Sum256(data)
		return sum[:], coder.SHA3_256, nil
	case CodeSHA2_256:
		sum := sha256.Sum256(data)
		return sum[:], coder.SHA2_256, nil
	default:
		return nil, coder.Code{}, fmt.Errorf("primitives: unknown digest code %d", code)
	}
}

// Diger is a CryMat over a cryptographic digest of some serialization,
// defaulting to Blake3-256 (code E) per spec.md §3.
type Diger struct{ CryMat }

// NewDiger hashes ser with the given digest code and wraps the result.
func NewDiger(ser []byte, code CodeID) (Diger, error) {
	raw, c, err := hashFor(code, ser)
	if err != nil {
		return Diger{}, kerierr.New(kerierr.ValidationError, "primitives.NewDiger", err)
	}
	m, err := NewCryMatFromRaw(c, raw)
	if err != nil {
		return Diger{}, err
	}
	return Diger{m}, nil
}

// NewDigerFromQb64 wraps an already-encoded digest, inferring its digest
// code from the qb64 selector.
func NewDigerFromQb64(qb64 string) (Diger, error) {
	m, err := NewCryMatFromQb64(qb64)
	if err != nil {
		return Diger{}, err
	}
	switch m.code {
	case coder.Blake3_256, coder.Blake2b_256, coder.Blake2s_256, coder.SHA3_256, coder.SHA2_256:
		return Diger{m}, nil
	default:
		return Diger{}, kerierr.New(kerierr.ValidationError, "primitives.NewDigerFromQb64", fmt.Errorf("code %q is not a digest code", m.code.Selector))
	}
}

// codeIDFor maps a digest derivation code back to its CodeID, used by
// Verify to re-hash with the matching algorithm.
func codeIDFor(c coder.Code) (CodeID, bool) {
	switch c {
	case coder.Blake3_256:
		return CodeBlake3_256, true
	case coder.Blake2b_256:
		return CodeBlake2b_256, true
	case coder.Blake2s_256:
		return CodeBlake2s_256, true
	case coder.SHA3_256:
		return CodeSHA3_256, true
	case coder.SHA2_256:
		return CodeSHA2_256, true
	default:
		return 0, false
	}
}

// Verify reports whether ser hashes, under this digester's own code, to
// the stored digest. Comparison is constant-time.
func (d Diger) Verify(ser []byte) bool {
	codeID, ok := codeIDFor(d.code)
	if !ok {
		return false
	}
	raw, _, err := hashFor(codeID, ser)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(raw, d.raw) == 1
}

// Nexter is a Diger computed over the canonical pre-rotation commitment:
// Blake3-256(sith_hex || concat(verfer.qb64 for verfer in next_keys)).
type Nexter struct{ Diger }

// canonicalNextSer builds the byte string a Nexter digest covers.
func canonicalNextSer(sithHex string, nextKeys []Verfer) []byte {
	var buf []byte
	buf = append(buf, sithHex...)
	for _, v := range nextKeys {
		buf = append(buf, v.Qb64()...)
	}
	return buf
}

// NewNexter computes the pre-rotation commitment digest for the given
// threshold and next-key set.
func NewNexter(sithHex string, nextKeys []Verfer) (Nexter, error) {
	d, err := NewDiger(canonicalNextSer(sithHex, nextKeys), CodeBlake3_256)
	if err != nil {
		return Nexter{}, err
	}
	return Nexter{d}, nil
}

// NewNexterFromQb64 wraps an already-encoded nxt field value. Empty
// string denotes an abandoned (non-transferable-going-forward) key
// state and is represented as the zero Nexter with Empty() true.
func NewNexterFromQb64(qb64 string) (Nexter, error) {
	if qb64 == "" {
		return Nexter{}, nil
	}
	d, err := NewDigerFromQb64(qb64)
	if err != nil {
		return Nexter{}, err
	}
	return Nexter{d}, nil
}

// Empty reports whether this Nexter represents the abandoned state
// (nxt == "").
func (n Nexter) Empty() bool { return n.raw == nil }

// Qb64 overrides CryMat.Qb64 to render "" for the abandoned Nexter rather
// than panicking on a zero-length raw.
func (n Nexter) Qb64() string {
	if n.Empty() {
		return ""
	}
	return n.Diger.Qb64()
}

// VerifyNext reports whether recomputing the commitment for
// (sithHex, nextKeys) reproduces this Nexter's stored digest — the check
// spec.md §4.D performs on every rotation against the prior
// establishment event's nxt.
func (n Nexter) VerifyNext(sithHex string, nextKeys []Verfer) bool {
	if n.Empty() {
		return false
	}
	return n.Diger.Verify(canonicalNextSer(sithHex, nextKeys))
}

// Aider is the CryMat identifying an AID: either a basic derivation
// (raw copies a single key's raw bytes) or a self-addressing derivation
// (raw is a digest of the inception record with its aid field blanked).
type Aider struct{ CryMat }

// NewAiderBasic derives a basic (non-self-addressing) AID directly from
// a single inception key, per spec.md §4.D.
func NewAiderBasic(key Verfer) (Aider, error) {
	return Aider{key.CryMat}, nil
}

// NewAiderSelfAddressing derives a self-addressing AID by hashing
// blankedKed, the canonical serialization of the inception event with
// its aid field set to "".
func NewAiderSelfAddressing(blankedKed []byte, code CodeID) (Aider, error) {
	d, err := NewDiger(blankedKed, code)
	if err != nil {
		return Aider{}, err
	}
	return Aider{d.CryMat}, nil
}

// NewAiderFromQb64 wraps an already-encoded AID.
func NewAiderFromQb64(qb64 string) (Aider, error) {
	m, err := NewCryMatFromQb64(qb64)
	if err != nil {
		return Aider{}, err
	}
	return Aider{m}, nil
}

// Transferable reports whether this AID's code commits to future
// rotation.
func (a Aider) Transferable() bool {
	return a.code != coder.Ed25519NVerKey
}
