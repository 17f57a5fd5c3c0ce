// Package kever implements the per-AID key-state verifier state machine
// of spec.md §4.E: construction from an inception event, and transition
// on rotation and interaction events.
package kever

import (
	"fmt"

	kvhex "github.com/Arsh-Sandhu/kerigo-lib/hexutil"
	"github.com/Arsh-Sandhu/kerigo/event"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/primitives"
	"github.com/Arsh-Sandhu/kerigo/serder"
)

// State is one of the four Kever lifecycle states.
type State int

const (
	Genesis State = iota
	Live
	Abandoned
	Duplicitous
)

func (s State) String() string {
	switch s {
	case Genesis:
		return "Genesis"
	case Live:
		return "Live"
	case Abandoned:
		return "Abandoned"
	case Duplicitous:
		return "Duplicitous"
	default:
		return "Unknown"
	}
}

// Kever holds the verified key state of one AID.
type Kever struct {
	aider               primitives.Aider
	sn                  int
	diger               primitives.Diger
	ilk                 event.Ilk
	sith                int
	verfers             []primitives.Verfer
	nexter              primitives.Nexter
	toad                int
	wits                []string
	cnfg                []string
	estOnly             bool
	nonTrans            bool
	lastEstEventDigest  primitives.Diger
	state               State
}

// Aider returns the AID this Kever tracks.
func (k *Kever) Aider() primitives.Aider { return k.aider }

// Sn returns the current sequence number.
func (k *Kever) Sn() int { return k.sn }

// Diger returns the digest of the last accepted event.
func (k *Kever) Diger() primitives.Diger { return k.diger }

// State reports the current lifecycle state.
func (k *Kever) State() State { return k.state }

// Verfers returns the current signing key set.
func (k *Kever) Verfers() []primitives.Verfer { return k.verfers }

// Nexter returns the current pre-rotation commitment, or the empty
// Nexter if the AID is abandoned.
func (k *Kever) Nexter() primitives.Nexter { return k.nexter }

func verifyAiderDerivation(s serder.Serder, aider primitives.Aider) (bool, error) {
	keys, err := event.DecodeKeys(s.Ked())
	if err != nil {
		return false, err
	}
	if len(keys) == 0 {
		return false, fmt.Errorf("kever: inception event has no keys")
	}
	if len(keys) == 1 {
		basic, err := primitives.NewAiderBasic(keys[0])
		if err == nil && basic.Qb64() == aider.Qb64() {
			return true, nil
		}
	}
	blanked := blankAid(s.Ked())
	blankedSerder, err := serder.NewFromKed(blanked, s.Kind())
	if err != nil {
		return false, err
	}
	codeID, ok := digestCodeFor(aider)
	if !ok {
		return false, nil
	}
	selfAddr, err := primitives.NewAiderSelfAddressing(blankedSerder.Raw(), codeID)
	if err != nil {
		return false, err
	}
	return selfAddr.Qb64() == aider.Qb64(), nil
}

func blankAid(ked serder.Ked) serder.Ked {
	out := make(serder.Ked, len(ked))
	copy(out, ked)
	for i, f := range out {
		if f.Name == "aid" {
			out[i] = serder.Field{Name: "aid", Value: ""}
		}
	}
	return out
}

func digestCodeFor(aider primitives.Aider) (primitives.CodeID, bool) {
	switch aider.Code().Selector {
	case "E":
		return primitives.CodeBlake3_256, true
	case "F":
		return primitives.CodeBlake2b_256, true
	case "G":
		return primitives.CodeBlake2s_256, true
	case "H":
		return primitives.CodeSHA3_256, true
	case "I":
		return primitives.CodeSHA2_256, true
	default:
		return 0, false
	}
}

func uniqueStrings(ss []string) bool {
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		if seen[s] {
			return false
		}
		seen[s] = true
	}
	return true
}

// countDistinctValidSigs counts signatures in sigers that verify against
// keys at their own claimed index, deduplicating by index.
func countDistinctValidSigs(raw []byte, keys []primitives.Verfer, sigers []primitives.SigMat) int {
	seen := make(map[int]bool, len(sigers))
	count := 0
	for _, sig := range sigers {
		idx := sig.Index()
		if idx < 0 || idx >= len(keys) || seen[idx] {
			continue
		}
		if keys[idx].Verify(sig, raw) {
			seen[idx] = true
			count++
		}
	}
	return count
}

// New constructs a Kever from an icp/dip event and its attached
// signatures, per spec.md §4.E's five-step construction.
func New(s serder.Serder, aider primitives.Aider, sigers []primitives.SigMat) (*Kever, error) {
	ked := s.Ked()
	ilk := event.Ilk(ked.GetString("ilk"))
	if ilk != event.IlkIcp && ilk != event.IlkDip {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("expected icp or dip, got %q", ilk))
	}

	ok, err := verifyAiderDerivation(s, aider)
	if err != nil {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", err)
	}
	if !ok {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("aid does not derive from inception event"))
	}

	keys, err := event.DecodeKeys(ked)
	if err != nil {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", err)
	}

	sith, ok := kvhex.ParseUint64(ked.GetString("sith"))
	if !ok || sith < 1 || int(sith) > len(keys) {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("invalid sith"))
	}

	witsAny, _ := ked.Get("wits")
	wits := stringsOf(witsAny)
	toad, ok := kvhex.ParseUint64(ked.GetString("toad"))
	if !ok || int(toad) > len(wits) {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("invalid toad"))
	}
	if !uniqueStrings(wits) {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("duplicate witnesses"))
	}

	if countDistinctValidSigs(s.Raw(), keys, sigers) < int(sith) {
		return nil, kerierr.New(kerierr.MissingSignatureError, "kever.New", fmt.Errorf("below signing threshold"))
	}

	nxt, err := primitives.NewNexterFromQb64(ked.GetString("nxt"))
	if err != nil {
		return nil, kerierr.New(kerierr.ValidationError, "kever.New", err)
	}

	nonTrans := !aider.Transferable()
	if nonTrans {
		if !nxt.Empty() || len(keys) != 1 || sith != 1 {
			return nil, kerierr.New(kerierr.ValidationError, "kever.New", fmt.Errorf("non-transferable AID with transferable commitment"))
		}
	}

	cnfgAny, _ := ked.Get("cnfg")
	cnfg := stringsOf(cnfgAny)
	estOnly := false
	for _, c := range cnfg {
		if c == "EO" {
			estOnly = true
		}
	}

	state := Live
	if nxt.Empty() {
		state = Abandoned
	}

	return &Kever{
		aider:              aider,
		sn:                 0,
		diger:              s.Diger(),
		ilk:                ilk,
		sith:               int(sith),
		verfers:            keys,
		nexter:             nxt,
		toad:               int(toad),
		wits:               wits,
		cnfg:               cnfg,
		estOnly:            estOnly,
		nonTrans:           nonTrans,
		lastEstEventDigest: s.Diger(),
		state:              state,
	}, nil
}

func stringsOf(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Update advances the Kever's state with a rot or ixn event, per
// spec.md §4.E. It returns a *kerierr.Error on every rejection, with
// Escrowable() true for the recoverable kinds (OutOfOrder, Shortage,
// MissingSignature, LikelyDuplicitous).
func (k *Kever) Update(s serder.Serder, sigers []primitives.SigMat) error {
	ked := s.Ked()
	ilk := event.Ilk(ked.GetString("ilk"))
	switch ilk {
	case event.IlkRot:
		return k.updateRot(s, sigers)
	case event.IlkIxn:
		return k.updateIxn(s, sigers)
	default:
		return kerierr.New(kerierr.ValidationError, "kever.Update", fmt.Errorf("unsupported ilk %q for update", ilk))
	}
}

func (k *Kever) checkChain(s serder.Serder) error {
	ked := s.Ked()
	sn, ok := kvhex.ParseUint64(ked.GetString("sn"))
	if !ok {
		return kerierr.New(kerierr.ValidationError, "kever.checkChain", fmt.Errorf("malformed sn"))
	}
	if int(sn) != k.sn+1 {
		return kerierr.New(kerierr.OutOfOrderError, "kever.checkChain", fmt.Errorf("expected sn %d, got %d", k.sn+1, sn))
	}
	dig := ked.GetString("dig")
	if dig != k.diger.Qb64() {
		return kerierr.New(kerierr.LikelyDuplicitousError, "kever.checkChain", fmt.Errorf("prior digest mismatch"))
	}
	return nil
}

func (k *Kever) updateRot(s serder.Serder, sigers []primitives.SigMat) error {
	if k.state == Abandoned {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("AID is abandoned"))
	}
	if err := k.checkChain(s); err != nil {
		return err
	}
	ked := s.Ked()

	newKeys, err := event.DecodeKeys(ked)
	if err != nil {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", err)
	}
	newSith, ok := kvhex.ParseUint64(ked.GetString("sith"))
	if !ok || newSith < 1 || int(newSith) > len(newKeys) {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("invalid sith"))
	}

	cutsAny, _ := ked.Get("cuts")
	addsAny, _ := ked.Get("adds")
	cuts := stringsOf(cutsAny)
	adds := stringsOf(addsAny)
	if !uniqueStrings(cuts) || !uniqueStrings(adds) {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("duplicate cuts/adds"))
	}
	newWits, err := applyCutsAdds(k.wits, cuts, adds)
	if err != nil {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", err)
	}

	toad, ok := kvhex.ParseUint64(ked.GetString("toad"))
	if !ok || int(toad) > len(newWits) {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("invalid toad"))
	}

	if k.nexter.Empty() {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("no prior commitment to rotate against"))
	}
	newSithHex := ked.GetString("sith")
	if !k.nexter.VerifyNext(newSithHex, newKeys) {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", fmt.Errorf("new keys do not match prior nexter commitment"))
	}

	if countDistinctValidSigs(s.Raw(), newKeys, sigers) < int(newSith) {
		return kerierr.New(kerierr.MissingSignatureError, "kever.updateRot", fmt.Errorf("below new signing threshold"))
	}

	newNxt, err := primitives.NewNexterFromQb64(ked.GetString("nxt"))
	if err != nil {
		return kerierr.New(kerierr.ValidationError, "kever.updateRot", err)
	}

	k.sn++
	k.diger = s.Diger()
	k.verfers = newKeys
	k.sith = int(newSith)
	k.nexter = newNxt
	k.wits = newWits
	k.toad = int(toad)
	k.lastEstEventDigest = s.Diger()
	if newNxt.Empty() {
		k.state = Abandoned
	}
	return nil
}

func (k *Kever) updateIxn(s serder.Serder, sigers []primitives.SigMat) error {
	if k.state == Abandoned {
		return kerierr.New(kerierr.ValidationError, "kever.updateIxn", fmt.Errorf("AID is abandoned"))
	}
	if k.estOnly {
		return kerierr.New(kerierr.ValidationError, "kever.updateIxn", fmt.Errorf("establishment-only AID rejects ixn events"))
	}
	if err := k.checkChain(s); err != nil {
		return err
	}
	if countDistinctValidSigs(s.Raw(), k.verfers, sigers) < k.sith {
		return kerierr.New(kerierr.MissingSignatureError, "kever.updateIxn", fmt.Errorf("below signing threshold"))
	}
	k.sn++
	k.diger = s.Diger()
	return nil
}

func applyCutsAdds(wits, cuts, adds []string) ([]string, error) {
	cutSet := make(map[string]bool, len(cuts))
	for _, c := range cuts {
		cutSet[c] = true
	}
	out := make([]string, 0, len(wits)+len(adds))
	for _, w := range wits {
		if !cutSet[w] {
			out = append(out, w)
		}
	}
	existing := make(map[string]bool, len(out))
	for _, w := range out {
		existing[w] = true
	}
	for _, a := range adds {
		if existing[a] {
			return nil, fmt.Errorf("witness %q already present", a)
		}
		out = append(out, a)
		existing[a] = true
	}
	return out, nil
}
