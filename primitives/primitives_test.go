package primitives

import "testing"

func TestSignerSignVerify(t *testing.T) {
	signer, err := NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	msg := []byte("hello keri")
	sig := signer.Sign(msg, 0)
	if !signer.Verfer().Verify(sig, msg) {
		t.Fatal("expected valid signature to verify")
	}
	if signer.Verfer().Verify(sig, []byte("tampered")) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestDigerVerify(t *testing.T) {
	ser := []byte(`{"hello":"world"}`)
	d, err := NewDiger(ser, CodeBlake3_256)
	if err != nil {
		t.Fatalf("NewDiger: %v", err)
	}
	if !d.Verify(ser) {
		t.Fatal("expected digest to verify against original serialization")
	}
	if d.Verify([]byte(`{"hello":"mars"}`)) {
		t.Fatal("expected digest to reject altered serialization")
	}
}

func TestNexterVerifyNext(t *testing.T) {
	s1, err := NewSignerRandom(true)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	keys := []Verfer{s1.Verfer()}
	nxt, err := NewNexter("1", keys)
	if err != nil {
		t.Fatalf("NewNexter: %v", err)
	}
	if !nxt.VerifyNext("1", keys) {
		t.Fatal("expected matching sith/keys to verify")
	}
	if nxt.VerifyNext("2", keys) {
		t.Fatal("expected mismatched sith to fail verification")
	}
}

func TestCryMatQb64RoundTrip(t *testing.T) {
	signer, err := NewSignerRandom(false)
	if err != nil {
		t.Fatalf("NewSignerRandom: %v", err)
	}
	qb64 := signer.Verfer().Qb64()
	m2, err := NewCryMatFromQb64(qb64)
	if err != nil {
		t.Fatalf("NewCryMatFromQb64: %v", err)
	}
	if m2.Qb64() != qb64 {
		t.Fatal("expected round-tripped qb64 to match original")
	}
}
