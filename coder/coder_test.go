package coder

import "testing"

func TestEncodeDecodeQb64RoundTrip(t *testing.T) {
	raw := make([]byte, Ed25519VerKey.RawSize)
	for i := range raw {
		raw[i] = byte(i)
	}
	qb64, err := EncodeQb64(Ed25519VerKey, raw)
	if err != nil {
		t.Fatalf("EncodeQb64: %v", err)
	}
	if len(qb64)%4 != 0 {
		t.Fatalf("qb64 length %d not a multiple of 4", len(qb64))
	}
	code, decoded, err := DecodeQb64(qb64)
	if err != nil {
		t.Fatalf("DecodeQb64: %v", err)
	}
	if code != Ed25519VerKey {
		t.Fatalf("code mismatch: got %v want %v", code, Ed25519VerKey)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("raw mismatch")
	}
}

func TestEncodeQb64RejectsWrongLength(t *testing.T) {
	_, err := EncodeQb64(Ed25519VerKey, make([]byte, 10))
	if err == nil {
		t.Fatal("expected InvalidRawLengthError")
	}
	if _, ok := err.(*InvalidRawLengthError); !ok {
		t.Fatalf("got %T, want *InvalidRawLengthError", err)
	}
}

func TestLookupCodeUnknownSelector(t *testing.T) {
	_, err := LookupCode("Z")
	if err == nil {
		t.Fatal("expected error for unknown selector")
	}
}

func TestQb2RoundTrip(t *testing.T) {
	raw := make([]byte, Blake3_256.RawSize)
	for i := range raw {
		raw[i] = byte(255 - i)
	}
	qb2, err := EncodeQb2(Blake3_256, raw)
	if err != nil {
		t.Fatalf("EncodeQb2: %v", err)
	}
	code, decoded, err := DecodeQb2(qb2)
	if err != nil {
		t.Fatalf("DecodeQb2: %v", err)
	}
	if code != Blake3_256 {
		t.Fatalf("code mismatch")
	}
	if string(decoded) != string(raw) {
		t.Fatalf("raw mismatch after qb2 round trip")
	}
}
