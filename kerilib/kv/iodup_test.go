package kv

import (
	"context"
	"testing"
)

func openTestDupEnv(t *testing.T) *Env {
	t.Helper()
	cfg := TableCfg{
		"d1.": TableCfgItem{Flags: DupSort, IoOrdered: true},
	}
	e, err := Open(cfg, Options{Temp: true, Clear: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAddIoDupValPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	e := openTestDupEnv(t)
	key := []byte("k1")

	err := e.Update(ctx, func(tx RwTx) error {
		for _, v := range []string{"first", "second", "third"} {
			if err := AddIoDupVal(tx, "d1.", key, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var vals [][]byte
	err = e.View(ctx, func(tx Tx) error {
		var verr error
		vals, verr = GetIoDupVals(tx, "d1.", key)
		return verr
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(vals) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(vals))
	}
	for i, w := range want {
		if string(vals[i]) != w {
			t.Fatalf("position %d: expected %q, got %q", i, w, vals[i])
		}
	}
}

func TestPutIoDupValsReplacesSet(t *testing.T) {
	ctx := context.Background()
	e := openTestDupEnv(t)
	key := []byte("k2")

	err := e.Update(ctx, func(tx RwTx) error {
		return PutIoDupVals(tx, "d1.", key, [][]byte{[]byte("a"), []byte("b")})
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var n int
	err = e.View(ctx, func(tx Tx) error {
		var verr error
		n, verr = CntIoDupVals(tx, "d1.", key)
		return verr
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 duplicates, got %d", n)
	}
}
