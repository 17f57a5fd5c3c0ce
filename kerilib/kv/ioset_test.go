package kv

import (
	"context"
	"testing"
)

func openTestEnv(t *testing.T) *Env {
	t.Helper()
	cfg := TableCfg{
		"t1.": TableCfgItem{Flags: Default, IoOrdered: true},
	}
	e, err := Open(cfg, Options{Temp: true, Clear: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAddIoSetValPreservesOrderAndDedupes(t *testing.T) {
	ctx := context.Background()
	e := openTestEnv(t)

	key := []byte("aid1")
	err := e.Update(ctx, func(tx RwTx) error {
		if err := AddIoSetVal(tx, "t1.", key, []byte("a")); err != nil {
			return err
		}
		if err := AddIoSetVal(tx, "t1.", key, []byte("b")); err != nil {
			return err
		}
		// duplicate insert of "a" must not create a second member
		return AddIoSetVal(tx, "t1.", key, []byte("a"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var vals [][]byte
	err = e.View(ctx, func(tx Tx) error {
		var verr error
		vals, verr = GetIoSetVals(tx, "t1.", key)
		return verr
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 members after dedup, got %d", len(vals))
	}
	if string(vals[0]) != "a" || string(vals[1]) != "b" {
		t.Fatalf("expected insertion order [a b], got %v", vals)
	}
}

func TestDelIoSetValRemovesOneMember(t *testing.T) {
	ctx := context.Background()
	e := openTestEnv(t)
	key := []byte("aid2")

	err := e.Update(ctx, func(tx RwTx) error {
		if err := AddIoSetVal(tx, "t1.", key, []byte("x")); err != nil {
			return err
		}
		if err := AddIoSetVal(tx, "t1.", key, []byte("y")); err != nil {
			return err
		}
		return DelIoSetVal(tx, "t1.", key, []byte("x"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var vals [][]byte
	err = e.View(ctx, func(tx Tx) error {
		var verr error
		vals, verr = GetIoSetVals(tx, "t1.", key)
		return verr
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(vals) != 1 || string(vals[0]) != "y" {
		t.Fatalf("expected only [y] to remain, got %v", vals)
	}
}
