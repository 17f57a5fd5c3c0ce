// Package baser implements the KEL-specific persistence layer of
// spec.md §3/§4.H, built directly on the generic kerilib/kv engine.
// It owns every sub-DB name and key encoding; kv itself knows nothing
// about events, AIDs, or escrow.
package baser

import kv "github.com/Arsh-Sandhu/kerigo-lib/kv"

// Sub-DB names, spec.md §3.
const (
	TableEvts = "evts."
	TableSigs = "sigs."
	TableDtss = "dtss."
	TableKels = "kels."
	TablePses = "pses."
	TableOoes = "ooes."
	TableLdes = "ldes."
	TableUdes = "udes."
	TableFels = "fels."
	TableAeds = "aeds."
)

// Schema is the TableCfg this package hands to kv.Open.
var Schema = kv.TableCfg{
	TableEvts: {Flags: kv.Default},
	TableSigs: {Flags: kv.Default, IoOrdered: true},
	TableDtss: {Flags: kv.Default},
	TableKels: {Flags: kv.Default, IoOrdered: true},
	TablePses: {Flags: kv.Default, IoOrdered: true},
	TableOoes: {Flags: kv.Default, IoOrdered: true},
	TableLdes: {Flags: kv.Default, IoOrdered: true},
	TableUdes: {Flags: kv.Default, IoOrdered: true},
	TableFels: {Flags: kv.Default},
	TableAeds: {Flags: kv.Default},
}
