package kv

// TableFlags mirrors the subset of MDBX database flags this engine cares
// about. The bit values match libmdbx's own MDBX_db_flags so they can be
// passed straight through to the mdbx-go binding without translation.
type TableFlags uint

const (
	Default    TableFlags = 0x00
	ReverseKey TableFlags = 0x02
	DupSort    TableFlags = 0x04
	IntegerKey TableFlags = 0x08
	DupFixed   TableFlags = 0x10
	IntegerDup TableFlags = 0x20
	ReverseDup TableFlags = 0x40
	Create     TableFlags = 0x40000
)

// TableCfgItem describes one sub-database: its MDBX flags and whether
// reads/writes go through the insertion-order-duplicate emulation
// (§3/§4.G "ordered duplicate values" — an ordinal prefix absorbed into
// the stored value because the dupsort b-tree itself only offers
// lexicographic duplicate ordering).
type TableCfgItem struct {
	Flags TableFlags

	// IoOrdered marks a table as using the insertion-order-duplicate
	// (IoDup) or insertion-order-set (IoSet) value encoding. DupSort
	// must also be set for IoDup tables; IoSet tables are plain (no
	// DupSort) because set semantics are enforced by the stored
	// ordinal+value suffix, not by the b-tree's native dup comparator.
	IoOrdered bool
}

// TableCfg is the schema handed to Open: table name -> flags. Baser (the
// KEL-specific schema, §3/§4.H) supplies the concrete instance; this
// package knows nothing about KERI's table names.
type TableCfg map[string]TableCfgItem
