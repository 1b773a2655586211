package overlay

import (
	"github.com/sarchlab/ocsim/instrumentation/hooking"
	"github.com/sarchlab/ocsim/mem/mem"
)

// Hook positions. The item of every hook context is an Access. The detail is
// a LookupResult for lookups and downgrades, an InsertResult for inserts, an
// InvalidateResult for invalidations, the victim Slot for evictions and a
// RepackDetail for repacks.
var (
	HookPosLookup     = &hooking.HookPos{Name: "Overlay Lookup"}
	HookPosInsert     = &hooking.HookPos{Name: "Overlay Insert"}
	HookPosEvict      = &hooking.HookPos{Name: "Overlay Evict"}
	HookPosInvalidate = &hooking.HookPos{Name: "Overlay Invalidate"}
	HookPosDowngrade  = &hooking.HookPos{Name: "Overlay Downgrade"}
	HookPosRepack     = &hooking.HookPos{Name: "Overlay Repack"}
)

// Access is the line an operation targets.
type Access struct {
	Cycle uint64
	OID   uint64
	Addr  uint64
	Shape mem.Shape
	Dirty bool
}

// RepackDetail tells how many slots a super-block took before and after a
// repack.
type RepackDetail struct {
	Set    int
	Before int
	After  int
}
