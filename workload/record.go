// Package workload produces memory accesses and feeds them to an overlay
// cache.
package workload

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Op is the kind of an access.
type Op int

// Operations.
const (
	OpLoad Op = iota
	OpStore
)

func (o Op) String() string {
	switch o {
	case OpLoad:
		return "L"
	case OpStore:
		return "S"
	}

	return fmt.Sprintf("Op(%d)", int(o))
}

// Record is one access of a trace. Data is only used by stores. A store
// without data leaves the content of the line unchanged.
type Record struct {
	Op   Op
	OID  uint64
	Addr uint64
	Data []byte
}

// String formats the record as a trace line.
func (r Record) String() string {
	s := fmt.Sprintf("%s %d 0x%x", r.Op, r.OID, r.Addr)
	if r.Op == OpStore && len(r.Data) > 0 {
		s += " " + hex.EncodeToString(r.Data)
	}

	return s
}

// ParseRecord parses a trace line of the form "L|S <oid> <addr> [hex data]".
// Numbers may be decimal or 0x-prefixed hexadecimal.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return Record{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}

	var r Record

	switch strings.ToUpper(fields[0]) {
	case "L":
		r.Op = OpLoad
	case "S":
		r.Op = OpStore
	default:
		return Record{}, fmt.Errorf("unknown operation %q", fields[0])
	}

	var err error

	r.OID, err = strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad object id: %w", err)
	}

	r.Addr, err = strconv.ParseUint(fields[2], 0, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad address: %w", err)
	}

	if len(fields) == 4 {
		if r.Op != OpStore {
			return Record{}, fmt.Errorf("data on a load")
		}

		r.Data, err = hex.DecodeString(fields[3])
		if err != nil {
			return Record{}, fmt.Errorf("bad data: %w", err)
		}
	}

	return r, nil
}
