package mem

import (
	"fmt"
	"strings"
)

// SuperBlockSize is the number of logical lines a super-block groups.
const SuperBlockSize = 4

// Shape is the addressing pattern of a super-block.
type Shape int

// Shapes. ShapeNone marks a slot that holds one uncompressed line.
const (
	ShapeNone Shape = iota
	Shape4x1        // 4 object ids, one address
	Shape1x4        // one object id, 4 consecutive lines
	Shape2x2        // 2 object ids by 2 consecutive lines
	NumShapes
)

var shapeNames = [NumShapes]string{"None", "4x1", "1x4", "2x2"}

func (s Shape) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Shape(%d)", int(s))
	}

	return shapeNames[s]
}

// IsValid reports whether s is one of the defined shapes.
func (s Shape) IsValid() bool {
	return s >= ShapeNone && s < NumShapes
}

// ParseShape converts a shape name (as printed by String) back to a Shape.
// "4*1" style spellings are also accepted.
func ParseShape(name string) (Shape, error) {
	n := strings.ReplaceAll(strings.TrimSpace(name), "*", "x")
	n = strings.ReplaceAll(n, " ", "")

	for i, s := range shapeNames {
		if strings.EqualFold(n, s) {
			return Shape(i), nil
		}
	}

	return ShapeNone, fmt.Errorf("unknown shape %q", name)
}

// MustBeValid panics if s is not a defined shape.
func (s Shape) MustBeValid() {
	if !s.IsValid() {
		panic(fmt.Sprintf("invalid super-block shape %d", int(s)))
	}
}

// SuperBlockTag returns the base object id and base address of the
// super-block that holds (oid, addr) under the shape, and the index of the line
// inside the super-block.
//
// For Shape2x2 the object id offset is the low bit of the index.
func SuperBlockTag(oid, addr uint64, shape Shape) (baseOID, baseAddr uint64, index int) {
	MustBeLineAligned(addr)

	line := addr >> LineBits

	switch shape {
	case Shape4x1:
		baseOID = oid &^ 0x3
		baseAddr = line
		index = int(oid & 0x3)
	case Shape1x4:
		baseOID = oid
		baseAddr = line &^ 0x3
		index = int(line & 0x3)
	case Shape2x2:
		baseOID = oid &^ 0x1
		baseAddr = line &^ 0x1
		index = int(oid&0x1) | int(line&0x1)<<1
	default:
		panic(fmt.Sprintf("shape %s has no super-block tag", shape))
	}

	return baseOID, baseAddr << LineBits, index
}

// AddrInSuperBlock is the inverse of SuperBlockTag. It returns the object id
// and address of the line at index in the super-block based at
// (baseOID, baseAddr).
func AddrInSuperBlock(
	baseOID, baseAddr uint64,
	index int,
	shape Shape,
) (oid, addr uint64) {
	if index < 0 || index >= SuperBlockSize {
		panic(fmt.Sprintf("super-block index %d out of range", index))
	}

	switch shape {
	case Shape4x1:
		return baseOID + uint64(index), baseAddr
	case Shape1x4:
		return baseOID, baseAddr + uint64(index)*LineSize
	case Shape2x2:
		return baseOID + uint64(index%2), baseAddr + uint64(index/2)*LineSize
	default:
		if index != 0 {
			panic("an unshaped slot only has index 0")
		}

		return baseOID, baseAddr
	}
}

// VerticalBaseOID returns the object id whose line serves as the base for
// vertical compression of (oid, *) under the shape. A line whose base is
// itself is a base line.
func VerticalBaseOID(oid uint64, shape Shape) uint64 {
	switch shape {
	case Shape4x1:
		return oid &^ 0x3
	case Shape2x2:
		return oid &^ 0x1
	case Shape1x4:
		return oid
	default:
		panic(fmt.Sprintf("shape %s has no vertical base", shape))
	}
}
