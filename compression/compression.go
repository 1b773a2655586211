// Package compression holds what the line codecs have in common: the codec
// kinds and the incompressible sentinel.
package compression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompressible is returned when a line cannot be represented by a
// scheme. It is an expected outcome; callers try another scheme or store the
// line uncompressed.
var ErrIncompressible = errors.New("line is incompressible with this scheme")

// Kind selects a codec.
type Kind int

// Codec kinds.
const (
	KindNone Kind = iota
	KindBDI
	KindFPC
	KindCPACK
	KindMBD
	numKinds
)

var kindNames = [numKinds]string{"none", "bdi", "fpc", "cpack", "mbd"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// AllKinds lists every codec kind, KindNone included.
func AllKinds() []Kind {
	return []Kind{KindNone, KindBDI, KindFPC, KindCPACK, KindMBD}
}

// ParseKind converts a case-insensitive codec name into a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return KindNone, nil
	}

	for i, s := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}

	return KindNone, fmt.Errorf("unknown compression kind %q", name)
}

// BytesFromBits converts a bit length into the number of bytes needed to
// store it.
func BytesFromBits(bits int) int {
	return (bits + 7) / 8
}
