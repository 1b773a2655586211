package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/ocsim/mem/mem"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size that may be written with a KB or MB suffix.
type ByteSize uint64

// ParseByteSize parses sizes such as "4096", "32KB" or "2MB".
func ParseByteSize(s string) (ByteSize, error) {
	str := strings.ToUpper(strings.TrimSpace(s))
	mult := uint64(1)

	switch {
	case strings.HasSuffix(str, "KB"):
		mult = mem.KB
		str = strings.TrimSuffix(str, "KB")
	case strings.HasSuffix(str, "MB"):
		mult = mem.MB
		str = strings.TrimSuffix(str, "MB")
	case strings.HasSuffix(str, "B"):
		str = strings.TrimSuffix(str, "B")
	}

	n, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}

	return ByteSize(n * mult), nil
}

func (b ByteSize) String() string {
	switch {
	case b != 0 && uint64(b)%mem.MB == 0:
		return fmt.Sprintf("%dMB", uint64(b)/mem.MB)
	case b != 0 && uint64(b)%mem.KB == 0:
		return fmt.Sprintf("%dKB", uint64(b)/mem.KB)
	}

	return strconv.FormatUint(uint64(b), 10)
}

// UnmarshalYAML accepts both numbers and suffixed strings.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	size, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}

	*b = size

	return nil
}

// MarshalYAML writes the size with a suffix.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}
