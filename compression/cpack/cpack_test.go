package cpack

import (
	"encoding/binary"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocsim/compression/bitpack"
	"github.com/sarchlab/ocsim/mem/mem"
)

func lineOf32(words ...uint32) mem.Line {
	var l mem.Line
	for i, w := range words {
		binary.LittleEndian.PutUint32(l[i*4:], w)
	}

	return l
}

var _ = Describe("CPACK", func() {
	It("should reuse a dictionary entry for a repeated word", func() {
		d := NewDictionary()

		first := EncodeWord(d, 0x12345678)
		Expect(first.Pattern).To(Equal(PatternLiteral))

		second := EncodeWord(d, 0x12345678)
		Expect(second.Pattern).To(Equal(PatternMatch))
		Expect(second.Index).To(Equal(0))
		Expect(second.Pattern.Bits()).To(Equal(6))

		w := bitpack.NewWriter(6)
		writeCode(w, second)
		Expect(w.Len()).To(Equal(6))

		dec := NewDictionary()
		DecodeWord(dec, Code{Pattern: PatternLiteral, Payload: 0x12345678})
		Expect(DecodeWord(dec, readCode(bitpack.NewReader(w.Words())))).
			To(Equal(uint32(0x12345678)))
	})

	It("should encode a line with a repeated word", func() {
		line := lineOf32(0x12345678, 0x12345678)
		stream, bits := Compress(&line)

		Expect(bits).To(Equal(34 + 6 + 14*2))

		r := bitpack.NewReader(stream)
		Expect(r.Read(2)).To(Equal(uint64(tagLiteral)))
		Expect(r.Read(32)).To(Equal(uint64(0x12345678)))
		Expect(r.Read(2)).To(Equal(uint64(tagMatch)))
		Expect(r.Read(4)).To(Equal(uint64(0)))

		Expect(Decompress(stream)).To(Equal(line))
	})

	It("should pick patterns by precedence", func() {
		line := lineOf32(
			0x000000AB, // zzzx
			0x12345678, // literal
			0x123456AB, // mmmx against slot 0
			0x1234ABCD, // mmxx against slot 0
			0x123456AB, // exact against slot 1
			0,          // zero
		)

		codes := Encode(&line)
		patterns := []Pattern{}

		for _, c := range codes[:6] {
			patterns = append(patterns, c.Pattern)
		}

		Expect(patterns).To(Equal([]Pattern{
			PatternZeroByte, PatternLiteral, PatternMatch3,
			PatternMatchHalf, PatternMatch, PatternZero,
		}))
		Expect(codes[2].Index).To(Equal(0))
		Expect(codes[3].Index).To(Equal(0))
		Expect(codes[4].Index).To(Equal(1))

		stream, bits := Compress(&line)
		Expect(bits).To(Equal(12 + 34 + 16 + 24 + 6 + 11*2))
		Expect(DrySize(&line)).To(Equal(bits))
		Expect(Decompress(stream)).To(Equal(line))
	})

	It("should round trip random lines", func() {
		r := rand.New(rand.NewSource(5))
		pool := []uint32{0xDEADBEEF, 0xDEAD0000, 0x12345678, 0xCAFEBABE}

		for i := 0; i < 1000; i++ {
			words := make([]uint32, 16)
			for j := range words {
				switch r.Intn(5) {
				case 0:
					words[j] = 0
				case 1:
					words[j] = uint32(r.Intn(256))
				case 2:
					words[j] = r.Uint32()
				default:
					words[j] = pool[r.Intn(len(pool))] ^ uint32(r.Intn(1<<(8*r.Intn(3))))
				}
			}

			line := lineOf32(words...)
			stream, bits := Compress(&line)

			Expect(DrySize(&line)).To(Equal(bits))
			Expect(bits).To(BeNumerically("<=", MaxBits))
			Expect(Decompress(stream)).To(Equal(line))
		}
	})
})
