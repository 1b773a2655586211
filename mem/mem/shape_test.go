package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Shape", func() {
	It("should print and parse names", func() {
		for s := ShapeNone; s < NumShapes; s++ {
			parsed, err := ParseShape(s.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(s))
		}

		s, err := ParseShape("4*1")
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(Shape4x1))

		_, err = ParseShape("3x3")
		Expect(err).To(HaveOccurred())
	})

	It("should group four object ids in a 4x1 super-block", func() {
		baseOID, baseAddr, index := SuperBlockTag(7, 0x1040, Shape4x1)
		Expect(baseOID).To(Equal(uint64(4)))
		Expect(baseAddr).To(Equal(uint64(0x1040)))
		Expect(index).To(Equal(3))
	})

	It("should group four lines in a 1x4 super-block", func() {
		baseOID, baseAddr, index := SuperBlockTag(7, 0x10C0, Shape1x4)
		Expect(baseOID).To(Equal(uint64(7)))
		Expect(baseAddr).To(Equal(uint64(0x1000)))
		Expect(index).To(Equal(3))
	})

	It("should group two ids by two lines in a 2x2 super-block", func() {
		baseOID, baseAddr, index := SuperBlockTag(5, 0x1040, Shape2x2)
		Expect(baseOID).To(Equal(uint64(4)))
		Expect(baseAddr).To(Equal(uint64(0x1000)))
		Expect(index).To(Equal(3))
	})

	It("should invert the tag", func() {
		for _, s := range []Shape{Shape4x1, Shape1x4, Shape2x2} {
			for oid := uint64(8); oid < 12; oid++ {
				for addr := uint64(0x2000); addr < 0x2100; addr += LineSize {
					baseOID, baseAddr, index := SuperBlockTag(oid, addr, s)
					o, a := AddrInSuperBlock(baseOID, baseAddr, index, s)
					Expect(o).To(Equal(oid))
					Expect(a).To(Equal(addr))
				}
			}
		}
	})

	It("should panic on unaligned addresses", func() {
		Expect(func() { SuperBlockTag(0, 0x1001, Shape1x4) }).To(Panic())
	})

	It("should panic when tagging an unshaped line", func() {
		Expect(func() { SuperBlockTag(0, 0x1000, ShapeNone) }).To(Panic())
	})

	It("should find the vertical base", func() {
		Expect(VerticalBaseOID(7, Shape4x1)).To(Equal(uint64(4)))
		Expect(VerticalBaseOID(7, Shape2x2)).To(Equal(uint64(6)))
		Expect(VerticalBaseOID(7, Shape1x4)).To(Equal(uint64(7)))
	})
})

var _ = Describe("Line", func() {
	It("should align addresses", func() {
		Expect(LineAddr(0x1234)).To(Equal(uint64(0x1200)))
		Expect(PageAddr(0x1234)).To(Equal(uint64(0x1000)))
		Expect(IsLineAligned(0x1240)).To(BeTrue())
		Expect(func() { MustBePageAligned(0x1040) }).To(Panic())
	})

	It("should detect zero lines", func() {
		var l Line
		Expect(l.IsZero()).To(BeTrue())

		l[63] = 1
		Expect(l.IsZero()).To(BeFalse())
	})
})
