package sizing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/mem"
)

func noisyLine() mem.Line {
	var l mem.Line
	for i := range l {
		l[i] = byte(i*37 + 11)
	}

	return l
}

var _ = Describe("New", func() {
	var dmap *datamap.Map

	BeforeEach(func() {
		dmap = datamap.MakeBuilder().WithNumBuckets(64).Build("DMap")
	})

	It("should create a sizer for every kind", func() {
		for _, kind := range compression.AllKinds() {
			s, err := New(kind, dmap, mbd.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Kind()).To(Equal(kind))
		}
	})

	It("should reject an invalid MBD configuration", func() {
		cfg := mbd.DefaultConfig()
		cfg.DictSize = 3

		_, err := New(compression.KindMBD, dmap, cfg)
		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown kinds", func() {
		_, err := New(compression.Kind(42), dmap, mbd.DefaultConfig())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Sizers", func() {
	var (
		dmap  *datamap.Map
		noisy mem.Line
	)

	BeforeEach(func() {
		dmap = datamap.MakeBuilder().WithNumBuckets(64).Build("DMap")
		noisy = noisyLine()
		dmap.Store(9, 0x40, &noisy)
	})

	It("should keep lines uncompressed", func() {
		s := &NoneSizer{}
		Expect(s.CompressedSize(1, 0x40, mem.Shape4x1)).To(Equal(64))
		Expect(s.ExtraHitCycles(1, 0x40, mem.Shape4x1)).To(BeZero())
		Expect(s.Stats().Ratio()).To(Equal(1.0))
	})

	It("should size lines never written as zero lines", func() {
		s := NewBDISizer(dmap)
		Expect(s.CompressedSize(1, 0x80, mem.Shape1x4)).To(Equal(17))
		Expect(dmap.Contains(1, 0x80)).To(BeTrue())
	})

	It("should store BDI-incompressible lines whole", func() {
		s := NewBDISizer(dmap)
		Expect(s.CompressedSize(9, 0x40, mem.Shape1x4)).To(Equal(64))
		Expect(s.Stats().Compressed).To(BeZero())
		Expect(s.VerticalStats().BDISuccess).To(BeZero())
	})

	It("should compress against the base line of the super-block", func() {
		s := NewBDISizer(dmap)

		Expect(s.CompressedSize(1, 0x40, mem.Shape4x1)).To(Equal(17))
		v := s.VerticalStats()
		Expect(v.NotBase).To(Equal(uint64(1)))
		Expect(v.BaseFound).To(BeZero())

		dmap.Insert(0, 0x40)
		Expect(s.CompressedSize(0, 0x40, mem.Shape4x1)).To(Equal(17))
		Expect(s.CompressedSize(1, 0x40, mem.Shape4x1)).To(Equal(10))

		v = s.VerticalStats()
		Expect(v.Attempts).To(Equal(uint64(3)))
		Expect(v.BDISuccess).To(Equal(uint64(3)))
		Expect(v.NotBase).To(Equal(uint64(2)))
		Expect(v.BaseFound).To(Equal(uint64(1)))
		Expect(v.SameType).To(Equal(uint64(1)))
		Expect(v.VerticalSuccess).To(Equal(uint64(1)))
		Expect(v.VerticalBefore).To(Equal(uint64(17)))
		Expect(v.VerticalAfter).To(Equal(uint64(10)))
	})

	It("should skip vertical compression when the base has another type", func() {
		s := NewBDISizer(dmap)
		dmap.Store(12, 0x40, &noisy)
		dmap.Insert(13, 0x40)

		Expect(s.CompressedSize(13, 0x40, mem.Shape2x2)).To(Equal(17))

		v := s.VerticalStats()
		Expect(v.BaseFound).To(Equal(uint64(1)))
		Expect(v.SameType).To(BeZero())
	})

	It("should not use vertical compression for one-object super-blocks", func() {
		s := NewBDISizer(dmap)
		dmap.Insert(0, 0x40)

		Expect(s.CompressedSize(0, 0x40, mem.Shape1x4)).To(Equal(17))
		Expect(s.VerticalStats().NotBase).To(BeZero())
		Expect(s.ExtraHitCycles(0, 0x40, mem.Shape1x4)).To(Equal(BDIHitCycles))
	})

	It("should size FPC streams", func() {
		s := NewFPCSizer(dmap)

		Expect(s.CompressedSize(1, 0x40, mem.Shape1x4)).To(Equal(3))
		Expect(s.CompressedSize(9, 0x40, mem.Shape1x4)).To(Equal(64))
		Expect(s.ExtraHitCycles(1, 0x40, mem.Shape1x4)).To(Equal(FPCHitCycles))

		st := s.Stats()
		Expect(st.Attempts).To(Equal(uint64(2)))
		Expect(st.Compressed).To(Equal(uint64(1)))
		Expect(st.AfterBytes).To(Equal(uint64(67)))
		Expect(st.HitCycles).To(Equal(FPCHitCycles))
	})

	It("should size CPACK streams", func() {
		s := NewCPACKSizer(dmap)

		Expect(s.CompressedSize(1, 0x40, mem.Shape1x4)).To(Equal(4))
		Expect(s.ExtraHitCycles(1, 0x40, mem.Shape1x4)).To(Equal(CPACKHitCycles))
	})

	It("should size MBD streams and time their decoding", func() {
		s := NewMBDSizer(dmap, mbd.New(mbd.DefaultConfig()))

		Expect(s.CompressedSize(1, 0x40, mem.Shape1x4)).To(Equal(4))
		Expect(s.ExtraHitCycles(1, 0x40, mem.Shape1x4)).To(Equal(uint64(8)))
		Expect(s.Codec().Config()).To(Equal(mbd.DefaultConfig()))
	})
})
