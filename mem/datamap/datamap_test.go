package datamap

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocsim/compression/bdi"
	"github.com/sarchlab/ocsim/mem/mem"
)

var _ = Describe("Map", func() {
	var m *Map

	BeforeEach(func() {
		m = MakeBuilder().WithNumBuckets(1).Build("DMap")
	})

	chain := func() []uint64 {
		addrs := []uint64{}
		for cur := m.buckets[0]; cur != nilHandle; cur = m.arena[cur].next {
			addrs = append(addrs, m.arena[cur].addr)
		}

		return addrs
	}

	It("should report missing lines", func() {
		_, err := m.Find(1, 0x40)
		Expect(err).To(MatchError(ErrNotFound))
		Expect(m.Contains(1, 0x40)).To(BeFalse())
	})

	It("should create zero lines on insert", func() {
		line := m.Insert(1, 0x40)
		Expect(line.IsZero()).To(BeTrue())
		Expect(m.Len()).To(Equal(1))

		m.Insert(1, 0x40)
		Expect(m.Len()).To(Equal(1))
	})

	It("should keep one entry per key", func() {
		var line mem.Line
		line[0] = 9

		m.Store(1, 0x40, &line)
		m.Store(2, 0x40, &line)
		m.Store(1, 0x80, &line)
		m.Store(1, 0x40, &line)

		Expect(m.Len()).To(Equal(3))

		got, err := m.Find(2, 0x40)
		Expect(err).NotTo(HaveOccurred())
		Expect(got[0]).To(Equal(byte(9)))
	})

	It("should move a hit to the head of its chain", func() {
		m.Insert(1, 0x00)
		m.Insert(1, 0x40)
		m.Insert(1, 0x80)
		Expect(chain()).To(Equal([]uint64{0x80, 0x40, 0x00}))

		_, err := m.Find(1, 0x00)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain()).To(Equal([]uint64{0x00, 0x80, 0x40}))
		Expect(m.arena[m.buckets[0]].prev).To(Equal(nilHandle))
	})

	It("should count queries and iterations", func() {
		m.Insert(1, 0x00)
		m.Insert(1, 0x40)

		before := m.Stats()
		_, _ = m.Find(1, 0x00)
		after := m.Stats()

		Expect(after.Queries - before.Queries).To(Equal(uint64(1)))
		Expect(after.Iterations - before.Iterations).To(Equal(uint64(2)))
		Expect(after.AvgProbe()).To(BeNumerically(">", 0))
	})

	It("should evict and reuse arena slots", func() {
		m.Insert(1, 0x00)
		m.Insert(1, 0x40)

		Expect(m.Evict(1, 0x00)).To(BeTrue())
		Expect(m.Evict(1, 0x00)).To(BeFalse())
		Expect(m.Len()).To(Equal(1))
		Expect(chain()).To(Equal([]uint64{0x40}))

		m.Insert(2, 0x00)
		Expect(m.arena).To(HaveLen(2))
	})

	It("should read and write spans that cross lines", func() {
		data := make([]byte, 100)
		for i := range data {
			data[i] = byte(i + 1)
		}

		m.Write(3, 0x30, data)
		Expect(m.Len()).To(Equal(3))

		first, err := m.Find(3, 0x00)
		Expect(err).NotTo(HaveOccurred())
		Expect(first[0x2F]).To(BeZero())
		Expect(first[0x30]).To(Equal(byte(1)))

		out := make([]byte, 100)
		m.Read(3, 0x30, out)
		Expect(out).To(Equal(data))
	})

	It("should compress lines", func() {
		t, buf := m.FindCompressed(1, 0x40)
		Expect(t).To(Equal(bdi.TypeNotFound))
		Expect(buf).To(BeNil())

		m.Insert(1, 0x40)
		t, buf = m.FindCompressed(1, 0x40)
		Expect(t).To(Equal(bdi.Type8x1))
		Expect(buf).To(HaveLen(17))

		var noisy mem.Line
		for i := range noisy {
			noisy[i] = byte(i*37 + 11)
		}

		m.Store(1, 0x80, &noisy)
		t, _ = m.FindCompressed(1, 0x80)
		Expect(t).To(Equal(bdi.TypeInvalid))
	})

	It("should reject the page object id", func() {
		Expect(func() { m.Insert(PageOID, 0x40) }).To(Panic())
		Expect(func() { m.Insert(1, 0x41) }).To(Panic())
	})

	It("should visit every line", func() {
		m.Insert(1, 0x00)
		m.Insert(2, 0x00)
		NewPageMap(m, mem.Shape4x1).Insert(0x1000)

		n := 0
		m.Each(func(oid, addr uint64, line *mem.Line) bool {
			n++
			return true
		})

		Expect(n).To(Equal(2))
	})

	It("should reset", func() {
		m.Insert(1, 0x00)
		m.Reset()

		Expect(m.Len()).To(BeZero())
		Expect(m.Contains(1, 0x00)).To(BeFalse())
	})

	It("should require a power of two bucket count", func() {
		Expect(func() { MakeBuilder().WithNumBuckets(3).Build("x") }).To(Panic())
	})
})

var _ = Describe("PageMap", func() {
	var (
		m *Map
		p *PageMap
	)

	BeforeEach(func() {
		m = MakeBuilder().WithNumBuckets(16).Build("DMap")
		p = NewPageMap(m, mem.Shape1x4)
	})

	It("should use the default shape for unknown pages", func() {
		Expect(p.Shape(0x5000)).To(Equal(mem.Shape1x4))
		Expect(p.Len()).To(BeZero())

		Expect(p.Insert(0x5040)).To(Equal(mem.Shape1x4))
		Expect(p.Len()).To(Equal(1))
	})

	It("should set the shape of a range", func() {
		p.InsertRange(0x1FC0, 0x1080, mem.Shape2x2)

		Expect(p.Len()).To(Equal(3))
		Expect(p.Shape(0x1000)).To(Equal(mem.Shape2x2))
		Expect(p.Shape(0x2000)).To(Equal(mem.Shape2x2))
		Expect(p.Shape(0x3000)).To(Equal(mem.Shape2x2))
		Expect(p.Shape(0x4000)).To(Equal(mem.Shape1x4))
		Expect(m.Len()).To(BeZero())
	})

	It("should remove pages", func() {
		p.Set(0x1000, mem.Shape4x1)
		Expect(p.Remove(0x1040)).To(BeTrue())
		Expect(p.Shape(0x1000)).To(Equal(mem.Shape1x4))
	})

	It("should change the default shape", func() {
		p.SetDefaultShape(mem.ShapeNone)
		Expect(p.DefaultShape()).To(Equal(mem.ShapeNone))
	})
})
