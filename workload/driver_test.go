package workload

import (
	"context"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/mem/overlay"
	"github.com/sarchlab/ocsim/mem/sizing"
)

type countingProgress struct {
	finished uint64
}

func (p *countingProgress) IncrementFinished(n uint64) {
	p.finished += n
}

type sliceSource struct {
	records []Record
}

func (s *sliceSource) Next() (Record, error) {
	if len(s.records) == 0 {
		return Record{}, io.EOF
	}

	r := s.records[0]
	s.records = s.records[1:]

	return r, nil
}

var _ = Describe("Driver", func() {
	var (
		data *datamap.Map
	)

	BeforeEach(func() {
		data = datamap.MakeBuilder().Build("data")
	})

	Context("with an uncompressed cache", func() {
		var (
			cache    *overlay.Cache
			progress *countingProgress
			d        *Driver
		)

		BeforeEach(func() {
			cache = overlay.MakeBuilder().
				WithByteSize(256).
				WithNumWays(4).
				WithLatency(2).
				Build("L1")
			progress = &countingProgress{}
			d = MakeDriverBuilder().
				WithDataMap(data).
				WithMemoryLatency(100).
				WithProgress(progress).
				Build(cache)
		})

		It("should wait for memory on a load miss", func() {
			Expect(d.Step(Record{Op: OpLoad, OID: 1, Addr: 0x44})).
				To(Equal(uint64(104)))
			Expect(d.Step(Record{Op: OpLoad, OID: 1, Addr: 0x40})).
				To(Equal(uint64(106)))
			Expect(d.Step(Record{Op: OpStore, OID: 1, Addr: 0x48, Data: []byte{7}})).
				To(Equal(uint64(108)))

			Expect(d.Stats()).To(Equal(Stats{
				Loads:      2,
				Stores:     1,
				LoadMisses: 1,
				Cycles:     108,
			}))
			Expect(progress.finished).To(Equal(uint64(3)))

			buf := make([]byte, 1)
			data.Read(1, 0x48, buf)
			Expect(buf[0]).To(Equal(byte(7)))
		})

		It("should count writebacks of dirty victims", func() {
			for i := uint64(0); i < 4; i++ {
				d.Step(Record{Op: OpStore, OID: 0, Addr: i * mem.LineSize})
			}

			d.Step(Record{Op: OpLoad, OID: 0, Addr: 4 * mem.LineSize})

			Expect(d.Stats().Writebacks).To(Equal(uint64(1)))
			Expect(data.Len()).To(Equal(4))
		})

		It("should run a source to the end", func() {
			src := &sliceSource{records: []Record{
				{Op: OpLoad, OID: 0, Addr: 0},
				{Op: OpLoad, OID: 0, Addr: 0},
			}}

			Expect(d.Run(context.Background(), src)).To(Succeed())
			Expect(d.Stats().Loads).To(Equal(uint64(2)))
			Expect(d.CurrentCycle()).To(Equal(uint64(106)))
		})

		It("should stop when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			src := &sliceSource{records: []Record{{Op: OpLoad}}}

			Expect(d.Run(ctx, src)).To(MatchError(context.Canceled))
			Expect(d.Stats().Loads).To(BeZero())
		})

		It("should block while paused", func() {
			d.Pause()

			finished := make(chan uint64)
			go func() {
				finished <- d.Step(Record{Op: OpLoad})
			}()

			Consistently(finished, 50*time.Millisecond).ShouldNot(Receive())

			d.Continue()
			Eventually(finished).Should(Receive(Equal(uint64(104))))
		})
	})

	Context("with a BDI cache", func() {
		It("should pack the lines of a 4x1 super-block", func() {
			sizer, err := sizing.New(compression.KindBDI, data, mbd.DefaultConfig())
			Expect(err).ToNot(HaveOccurred())

			cache := overlay.MakeBuilder().
				WithByteSize(1 * mem.KB).
				WithNumWays(4).
				WithCompressor(sizer).
				Build("L1")
			pages := datamap.NewPageMap(data, mem.Shape4x1)

			d := MakeDriverBuilder().
				WithDataMap(data).
				WithPageMap(pages).
				Build(cache)

			for oid := uint64(0); oid < 4; oid++ {
				d.Step(Record{Op: OpStore, OID: oid, Addr: 0x1000})
			}

			for oid := uint64(0); oid < 4; oid++ {
				d.Step(Record{Op: OpLoad, OID: oid, Addr: 0x1000})
			}

			st := cache.RefreshStats()
			Expect(st.ValidLines).To(Equal(uint64(4)))
			Expect(st.CompressedHits).To(Equal(uint64(4)))
			Expect(st.ShapeCounts[mem.Shape4x1]).To(BeNumerically(">=", 1))
			Expect(d.Stats().LoadMisses).To(BeZero())
		})
	})
})
