package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/mem/overlay"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
}

func get(m *Monitor, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	m.Router().ServeHTTP(rec, req)

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		mockCtrl *gomock.Controller
		runner   *MockRunner
		cache    *overlay.Cache
		m        *Monitor
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		runner = NewMockRunner(mockCtrl)

		cache = overlay.MakeBuilder().
			WithByteSize(512).
			WithNumWays(2).
			Build("L1")

		m = NewMonitor()
		m.RegisterRunner(runner)
		m.RegisterCache(cache)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should pause and continue the runner", func() {
		runner.EXPECT().Pause()
		Expect(get(m, "/api/pause").Code).To(Equal(http.StatusOK))

		runner.EXPECT().Continue()
		Expect(get(m, "/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should report the current cycle", func() {
		runner.EXPECT().CurrentCycle().Return(uint64(1234))

		Expect(get(m, "/api/now").Body.String()).To(Equal(`{"now":1234}`))
	})

	It("should list caches", func() {
		Expect(get(m, "/api/list_caches").Body.String()).To(Equal(`["L1"]`))
	})

	It("should return 404 for unknown caches", func() {
		Expect(get(m, "/api/stats/L9").Code).To(Equal(http.StatusNotFound))
	})

	It("should report statistics", func() {
		cache.Lookup(0, 0, 0x40, mem.ShapeNone)

		rec := get(m, "/api/stats/L1")

		var stats overlay.Stats
		Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
		Expect(stats.Lookups).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(1)))
	})

	It("should report a field of the statistics", func() {
		cache.Lookup(0, 0, 0x40, mem.ShapeNone)

		rec := get(m, "/api/field/"+url.PathEscape(`{"cache_name":"L1","field_name":"Misses"}`))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("1"))
	})

	It("should reject a bad field", func() {
		rec := get(m, "/api/field/"+url.PathEscape(`{"cache_name":"L1","field_name":"Nope"}`))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should dump a set", func() {
		rec := get(m, "/api/set/L1/1")

		Expect(rec.Body.String()).To(Equal(cache.SetString(1)))
	})

	It("should reject a set out of range", func() {
		Expect(get(m, "/api/set/L1/4").Code).To(Equal(http.StatusNotFound))
	})

	It("should sort sets by occupancy", func() {
		addr := cache.GenAddr(0, 2, mem.ShapeNone)
		cache.Insert(0, 0, addr, mem.ShapeNone, false)
		cache.Insert(1, 0, addr+4*mem.LineSize, mem.ShapeNone, false)
		cache.Insert(2, 0, cache.GenAddr(0, 3, mem.ShapeNone), mem.ShapeNone, false)

		rec := get(m, "/api/sets/L1?limit=2")

		var sets []SetOccupancy
		Expect(json.Unmarshal(rec.Body.Bytes(), &sets)).To(Succeed())
		Expect(sets).To(Equal([]SetOccupancy{
			{Set: 2, Bytes: 128, Capacity: 128, Lines: 2},
			{Set: 3, Bytes: 64, Capacity: 128, Lines: 1},
		}))
	})

	It("should reject a bad sort method", func() {
		Expect(get(m, "/api/sets/L1?sort=size").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("trace", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rec := get(m, "/api/progress")

		var bars []map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("trace"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 3))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))

		m.CompleteProgressBar(bar)
		Expect(get(m, "/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should serve the page", func() {
		rec := get(m, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("ocsim"))
	})
})

var _ = Describe("Set selection", func() {
	sets := []SetOccupancy{
		{Set: 0, Bytes: 10, Lines: 3},
		{Set: 1, Bytes: 30, Lines: 1},
		{Set: 2, Bytes: 20, Lines: 2},
	}

	It("should sort by bytes", func() {
		s := sortAndSelectSets(sets, "bytes", 0, 0)
		Expect([]int{s[0].Set, s[1].Set, s[2].Set}).To(Equal([]int{1, 2, 0}))
	})

	It("should sort by lines", func() {
		s := sortAndSelectSets(sets, "lines", 0, 0)
		Expect([]int{s[0].Set, s[1].Set, s[2].Set}).To(Equal([]int{0, 2, 1}))
	})

	It("should page", func() {
		s := sortAndSelectSets(sets, "bytes", 1, 1)
		Expect(s).To(HaveLen(1))
		Expect(s[0].Set).To(Equal(2))

		Expect(sortAndSelectSets(sets, "bytes", 5, 7)).To(BeEmpty())
	})
})

var _ = Describe("Field walking", func() {
	It("should walk int fields", func() {
		elem, err := walkFields(&sampleStruct{Field1: 1}, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		elem, err := walkFields(&sampleStruct{Field2: "abc"}, "Field2")

		Expect(err).To(BeNil())
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk into pointers", func() {
		s := &sampleStruct{Field3: &sampleStruct{Field1: 1}}

		elem, err := walkFields(s, "Field3")
		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))

		elem, err = walkFields(s, "Field3.Field1")
		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slices recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{{Field1: 1}},
			}, {}},
		}

		elem, err := walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk arrays", func() {
		elem, err := walkFields(overlay.Stats{ShapeCounts: [mem.NumShapes]uint64{0, 5}},
			"ShapeCounts.1")

		Expect(err).To(BeNil())
		Expect(elem.Uint()).To(Equal(uint64(5)))
	})

	It("should fail on bad indexes", func() {
		_, err := walkFields(&sampleStruct{}, "Field4.0")
		Expect(err).To(HaveOccurred())

		_, err = walkFields(&sampleStruct{}, "Field1.x")
		Expect(err).To(HaveOccurred())
	})
})
