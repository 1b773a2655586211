package workload

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Record", func() {
	It("should parse loads and stores", func() {
		r, err := ParseRecord("L 3 0x1040")
		Expect(err).ToNot(HaveOccurred())
		Expect(cmp.Diff(Record{Op: OpLoad, OID: 3, Addr: 0x1040}, r)).To(BeEmpty())

		r, err = ParseRecord("s 0x10 128 00ff")
		Expect(err).ToNot(HaveOccurred())
		Expect(cmp.Diff(
			Record{Op: OpStore, OID: 16, Addr: 128, Data: []byte{0x00, 0xff}},
			r,
		)).To(BeEmpty())
	})

	It("should format as a trace line", func() {
		r := Record{Op: OpStore, OID: 2, Addr: 0x80, Data: []byte{1, 2}}
		Expect(r.String()).To(Equal("S 2 0x80 0102"))

		back, err := ParseRecord(r.String())
		Expect(err).ToNot(HaveOccurred())
		Expect(cmp.Diff(r, back)).To(BeEmpty())
	})

	DescribeTable("should reject malformed lines",
		func(line string) {
			_, err := ParseRecord(line)
			Expect(err).To(HaveOccurred())
		},
		Entry("too few fields", "L 1"),
		Entry("too many fields", "S 1 2 00 00"),
		Entry("bad op", "X 1 2"),
		Entry("bad oid", "L z 2"),
		Entry("bad address", "L 1 0xg"),
		Entry("data on a load", "L 1 2 00"),
		Entry("bad data", "S 1 2 0"),
	)
})

var _ = Describe("Reader", func() {
	It("should skip comments and blank lines", func() {
		r := NewReader(strings.NewReader("# header\n\nL 1 0x40\n  # note\nS 2 0x80\n"))

		var got []Record
		for {
			rec, err := r.Next()
			if err == io.EOF {
				break
			}

			Expect(err).ToNot(HaveOccurred())
			got = append(got, rec)
		}

		Expect(cmp.Diff([]Record{
			{Op: OpLoad, OID: 1, Addr: 0x40},
			{Op: OpStore, OID: 2, Addr: 0x80},
		}, got)).To(BeEmpty())
	})

	It("should report the line of an error", func() {
		r := NewReader(strings.NewReader("L 1 0x40\nQ 1 2\n"))

		_, err := r.Next()
		Expect(err).ToNot(HaveOccurred())

		_, err = r.Next()
		Expect(err).To(MatchError(ContainSubstring("line 2")))
	})

	DescribeTable("should read back what was written",
		func(name string) {
			path := filepath.Join(GinkgoT().TempDir(), name)
			records := []Record{
				{Op: OpLoad, OID: 0, Addr: 0},
				{Op: OpStore, OID: 7, Addr: 0x1000, Data: []byte{0xde, 0xad}},
				{Op: OpLoad, OID: 1 << 40, Addr: 0xfffc0},
			}

			w, err := Create(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Comment("test trace")).To(Succeed())
			for _, r := range records {
				Expect(w.Write(r)).To(Succeed())
			}
			Expect(w.Close()).To(Succeed())

			f, err := Open(path)
			Expect(err).ToNot(HaveOccurred())
			defer f.Close()

			var got []Record
			for {
				rec, err := f.Next()
				if err == io.EOF {
					break
				}

				Expect(err).ToNot(HaveOccurred())
				got = append(got, rec)
			}

			Expect(cmp.Diff(records, got)).To(BeEmpty())
		},
		Entry("plain", "trace.txt"),
		Entry("zstd", "trace.zst"),
		Entry("lz4", "trace.lz4"),
	)

	It("should fail to open a missing file", func() {
		_, err := Open(filepath.Join(GinkgoT().TempDir(), "none.txt"))
		Expect(err).To(HaveOccurred())
	})
})
