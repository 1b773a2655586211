package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/config"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/workload"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Cache.Size = config.ByteSize(2 * mem.KB)
	cfg.Cache.Ways = 4
	cfg.Workload.Records = 500
	cfg.Workload.Objects = 4
	cfg.Workload.LinesPerObject = 32

	return cfg
}

var _ = Describe("Line parsing", func() {
	It("should pad short data with zeros", func() {
		line, err := parseLine("0x0102")
		Expect(err).ToNot(HaveOccurred())
		Expect(line[0]).To(Equal(byte(1)))
		Expect(line[1]).To(Equal(byte(2)))
		Expect(line[2:]).To(Equal(make([]byte, mem.LineSize-2)))
	})

	It("should reject bad data", func() {
		_, err := parseLine("xyz")
		Expect(err).To(HaveOccurred())

		_, err = parseLine(strings.Repeat("00", mem.LineSize+1))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Inspect", func() {
	It("should print every codec", func() {
		var line mem.Line

		var buf bytes.Buffer
		inspectLine(&buf, &line, mbd.New(mbd.DefaultConfig()))

		out := buf.String()
		Expect(out).To(ContainSubstring("bdi"))
		Expect(out).To(ContainSubstring("fpc"))
		Expect(out).To(ContainSubstring("cpack"))
		Expect(out).To(ContainSubstring("decode cycles"))
	})

	It("should run from the command line", func() {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"inspect", "--env-file", "", "00ff"})
		defer rootCmd.SetArgs(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("line 00ff00"))
	})
})

var _ = Describe("Sweep", func() {
	It("should expand the cartesian product", func() {
		configs, err := expandSweep(smallConfig(),
			[]string{"none", "bdi"},
			[]string{"4x1", "2x2"},
			[]string{"2KB", "4KB"})
		Expect(err).ToNot(HaveOccurred())
		Expect(configs).To(HaveLen(6))

		Expect(configs[0].Compression.Kind).To(Equal("none"))
		Expect(configs[0].Cache.Size).To(Equal(config.ByteSize(2 * mem.KB)))
		Expect(configs[2].Compression.Shape).To(Equal("2x2"))
		Expect(configs[5].Cache.Size).To(Equal(config.ByteSize(4 * mem.KB)))
	})

	It("should reject an invalid combination", func() {
		_, err := expandSweep(smallConfig(), []string{"zip"}, []string{"4x1"}, nil)
		Expect(err).To(HaveOccurred())

		_, err = expandSweep(smallConfig(), []string{"bdi"}, []string{"4x1"},
			[]string{"100"})
		Expect(err).To(HaveOccurred())
	})

	It("should run every configuration", func() {
		configs, err := expandSweep(smallConfig(),
			[]string{"none", "bdi", "fpc"}, []string{"4x1"}, nil)
		Expect(err).ToNot(HaveOccurred())

		summaries, err := runSweep(context.Background(), configs, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(summaries).To(HaveLen(3))

		for i, s := range summaries {
			Expect(s.Kind).To(Equal(configs[i].Compression.Kind))
			Expect(s.Loads + s.Stores).To(Equal(uint64(500)))
		}

		var buf bytes.Buffer
		printSummaries(&buf, summaries)
		Expect(strings.Count(buf.String(), "\n")).To(Equal(4))
	})

	It("should record and report summaries", func() {
		configs, _ := expandSweep(smallConfig(), []string{"bdi"}, []string{"1x4"}, nil)
		summaries, err := runSweep(context.Background(), configs, 1)
		Expect(err).ToNot(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "sweep")
		recordSummaries(path, summaries)

		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"report", path + ".sqlite3"})
		defer rootCmd.SetArgs(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("1x4"))
	})
})

var _ = Describe("Generate", func() {
	It("should write a trace that reads back", func() {
		gen, err := workload.NewGenerator(workload.GeneratorConfig{
			Seed:           3,
			NumRecords:     50,
			NumObjects:     2,
			LinesPerObject: 4,
			StoreFraction:  0.5,
			Patterns:       []workload.Pattern{workload.PatternSmallInt},
		})
		Expect(err).ToNot(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "gen.zst")
		n, err := writeTrace(path, gen, "test")
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(50))

		f, err := workload.Open(path)
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()

		count := 0
		for {
			if _, err := f.Next(); err != nil {
				break
			}
			count++
		}

		Expect(count).To(Equal(50))
	})
})
