package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Source produces records until it returns io.EOF.
type Source interface {
	Next() (Record, error)
}

// Reader reads a text trace.
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
}

// NewReader creates a reader of the trace in r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Reader{scanner: scanner}
}

// Next returns the next record. Blank lines and lines starting with '#' are
// skipped.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.lineNum++

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.lineNum, err)
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, err
	}

	return Record{}, io.EOF
}

// TraceFile is a trace opened from disk.
type TraceFile struct {
	*Reader

	closers []func() error
}

// Close releases the file and the decompressor.
func (f *TraceFile) Close() error {
	var errs []error

	for i := len(f.closers) - 1; i >= 0; i-- {
		errs = append(errs, f.closers[i]())
	}

	return errors.Join(errs...)
}

// Open opens a trace file. Files ending in .zst are zstd-compressed and files
// ending in .lz4 are lz4-compressed.
func Open(path string) (*TraceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	tf := &TraceFile{closers: []func() error{f.Close}}

	var r io.Reader = f

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd trace: %w", err)
		}

		tf.closers = append(tf.closers, func() error {
			dec.Close()
			return nil
		})
		r = dec
	case ".lz4":
		r = lz4.NewReader(f)
	}

	tf.Reader = NewReader(r)

	return tf, nil
}

// Writer writes a text trace.
type Writer struct {
	w       *bufio.Writer
	closers []func() error
}

// NewWriter creates a writer of an uncompressed trace.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create creates a trace file, compressed according to its extension as in
// Open.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace: %w", err)
	}

	var (
		out     io.Writer = f
		closers           = []func() error{f.Close}
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd trace: %w", err)
		}

		closers = append(closers, enc.Close)
		out = enc
	case ".lz4":
		enc := lz4.NewWriter(f)
		closers = append(closers, enc.Close)
		out = enc
	}

	w := NewWriter(out)
	w.closers = closers

	return w, nil
}

// Comment writes a comment line.
func (w *Writer) Comment(text string) error {
	_, err := fmt.Fprintf(w.w, "# %s\n", text)
	return err
}

// Write writes one record.
func (w *Writer) Write(r Record) error {
	_, err := fmt.Fprintln(w.w, r.String())
	return err
}

// Close flushes the trace and closes the compressor and the file, if any.
func (w *Writer) Close() error {
	errs := []error{w.w.Flush()}

	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = append(errs, w.closers[i]())
	}

	return errors.Join(errs...)
}
