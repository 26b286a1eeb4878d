package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CompressedExtension marks sources stored as lz4 frames.
const CompressedExtension = ".lz4"

// CSVExtension is the extension every accepted source carries, optionally
// followed by CompressedExtension.
const CSVExtension = ".csv"

// source is an opened input file plus the decoded stream read from it.
type source struct {
	file    *os.File
	counter *countingReader
	reader  io.Reader
}

func (s *source) Close() error {
	return s.file.Close()
}

// openSource opens path for reading. Directories count as missing.
func openSource(path string) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}

	counter := &countingReader{inner: file}

	var raw io.Reader = counter
	if IsCompressed(path) {
		raw = lz4.NewReader(counter)
	}

	return &source{
		file:    file,
		counter: counter,
		reader:  decodeText(raw),
	}, nil
}

// IsCompressed reports whether path names an lz4-compressed source.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedExtension)
}

// HasCSVExtension reports whether path ends in ".csv" or ".csv.lz4",
// ignoring case.
func HasCSVExtension(path string) bool {
	if IsCompressed(path) {
		path = path[:len(path)-len(CompressedExtension)]
	}

	return strings.EqualFold(filepath.Ext(path), CSVExtension)
}

// decodeText strips a leading byte order mark. UTF-16 input with a BOM is
// converted to UTF-8; input without a BOM passes through untouched and is
// validated row by row.
func decodeText(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))
}

type countingReader struct {
	inner io.Reader
	n     int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.inner.Read(p)
	c.n += int64(n)

	return n, err
}
