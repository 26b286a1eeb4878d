// Package loader streams installation records from delimited sources and
// suppresses duplicate rows during the single pass.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
	"github.com/Sumatoshi-tech/licensecount/pkg/safeconv"
)

// Required header columns. Names are matched case-sensitively, in any order.
const (
	ColumnComputerID    = "ComputerID"
	ColumnUserID        = "UserID"
	ColumnApplicationID = "ApplicationID"
	ColumnComputerType  = "ComputerType"
	ColumnComment       = "Comment"
)

// RequiredColumns lists the header names every source must carry.
var RequiredColumns = []string{
	ColumnComputerID,
	ColumnUserID,
	ColumnApplicationID,
	ColumnComputerType,
	ColumnComment,
}

// ctxCheckInterval is the number of rows scanned between context checks.
const ctxCheckInterval = 1024

// Stats describes a completed load.
type Stats struct {
	// Rows is the number of data rows read, duplicates included.
	Rows int
	// Unique is the number of records returned.
	Unique int
	// Duplicates is the number of rows dropped as duplicates.
	Duplicates int
	// Bytes is the number of raw bytes consumed from the source.
	Bytes int64
}

// Observer receives statistics of successful loads.
type Observer interface {
	ObserveLoad(ctx context.Context, stats Stats)
}

// Option configures a Loader.
type Option func(*Loader)

// WithObserver registers an observer notified after every successful load.
func WithObserver(observer Observer) Option {
	return func(l *Loader) {
		l.observer = observer
	}
}

// Loader reads installation records without duplicates.
type Loader struct {
	logger   *slog.Logger
	observer Observer
}

// NewLoader creates a Loader. The logger is required.
func NewLoader(logger *slog.Logger, opts ...Option) (*Loader, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is nil", ErrInvalidArgument)
	}

	l := &Loader{logger: logger}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// LoadUnique reads the file at path and returns its records in file order,
// keeping only the first row of every duplicate key. A compressed source is
// recognized by its ".lz4" extension. No records are returned on failure.
func (l *Loader) LoadUnique(ctx context.Context, path string) ([]installation.Record, error) {
	if path == "" {
		err := fmt.Errorf("%w: file path cannot be empty", ErrInvalidArgument)
		l.logger.ErrorContext(ctx, "load rejected", "error", err)

		return nil, err
	}

	src, err := openSource(path)
	if err != nil {
		l.logger.ErrorContext(ctx, "open source failed", "path", path, "error", err)

		return nil, err
	}
	defer src.Close()

	records, stats, err := l.scan(ctx, src.reader, path)
	stats.Bytes = src.counter.n

	if err != nil {
		return nil, err
	}

	l.finish(ctx, path, stats)

	return records, nil
}

// LoadUniqueFrom performs the same pass as LoadUnique over an open stream.
// name labels the stream in logs and errors.
func (l *Loader) LoadUniqueFrom(ctx context.Context, r io.Reader, name string) ([]installation.Record, error) {
	if r == nil {
		err := fmt.Errorf("%w: reader is nil", ErrInvalidArgument)
		l.logger.ErrorContext(ctx, "load rejected", "source", name, "error", err)

		return nil, err
	}

	counter := &countingReader{inner: r}

	records, stats, err := l.scan(ctx, decodeText(counter), name)
	stats.Bytes = counter.n

	if err != nil {
		return nil, err
	}

	l.finish(ctx, name, stats)

	return records, nil
}

func (l *Loader) finish(ctx context.Context, name string, stats Stats) {
	l.logger.InfoContext(ctx, "installation records loaded",
		"source", name,
		"rows", stats.Rows,
		"unique", stats.Unique,
		"duplicates", stats.Duplicates,
		"size", humanize.Bytes(safeconv.MustInt64ToUint64(stats.Bytes)),
	)

	if l.observer != nil {
		l.observer.ObserveLoad(ctx, stats)
	}
}

func (l *Loader) scan(ctx context.Context, r io.Reader, name string) ([]installation.Record, Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		err = classifyHeaderError(err)
		l.logger.ErrorContext(ctx, "source does not have a valid header", "source", name, "error", err)

		return nil, stats, err
	}

	cols, err := indexColumns(header)
	if err != nil {
		l.logger.ErrorContext(ctx, "source does not have a valid header", "source", name, "error", err)

		return nil, stats, err
	}

	seen := make(map[installation.Key]struct{})
	records := make([]installation.Record, 0)

	for {
		if stats.Rows%ctxCheckInterval == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %w", ErrIO, ctxErr)
				l.logger.ErrorContext(ctx, "load aborted", "source", name, "error", err)

				return nil, stats, err
			}
		}

		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			err = fmt.Errorf("%w: %w", ErrIO, readErr)
			l.logger.ErrorContext(ctx, "load aborted", "source", name, "error", err)

			return nil, stats, err
		}

		line, _ := reader.FieldPos(0)

		rec, parseErr := cols.record(row)
		if parseErr != nil {
			err = fmt.Errorf("%w: line %d: %w", ErrIO, line, parseErr)
			l.logger.ErrorContext(ctx, "load aborted", "source", name, "error", err)

			return nil, stats, err
		}

		stats.Rows++

		key := rec.Key()
		if _, dup := seen[key]; dup {
			stats.Duplicates++

			continue
		}

		seen[key] = struct{}{}
		records = append(records, rec)
	}

	stats.Unique = len(records)

	return records, stats, nil
}

// classifyHeaderError maps a failure to read the first row. An empty source or
// a malformed header row is a format problem; anything else is an I/O failure.
func classifyHeaderError(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: missing header row", ErrFormat)
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return fmt.Errorf("%w: %w", ErrIO, err)
}

// columns holds the position of every required column in a row.
type columns struct {
	computerID    int
	userID        int
	applicationID int
	computerType  int
	comment       int
}

func indexColumns(header []string) (columns, error) {
	positions := make(map[string]int, len(header))

	for i, name := range header {
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}

	var missing []string

	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: missing columns %s", ErrFormat, strings.Join(missing, ", "))
	}

	return columns{
		computerID:    positions[ColumnComputerID],
		userID:        positions[ColumnUserID],
		applicationID: positions[ColumnApplicationID],
		computerType:  positions[ColumnComputerType],
		comment:       positions[ColumnComment],
	}, nil
}

func (c columns) record(row []string) (installation.Record, error) {
	for _, field := range row {
		if !utf8.ValidString(field) {
			return installation.Record{}, errInvalidUTF8
		}
	}

	computerID, err := parseID(row[c.computerID], ColumnComputerID)
	if err != nil {
		return installation.Record{}, err
	}

	userID, err := parseID(row[c.userID], ColumnUserID)
	if err != nil {
		return installation.Record{}, err
	}

	applicationID, err := parseID(row[c.applicationID], ColumnApplicationID)
	if err != nil {
		return installation.Record{}, err
	}

	return installation.Record{
		ComputerID:    computerID,
		UserID:        userID,
		ApplicationID: applicationID,
		ComputerType:  strings.Clone(row[c.computerType]),
		Comment:       strings.Clone(row[c.comment]),
	}, nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8 text")

func parseID(value, column string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}

	return n, nil
}
