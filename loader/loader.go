// Package loader reads a tabular input file into raw records for the
// pipeline. CSV files get delimiter sniffing over the common candidates and
// a latin-1 fallback when the bytes are not valid UTF-8; XLSX workbooks are
// read through excelize.
//
// Example usage:
//
//	ldr := loader.New()
//	batch, err := ldr.Load(ctx, "ventas.csv")
//
//	// Force a delimiter instead of sniffing
//	ldr := loader.New(loader.WithDelimiter(';'))
package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/telemetry"
)

// delimiterCandidates are tried when sniffing, most common first.
var delimiterCandidates = []rune{',', ';', '|', '\t'}

// Batch is the raw content of one input file.
type Batch struct {
	Name   string
	Header []string
	Rows   []dataset.Raw

	// Delimiter and Encoding record what the loader detected, for the
	// metrics surface. Encoding is "utf-8" or "latin-1"; both are empty for
	// workbook inputs.
	Delimiter string
	Encoding  string
}

// Loader reads input files. Configure it with functional options passed
// to New.
type Loader struct {
	// delimiter forces the CSV field separator. Zero means sniff.
	delimiter rune
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithDelimiter disables sniffing and uses the given separator.
func WithDelimiter(r rune) Option {
	return func(l *Loader) {
		l.delimiter = r
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file, dispatching on extension: .xlsx and .xlsm are
// treated as workbooks, everything else as delimited text.
func (l *Loader) Load(ctx context.Context, filename string) (*Batch, error) {
	timer := telemetry.StartTimer(ctx, "load")
	defer timer.End()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return l.loadWorkbook(filename)
	default:
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		return l.loadCSV(filepath.Base(filename), data)
	}
}

// LoadBytes reads delimited text from memory. Used for stdin input.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) (*Batch, error) {
	timer := telemetry.StartTimer(ctx, "load")
	defer timer.End()

	return l.loadCSV(name, data)
}

func (l *Loader) loadCSV(name string, data []byte) (*Batch, error) {
	encoding := "utf-8"
	if !utf8.Valid(data) {
		data = decodeLatin1(data)
		encoding = "latin-1"
	}

	delimiter := l.delimiter
	if delimiter == 0 {
		delimiter = sniffDelimiter(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // tolerate ragged rows; absent cells degrade to missing fields
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}

	batch := &Batch{
		Name:      name,
		Header:    header,
		Delimiter: string(delimiter),
		Encoding:  encoding,
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", name, len(batch.Rows)+2, err)
		}
		batch.Rows = append(batch.Rows, rowToRaw(header, record))
	}

	return batch, nil
}

// loadWorkbook reads the first sheet of an XLSX file.
func (l *Loader) loadWorkbook(filename string) (*Batch, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", filename)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet %s: %w", filename, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %s is empty", filename, sheets[0])
	}

	batch := &Batch{
		Name:   filepath.Base(filename),
		Header: rows[0],
	}
	for _, row := range rows[1:] {
		batch.Rows = append(batch.Rows, rowToRaw(batch.Header, row))
	}

	return batch, nil
}

// rowToRaw zips a record onto the header. Short rows simply omit the
// trailing columns; extra cells beyond the header are dropped.
func rowToRaw(header, record []string) dataset.Raw {
	raw := make(dataset.Raw, len(header))
	for i, label := range header {
		if i >= len(record) {
			break
		}
		raw[label] = record[i]
	}
	return raw
}

// sniffDelimiter picks the candidate that appears most often in the first
// line. Ties keep the earlier candidate, so a plain comma header wins.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best := delimiterCandidates[0]
	bestCount := 0
	for _, candidate := range delimiterCandidates {
		count := bytes.Count(line, []byte(string(candidate)))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

// decodeLatin1 maps each byte to the corresponding rune. Latin-1 is the
// fallback the original exports used when not UTF-8.
func decodeLatin1(data []byte) []byte {
	var b strings.Builder
	b.Grow(len(data) * 2)
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return []byte(b.String())
}
