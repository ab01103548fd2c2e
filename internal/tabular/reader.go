// Package tabular reads telemetry exports from disk into telemetry.Table
// values. Delimited text, Excel workbooks and FIT activity files are
// supported.
package tabular

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/monitoring"
	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

var (
	// ErrUnsupportedFormat is returned for extensions the reader cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoData is returned when a file has no header row.
	ErrNoData = errors.New("no data in file")
)

// Reader parses telemetry files.
type Reader struct {
	fs        fsutil.FileSystem
	encodings []string
	log       *slog.Logger
}

// NewReader returns a Reader over fsys. Text files are decoded with the
// first of encodings that accepts them.
func NewReader(fsys fsutil.FileSystem, encodings []string, log *slog.Logger) *Reader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if len(encodings) == 0 {
		encodings = []string{"utf-8", "latin-1"}
	}
	return &Reader{fs: fsys, encodings: encodings, log: monitoring.Discard(log)}
}

// ReadFile parses the file at path according to its extension.
func (r *Reader) ReadFile(path string) (*telemetry.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xls" {
		return nil, fmt.Errorf("%w: legacy .xls workbooks must be re-saved as .xlsx", ErrUnsupportedFormat)
	}
	if !isText(ext) && !isExcel(ext) && ext != ".fit" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, ErrNoData
	}

	switch {
	case isExcel(ext):
		return readWorkbook(data)
	case ext == ".fit":
		return readFIT(data)
	}

	text, enc, err := decodeText(data, r.encodings)
	if err != nil {
		return nil, err
	}
	var delim rune
	if ext == ".tsv" {
		delim = '\t'
	} else {
		delim = sniffDelimiter(text)
	}
	r.log.Debug("decoded text file", "path", path, "encoding", enc, "delimiter", string(delim))
	return readDelimited(text, delim)
}

func isText(ext string) bool {
	return ext == ".csv" || ext == ".tsv" || ext == ".txt"
}

func isExcel(ext string) bool {
	return ext == ".xlsx" || ext == ".xlsm"
}

// toTable turns raw records (header first) into a Table. Header names are
// trimmed, unnamed columns get a positional name and fully blank rows are
// dropped.
func toTable(records [][]string) (*telemetry.Table, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	header := make([]string, len(records[0]))
	named := false
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		} else {
			named = true
		}
		header[i] = h
	}
	if !named {
		return nil, ErrNoData
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		rows = append(rows, rec)
	}
	return telemetry.NewTable(header, rows), nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
