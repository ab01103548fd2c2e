package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoders maps the encoding names accepted in configuration.
var decoders = map[string]encoding.Encoding{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
}

// decodeText converts data to a UTF-8 string using the first encoding that
// accepts it. A UTF-16 byte order mark overrides the list.
func decodeText(data []byte, encodings []string) (string, string, error) {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		out, err := decoders["utf-16"].NewDecoder().Bytes(data)
		if err == nil {
			return string(out), "utf-16", nil
		}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	for _, name := range encodings {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "utf-8" || name == "utf8" {
			if utf8.Valid(data) {
				return string(data), name, nil
			}
			continue
		}
		enc, ok := decoders[name]
		if !ok {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out), name, nil
		}
	}
	return "", "", fmt.Errorf("could not decode file with any of %v", encodings)
}

// sniffDelimiter picks the candidate separator that occurs most often in
// the header line. Comma wins ties.
func sniffDelimiter(text string) rune {
	line := text
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readDelimited(text string, delim rune) (*telemetry.Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = delim != '\t'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	return toTable(records)
}
