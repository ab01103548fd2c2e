package tabular

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

func newTestReader(files map[string][]byte) *Reader {
	m := fsutil.NewMemoryFileSystem()
	for name, data := range files {
		m.WriteFile(name, data)
	}
	return NewReader(m, []string{"utf-8", "latin-1", "cp1252"}, nil)
}

func TestReadFile_Delimited(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
	}{
		{"comma", "/in/a.csv", "speed,rpm,throttle\n10,900,5\n20,1500,15\n"},
		{"semicolon", "/in/a.csv", "speed;rpm;throttle\n10;900;5\n20;1500;15\n"},
		{"pipe txt", "/in/a.txt", "speed|rpm|throttle\n10|900|5\n20|1500|15\n"},
		{"tsv", "/in/a.tsv", "speed\trpm\tthrottle\n10\t900\t5\n20\t1500\t15\n"},
		{"bom and crlf", "/in/a.csv", "\xEF\xBB\xBFspeed,rpm,throttle\r\n10,900,5\r\n20,1500,15\r\n"},
		{"blank rows", "/in/a.csv", "speed,rpm,throttle\n\n10,900,5\n,,\n20,1500,15\n"},
		{"padded header", "/in/a.csv", " speed , rpm ,throttle\n10,900,5\n20,1500,15\n"},
	}
	want := &telemetry.Table{
		Columns: []string{"speed", "rpm", "throttle"},
		Rows:    [][]string{{"10", "900", "5"}, {"20", "1500", "15"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestReader(map[string][]byte{tt.path: []byte(tt.data)}).ReadFile(tt.path)
			require.NoError(t, err)
			if diff := cmp.Diff(want.Columns, got.Columns); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, 2, got.Len())
			for r := range want.Rows {
				for c := range want.Columns {
					assert.Equal(t, want.Rows[r][c], got.Cell(r, c))
				}
			}
		})
	}
}

func TestReadFile_Latin1(t *testing.T) {
	data := []byte("coolant_temp,speed,rpm\n90\xB0C,10,900\n")
	got, err := newTestReader(map[string][]byte{"/in/l.csv": data}).ReadFile("/in/l.csv")
	require.NoError(t, err)
	assert.Equal(t, "90°C", got.Cell(0, 0))
}

func TestReadFile_UTF16(t *testing.T) {
	// "a,b\n1,2\n" little endian with BOM
	src := "a,b\n1,2\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range src {
		data = append(data, byte(r), 0)
	}
	got, err := newTestReader(map[string][]byte{"/in/u.csv": data}).ReadFile("/in/u.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Columns)
	assert.Equal(t, "2", got.Cell(0, 1))
}

func TestReadFile_RaggedRows(t *testing.T) {
	data := "speed,rpm,throttle\n10,900\n20,1500,15,extra\n"
	got, err := newTestReader(map[string][]byte{"/in/r.csv": []byte(data)}).ReadFile("/in/r.csv")
	require.NoError(t, err)
	assert.Equal(t, "", got.Cell(0, 2))
	assert.Len(t, got.Rows[1], 3)
}

func TestReadFile_Errors(t *testing.T) {
	r := newTestReader(map[string][]byte{
		"/in/empty.csv":  {},
		"/in/blank.csv":  []byte(",,\n1,2,3\n"),
		"/in/old.xls":    []byte("junk"),
		"/in/notes.json": []byte("{}"),
	})

	_, err := r.ReadFile("/in/empty.csv")
	assert.True(t, errors.Is(err, ErrNoData), "empty: %v", err)

	_, err = r.ReadFile("/in/blank.csv")
	assert.True(t, errors.Is(err, ErrNoData), "unnamed header: %v", err)

	_, err = r.ReadFile("/in/old.xls")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "xls: %v", err)

	_, err = r.ReadFile("/in/notes.json")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "json: %v", err)

	_, err = r.ReadFile("/in/missing.csv")
	assert.Error(t, err)
}

func TestReadFile_HeaderOnly(t *testing.T) {
	got, err := newTestReader(map[string][]byte{"/in/h.csv": []byte("speed,rpm,throttle\n")}).ReadFile("/in/h.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Len(t, got.Columns, 3)
}

func TestReadFile_Workbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Speed (km/h)", "RPM", "Throttle"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{42, 2100, 35}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{44, 2200, 38}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := newTestReader(map[string][]byte{"/in/book.xlsx": buf.Bytes()}).ReadFile("/in/book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Speed (km/h)", "RPM", "Throttle"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "44", got.Cell(1, 0))
}

func TestReadFile_CorruptFIT(t *testing.T) {
	_, err := newTestReader(map[string][]byte{"/in/ride.fit": []byte("not a fit file")}).ReadFile("/in/ride.fit")
	assert.Error(t, err)
}

func TestFITRecords(t *testing.T) {
	start := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	a := fit.NewRecordMsg()
	a.Timestamp = start
	a.Speed = 10000 // 10 m/s
	a.Distance = 0
	b := fit.NewRecordMsg()
	b.Timestamp = start.Add(time.Second)
	b.Speed = 12500   // 12.5 m/s
	b.Distance = 1250 // 12.5 m
	c := fit.NewRecordMsg()

	got, err := fitRecords([]*fit.RecordMsg{a, b, nil, c})
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	assert.Equal(t, "2024-05-02T06:00:00Z", got.Cell(0, 0))
	assert.InDelta(t, 36.0, telemetry.ParseFloat(got.Cell(0, 1)), 1e-9)
	assert.InDelta(t, 45.0, telemetry.ParseFloat(got.Cell(1, 1)), 1e-9)
	assert.InDelta(t, 0.0125, telemetry.ParseFloat(got.Cell(1, 2)), 1e-12)
	// invalid fields stay blank
	assert.Equal(t, "", got.Cell(0, 3))
	assert.Equal(t, "", got.Cell(2, 0))
	assert.Equal(t, "", got.Cell(2, 1))

	_, err = fitRecords(nil)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n"))
	assert.Equal(t, ';', sniffDelimiter("\n\na;b;c\n"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb\tc"))
	assert.Equal(t, ',', sniffDelimiter("single"))
}
