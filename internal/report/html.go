package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/ingest"
)

// maxReasonLen caps skip reasons used as chart categories.
const maxReasonLen = 60

// HTML renders the report as a page of charts: trips per processed file,
// the processed/skipped split and the most common skip reasons.
type HTML struct {
	FS   fsutil.FileSystem
	Path string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

func (h HTML) WriteReport(_ context.Context, r *ingest.Report) error {
	var buf bytes.Buffer
	if err := h.Render(&buf, r); err != nil {
		return err
	}
	return writeFile(h.FS, h.Path, buf.Bytes())
}

// Render writes the chart page to buf.
func (h HTML) Render(buf *bytes.Buffer, r *ingest.Report) error {
	subtitle := fmt.Sprintf("run=%s files=%d trips=%d success=%.1f%%",
		r.RunID, r.Summary.TotalFiles, r.Summary.TotalTrips, r.Summary.SuccessRate)

	page := components.NewPage()
	page.PageTitle = "Trip ingestion report"
	if h.AssetsHost != "" {
		page.SetAssetsHost(h.AssetsHost)
	}
	page.AddCharts(h.tripsPerFile(r, subtitle), h.outcomes(r), h.skipReasons(r))

	if err := page.Render(buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func (h HTML) initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  title,
		Width:      "100%",
		Height:     "480px",
		AssetsHost: h.AssetsHost,
	})
}

func (h HTML) tripsPerFile(r *ingest.Report, subtitle string) *charts.Bar {
	names := make([]string, len(r.Processed))
	data := make([]opts.BarData, len(r.Processed))
	for i, o := range r.Processed {
		names[i] = o.Name
		data[i] = opts.BarData{Value: o.Trips}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		h.initOpts("Trips per file"),
		charts.WithTitleOpts(opts.Title{Title: "Trips per file", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "file"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "trips"}),
	)
	bar.SetXAxis(names).
		AddSeries("trips", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (h HTML) outcomes(r *ingest.Report) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		h.initOpts("File outcomes"),
		charts.WithTitleOpts(opts.Title{Title: "File outcomes"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("files", []opts.PieData{
		{Name: "processed", Value: r.Summary.ProcessedFiles},
		{Name: "skipped", Value: r.Summary.SkippedFiles},
	}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	return pie
}

type reasonCount struct {
	reason string
	n      int
}

// topReasons counts file and segment skip reasons, most frequent first.
func topReasons(r *ingest.Report) []reasonCount {
	counts := make(map[string]int)
	for _, o := range r.Skipped {
		counts[truncate(o.Reason)]++
	}
	for _, se := range r.SegmentErrors {
		counts[truncate(se.Reason)]++
	}
	out := make([]reasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, reasonCount{reason, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].reason < out[j].reason
	})
	return out
}

func (h HTML) skipReasons(r *ingest.Report) *charts.Bar {
	reasons := topReasons(r)
	names := make([]string, len(reasons))
	data := make([]opts.BarData, len(reasons))
	for i, rc := range reasons {
		names[i] = rc.reason
		data[i] = opts.BarData{Value: rc.n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		h.initOpts("Skip reasons"),
		charts.WithTitleOpts(opts.Title{Title: "Skip reasons", Subtitle: "files and trip segments"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("skipped", data)
	bar.XYReversal()
	return bar
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxReasonLen {
		return s
	}
	return string(r[:maxReasonLen-3]) + "..."
}
