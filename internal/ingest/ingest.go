// Package ingest runs the batch: it discovers telemetry files, turns each
// into trip records and collects a report of what succeeded and why
// anything was skipped.
//
// Failures are isolated. A bad file is skipped with a reason, a bad trip
// segment is skipped while its siblings carry on, and nothing but an
// unusable configuration stops the batch.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/trips.ingest/internal/features"
	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/identity"
	"github.com/banshee-data/trips.ingest/internal/monitoring"
	"github.com/banshee-data/trips.ingest/internal/security"
	"github.com/banshee-data/trips.ingest/internal/segment"
	"github.com/banshee-data/trips.ingest/internal/tabular"
	"github.com/banshee-data/trips.ingest/internal/telemetry"
	"github.com/banshee-data/trips.ingest/internal/timeutil"
	"github.com/banshee-data/trips.ingest/internal/trips"
	"github.com/banshee-data/trips.ingest/internal/validate"
)

// Config controls discovery and execution.
type Config struct {
	Folders        []string
	Extensions     []string
	Encodings      []string
	MinColumns     int
	MinSegmentRows int
	Workers        int
	FileTimeout    time.Duration
	DryRun         bool

	Segment  segment.Config
	Features features.Config
	Policy   validate.Policy
}

// DefaultConfig returns the stock settings for folders.
func DefaultConfig(folders ...string) Config {
	return Config{
		Folders:        folders,
		Extensions:     []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".xls", ".fit"},
		Encodings:      []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"},
		MinColumns:     3,
		MinSegmentRows: 5,
		Workers:        1,
		FileTimeout:    2 * time.Minute,
		Segment:        segment.DefaultConfig(),
		Features:       features.DefaultConfig(),
		Policy:         validate.DefaultPolicy(),
	}
}

// Deps are the collaborators of a Pipeline. Nil fields get defaults: the OS
// filesystem, no identity store, an in-memory sink, the wall clock and a
// discarding logger.
type Deps struct {
	FS         fsutil.FileSystem
	Identities identity.Store
	Sink       trips.Sink
	Metrics    *monitoring.Metrics
	Clock      timeutil.Clock
	Log        *slog.Logger
	NewRunID   func() string
}

// Pipeline processes batches. It is safe to call Run more than once.
type Pipeline struct {
	cfg        Config
	fs         fsutil.FileSystem
	reader     *tabular.Reader
	resolver   *telemetry.Resolver
	detector   *segment.Detector
	extractor  *features.Extractor
	identities identity.Store
	sink       trips.Sink
	metrics    *monitoring.Metrics
	clock      timeutil.Clock
	log        *slog.Logger
	newRunID   func() string
	checkPath  func(path, dir string) error
}

// New builds a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	log := monitoring.Discard(deps.Log)
	if deps.FS == nil {
		deps.FS = fsutil.OSFileSystem{}
	}
	if deps.Sink == nil {
		deps.Sink = &trips.Memory{}
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if deps.NewRunID == nil {
		deps.NewRunID = func() string { return uuid.NewString() }
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Segment == (segment.Config{}) {
		cfg.Segment = segment.DefaultConfig()
	}
	if cfg.Features == (features.Config{}) {
		cfg.Features = features.DefaultConfig()
	}
	if cfg.Policy == (validate.Policy{}) {
		cfg.Policy = validate.DefaultPolicy()
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 2 * time.Minute
	}
	exts := make([]string, len(cfg.Extensions))
	for i, ext := range cfg.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = ext
	}
	cfg.Extensions = exts

	p := &Pipeline{
		cfg:        cfg,
		fs:         deps.FS,
		reader:     tabular.NewReader(deps.FS, cfg.Encodings, log),
		resolver:   telemetry.NewResolver(nil, log),
		detector:   segment.NewDetector(log, segment.DefaultStrategies(cfg.Segment)...),
		extractor:  features.NewExtractor(cfg.Features, deps.Clock),
		identities: deps.Identities,
		sink:       deps.Sink,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		log:        log,
		newRunID:   deps.NewRunID,
	}
	// Symlink checks need real paths.
	if _, ok := deps.FS.(fsutil.OSFileSystem); ok {
		p.checkPath = security.ValidatePathWithinDirectory
	}
	return p
}

// Run processes every discovered file and returns the aggregate report.
// The error is non-nil only when no input folder could be read; per-file
// and per-trip failures are reported, not returned.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     p.newRunID(),
		StartedAt: p.clock.Now(),
		DryRun:    p.cfg.DryRun,
	}
	log := p.log.With("run_id", report.RunID)
	log.Info("starting dataset processing", "folders", len(p.cfg.Folders), "workers", p.cfg.Workers, "dry_run", p.cfg.DryRun)

	files, err := p.discover()
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			log.Info("processing file", "file", f.name, "index", i+1, "of", len(files))
			start := p.clock.Now()
			results[i] = p.processFile(gctx, report.RunID, f)
			outcome := monitoring.OutcomeSkipped
			if results[i].outcome.Trips > 0 {
				outcome = monitoring.OutcomeProcessed
			}
			p.metrics.ObserveFile(outcome, p.clock.Since(start))
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for _, r := range results {
		report.add(r.outcome, r.segmentErrors)
		if r.outcome.Trips > 0 {
			log.Info("processed file", "file", r.outcome.Name, "trips", r.outcome.Trips)
		} else {
			log.Warn("skipped file", "file", r.outcome.Name, "reason", r.outcome.Reason)
		}
		for _, se := range r.segmentErrors {
			log.Warn("trip error", "trip", se.Name, "reason", se.Reason)
		}
	}
	report.FinishedAt = p.clock.Now()
	return report, nil
}
