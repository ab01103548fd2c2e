// Command tripingest converts folders of vehicle telemetry files into
// normalized trip records.
//
//	tripingest [flags] [folder ...]
//	tripingest migrate <up|down|status|version N|force N|help>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/trips.ingest/internal/config"
	"github.com/banshee-data/trips.ingest/internal/db"
	"github.com/banshee-data/trips.ingest/internal/export"
	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/identity"
	"github.com/banshee-data/trips.ingest/internal/ingest"
	"github.com/banshee-data/trips.ingest/internal/monitoring"
	"github.com/banshee-data/trips.ingest/internal/report"
	"github.com/banshee-data/trips.ingest/internal/security"
	"github.com/banshee-data/trips.ingest/internal/timeutil"
	"github.com/banshee-data/trips.ingest/internal/trips"
	"github.com/banshee-data/trips.ingest/internal/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitNoTrips = 1
	exitUsage   = 2
)

type options struct {
	configPath    string
	folders       string
	dbPath        string
	workers       int
	dryRun        bool
	standardize   bool
	logLevel      string
	logJSON       bool
	reportJSON    string
	reportHTML    string
	parquetPath   string
	metricsFile   string
	showVersion   bool
	positionalDir []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("tripingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON tuning file (default: "+config.DefaultConfigPath+" when present)")
	fs.StringVar(&o.folders, "folders", "", "Comma-separated input folders; overrides the config file")
	fs.StringVar(&o.dbPath, "db-path", db.DefaultPath, "Path to the SQLite trip database")
	fs.IntVar(&o.workers, "workers", 0, "Files processed in parallel (0: use the config file)")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Process files but log trips instead of storing them")
	fs.BoolVar(&o.standardize, "standardize-existing", false, "Normalize vehicle numbers already in the database before ingesting")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&o.logJSON, "log-json", false, "Emit logs as JSON")
	fs.StringVar(&o.reportJSON, "report-json", "", "Write the run report as JSON to this file, or into this directory when it ends in a separator")
	fs.StringVar(&o.reportHTML, "report-html", "", "Write the run report as an HTML chart page to this file, or into this directory when it ends in a separator")
	fs.StringVar(&o.parquetPath, "parquet", "", "Also export accepted trips to this Parquet file")
	fs.StringVar(&o.metricsFile, "metrics-textfile", "", "Write Prometheus metrics in textfile format to this path")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.positionalDir = fs.Args()
	return o, nil
}

// loadConfig reads the tuning file named by path, or the default file when
// path is empty and the default exists.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.Empty(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadConfig(path)
}

// pipelineConfig merges the tuning file with command line overrides.
func pipelineConfig(cfg *config.Config, o *options) ingest.Config {
	folders := cfg.GetInputFolders()
	switch {
	case len(o.positionalDir) > 0:
		folders = o.positionalDir
	case o.folders != "":
		folders = splitList(o.folders)
	}
	workers := cfg.GetWorkers()
	if o.workers > 0 {
		workers = o.workers
	}
	return ingest.Config{
		Folders:        folders,
		Extensions:     cfg.GetExtensions(),
		Encodings:      cfg.GetEncodings(),
		MinColumns:     cfg.GetMinColumns(),
		MinSegmentRows: cfg.GetMinSegmentRows(),
		Workers:        workers,
		FileTimeout:    cfg.GetFileTimeout(),
		DryRun:         o.dryRun,
		Segment:        cfg.SegmentConfig(),
		Features:       cfg.FeatureConfig(),
		Policy:         cfg.ValidationPolicy(),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout, stderr)
	}

	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	log := monitoring.NewLogger(stderr, level, o.logJSON)

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		return exitUsage
	}

	r, err := ingestRun(ctx, o, cfg, stdout, log)
	if err != nil {
		log.Error("ingestion failed", "err", err)
		return exitUsage
	}
	if !r.Succeeded() {
		return exitNoTrips
	}
	return exitOK
}

// ingestRun wires the stores and sinks, runs one batch and delivers its
// report.
func ingestRun(ctx context.Context, o *options, cfg *config.Config, stdout io.Writer, log *slog.Logger) (*ingest.Report, error) {
	pcfg := pipelineConfig(cfg, o)
	fsys := fsutil.OSFileSystem{}
	metrics := monitoring.NewMetrics()
	log.Info("starting trip ingestion", "version", version.Version, "git_sha", version.GitSHA)

	var (
		sinks      trips.Multi
		identities identity.Store
	)
	if o.dryRun {
		sinks = append(sinks, trips.DryRun{Log: log})
	} else {
		database, err := db.NewDB(o.dbPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if o.standardize {
			res, err := database.StandardizeVehicleNumbers(ctx)
			if err != nil {
				return nil, err
			}
			log.Info("standardized stored vehicle numbers", "identities", res.Identities, "trips", res.Trips)
		}
		sinks = append(sinks, database)
		identities = database
	}
	if o.parquetPath != "" {
		sinks = append(sinks, export.NewParquetSink(fsys, o.parquetPath))
	}

	p := ingest.New(pcfg, ingest.Deps{
		FS:         fsys,
		Identities: identities,
		Sink:       sinks,
		Metrics:    metrics,
		Clock:      timeutil.RealClock{},
		Log:        log,
	})
	r, err := p.Run(ctx)
	if cerr := sinks.Close(); cerr != nil {
		log.Error("failed to close trip sinks", "err", cerr)
	}
	if err != nil {
		return nil, err
	}

	out := report.Multi{report.Text{W: stdout}, report.Log{Log: log}}
	allowed := outputDirs(o.dbPath)
	if o.reportJSON != "" {
		if path, err := outputPath(o.reportJSON, r.RunID, ".json", allowed); err != nil {
			log.Error("refusing report path", "err", err)
		} else {
			out = append(out, report.JSON{FS: fsys, Path: path})
		}
	}
	if o.reportHTML != "" {
		if path, err := outputPath(o.reportHTML, r.RunID, ".html", allowed); err != nil {
			log.Error("refusing report path", "err", err)
		} else {
			out = append(out, report.HTML{FS: fsys, Path: path})
		}
	}
	if err := out.WriteReport(ctx, r); err != nil {
		log.Error("failed to write report", "err", err)
	}
	if o.metricsFile != "" {
		if err := metrics.WriteTextfile(o.metricsFile, r.FinishedAt); err != nil {
			log.Error("failed to write metrics", "err", err)
		}
	}
	return r, nil
}

// outputDirs are where reports may be written: the working directory, the
// temp directory and the database's directory.
func outputDirs(dbPath string) []string {
	dirs := []string{os.TempDir(), filepath.Dir(dbPath)}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	return dirs
}

// outputPath resolves a report flag value. A value ending in a path
// separator names a directory, and the file is named after the run.
func outputPath(value, runID, ext string, allowed []string) (string, error) {
	path := value
	if strings.HasSuffix(value, string(filepath.Separator)) || strings.HasSuffix(value, "/") {
		path = filepath.Join(value, "tripingest_"+security.SanitizeFilename(runID)+ext)
	}
	if err := security.ValidatePathWithinAllowedDirs(path, allowed); err != nil {
		return "", err
	}
	return path, nil
}

func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tripingest migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db-path", db.DefaultPath, "Path to the SQLite trip database")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	log := monitoring.NewLogger(stderr, slog.LevelInfo, false)
	if err := db.RunMigrateCommand(fs.Args(), *dbPath, stdout, log); err != nil {
		log.Error("migrate failed", "err", err)
		return exitNoTrips
	}
	return exitOK
}
