package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/ingest"
)

// JSON writes the report as indented JSON to Path.
type JSON struct {
	FS   fsutil.FileSystem
	Path string
}

func (j JSON) WriteReport(_ context.Context, r *ingest.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeFile(j.FS, j.Path, append(data, '\n'))
}

func writeFile(fsys fsutil.FileSystem, path string, data []byte) error {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Close()
}
