package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoFolders is returned when none of the configured folders can be read.
var ErrNoFolders = errors.New("no readable input folders")

type inputFile struct {
	name string
	path string
}

// discover lists the files to process, folder by folder in configured
// order and by name within a folder. Missing folders are logged and
// skipped; it fails only when no folder could be read.
func (p *Pipeline) discover() ([]inputFile, error) {
	var (
		files    []inputFile
		readable int
		seen     = make(map[string]bool)
	)
	for _, folder := range p.cfg.Folders {
		info, err := p.fs.Stat(folder)
		if err != nil || !info.IsDir() {
			p.log.Warn("folder not found", "folder", folder)
			continue
		}
		entries, err := p.fs.ReadDir(folder)
		if err != nil {
			p.log.Warn("folder not readable", "folder", folder, "err", err)
			continue
		}
		readable++

		found := 0
		for _, e := range entries {
			if e.IsDir() || !p.accepts(e.Name()) {
				continue
			}
			path := filepath.Join(folder, e.Name())
			if p.checkPath != nil {
				if err := p.checkPath(path, folder); err != nil {
					p.log.Warn("ignoring file outside its folder", "path", path, "err", err)
					continue
				}
			}
			key := filepath.Clean(path)
			if abs, err := filepath.Abs(key); err == nil {
				key = abs
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			files = append(files, inputFile{name: e.Name(), path: path})
			found++
		}
		if found == 0 {
			p.log.Info("no data files found", "folder", folder)
		} else {
			p.log.Info("found files", "folder", folder, "count", found)
		}
	}
	if readable == 0 {
		return nil, fmt.Errorf("%w: tried %s", ErrNoFolders, strings.Join(p.cfg.Folders, ", "))
	}
	return files, nil
}

func (p *Pipeline) accepts(name string) bool {
	return slices.Contains(p.cfg.Extensions, strings.ToLower(filepath.Ext(name)))
}
