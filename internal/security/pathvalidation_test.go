package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmp := t.TempDir()
	inbox := filepath.Join(tmp, "inbox")
	private := filepath.Join(tmp, "private")
	require.NoError(t, os.MkdirAll(filepath.Join(inbox, "fleet"), 0755))
	require.NoError(t, os.MkdirAll(private, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(private, "keys.csv"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(private, filepath.Join(inbox, "shortcut")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in folder", filepath.Join(inbox, "trip.csv"), false},
		{"nested file", filepath.Join(inbox, "fleet", "trip.csv"), false},
		{"folder itself", inbox, false},
		{"parent traversal", filepath.Join(inbox, "..", "private", "keys.csv"), true},
		{"symlinked file", filepath.Join(inbox, "shortcut", "keys.csv"), true},
		{"new file under symlink", filepath.Join(inbox, "shortcut", "new.csv"), true},
		{"sibling prefix", inbox + "2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, inbox)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "x.csv"), []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "x.csv"), []string{a}))
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "x.csv"), nil))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "unknown"},
		{"driver_12.csv", "driver_12.csv"},
		{"fleet data/trip 7.csv", "fleet_data_trip_7.csv"},
		{"../../etc/passwd", "etc_passwd"},
		{"  ***  ", "unknown"},
		{"a__b", "a__b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}
