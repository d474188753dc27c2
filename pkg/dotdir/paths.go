package dotdir

import (
	"path/filepath"
)

const (
	// ArchiveFile is the default sqlite frame archive.
	ArchiveFile = "archive.sqlite"

	// ManifestFile is the default dashboard manifest.
	ManifestFile = "dashboard.manifest.json"
)

// ArchivePath returns the sqlite archive path inside the resolved directory.
func (m *Manager) ArchivePath(overrideDir string) (string, error) {
	return m.file(overrideDir, ArchiveFile)
}

// ManifestPath returns the dashboard manifest path inside the resolved
// directory. The file itself may not exist.
func (m *Manager) ManifestPath(overrideDir string) (string, error) {
	return m.file(overrideDir, ManifestFile)
}

func (m *Manager) file(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
