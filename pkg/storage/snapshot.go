package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var ErrInvalidSnapshotName = errors.New("invalid snapshot name")

var snapshotSources = []string{
	"config_files/overall_config_settings",
	"config_files/prompt_settings",
	"config_files/trial_files",
	"config_files/pipeline_json_files",
}

// Snapshot copies every JSON file of the config directories into
// snapshots/<name>, keeping their relative layout. An empty name is replaced
// with snapshot_<timestamp>. Names must be a single path segment.
func (s *FileStore) Snapshot(name string, now time.Time) (string, []string, error) {
	if name == "" {
		name = "snapshot_" + now.Format("20060102_150405")
	}
	if name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\\x00") {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidSnapshotName, name)
	}
	dir := path.Join("snapshots", name)
	if _, err := s.Abs(dir); err != nil {
		return "", nil, err
	}
	if err := s.EnsureDirectories(dir); err != nil {
		return "", nil, err
	}

	saved := []string{}
	for _, source := range snapshotSources {
		files, err := s.ListFiles(source, ".json")
		if err != nil {
			return "", nil, err
		}
		for _, file := range files {
			rel := path.Join(source, file)
			if err := s.Copy(rel, path.Join(dir, rel)); err != nil {
				return "", nil, fmt.Errorf("snapshot %s: %w", name, err)
			}
			saved = append(saved, rel)
		}
	}
	return dir, saved, nil
}
