package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MetaNameFileName holds the per-snapshot file recording the name every
// metadata-stream file in this snapshot's data tree uses, so a history scan
// can find them without distinguishing them from regular captured files by
// any other means.
const MetaNameFileName = "meta_name.cfg.bin"

const dataDirName = "data"

// Snapshot is one completed (or in-progress, for the snapshot currently
// being written) capture within a site.
type Snapshot struct {
	Path string
}

// DataDir returns the root of this snapshot's captured file tree.
func (s Snapshot) DataDir() string {
	return filepath.Join(s.Path, dataDirName)
}

// MetaName reads the metadata-stream file name recorded for this snapshot.
func (s Snapshot) MetaName() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Path, MetaNameFileName))
	if err != nil {
		return "", fmt.Errorf("repo: reading %s: %w", MetaNameFileName, err)
	}
	return string(data), nil
}

// MetaFiles walks this snapshot's data tree in sorted order and returns the
// path of every file matching the recorded metadata-stream file name.
func (s Snapshot) MetaFiles() ([]string, error) {
	name, err := s.MetaName()
	if err != nil {
		return nil, err
	}

	var found []string
	err = filepath.WalkDir(s.DataDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo: walking snapshot data tree: %w", err)
	}

	sort.Strings(found)
	return found, nil
}
