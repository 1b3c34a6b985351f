// Package repo implements baktu's on-disk repository layout: the repo root
// tag file, sites, snapshots and their metadata-stream files, mirroring
// repo/mod.rs, repo/site.rs, repo/snapshot.rs and repo/tag_file.rs.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

const sitesDirName = "sites"

// Repo is a baktu repository root directory.
type Repo struct {
	Path string
}

// Create initializes a new, empty repository at dir: writes the tag file
// and creates the sites subdirectory.
func Create(dir string) (Repo, error) {
	if err := createTagFile(dir); err != nil {
		return Repo{}, fmt.Errorf("repo: writing tag file: %w", err)
	}

	logrus.Debug("creating sites subdirectory")
	if err := os.Mkdir(filepath.Join(dir, sitesDirName), 0755); err != nil {
		return Repo{}, fmt.Errorf("repo: creating sites directory: %w", err)
	}

	return Repo{Path: dir}, nil
}

// Open wraps an existing, assumed-valid repository root.
func Open(dir string) Repo {
	return Repo{Path: dir}
}

// RootOrEmpty walks dir and its ancestors looking for a valid repository
// root, mirroring repo_root_or_die's ancestor search. Returns "" if none is
// found.
func RootOrEmpty(dir string) string {
	for {
		if IsValidRepoRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Sites lists every site subdirectory, in sorted order.
func (r Repo) Sites() ([]Site, error) {
	entries, err := os.ReadDir(filepath.Join(r.Path, sitesDirName))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sites []Site
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sites = append(sites, Site{Path: filepath.Join(r.Path, sitesDirName, e.Name())})
	}
	return sites, nil
}
