package repo

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/dsv"
	"github.com/OrthogonalScribe/baktu/internal/nsv"
)

const (
	// IncludesName is the NSV file listing a site's include roots.
	IncludesName = "include-paths.nsv"
	// ExcludesName is the NSV file listing a site's explicit excludes.
	ExcludesName = "exclude-paths.nsv"
	// ConfigName is the site's TOML configuration file.
	ConfigName = "config.toml"

	snapshotsDirName = "snaps"
)

//go:embed templates/site_config.toml
var siteConfigTemplate []byte

// ExcludeCfg mirrors the [exclude] table of a site's config.toml.
type ExcludeCfg struct {
	CachedirTag bool `toml:"cachedir_tag"`
	Nodump      bool `toml:"nodump"`
	AllEacces   bool `toml:"all_eacces"`
}

// Config is a site's decoded configuration.
type Config struct {
	Exclude ExcludeCfg `toml:"exclude"`
}

// Site is a baktu repository site: a named collection of include/exclude
// path lists, a configuration, and a sequence of snapshots.
type Site struct {
	Path string
}

// CreateSite initializes a new, empty site at sitePath: the include/exclude
// NSV files, the config file, and the snapshots directory.
func CreateSite(sitePath string) (Site, error) {
	logrus.WithField("path", sitePath).Debug("creating site dir")
	if err := os.Mkdir(sitePath, 0755); err != nil {
		return Site{}, fmt.Errorf("repo: creating site directory: %w", err)
	}

	logrus.Debug("creating include/exclude config files")
	for _, name := range []string{IncludesName, ExcludesName} {
		f, err := os.Create(filepath.Join(sitePath, name))
		if err != nil {
			return Site{}, fmt.Errorf("repo: creating %s: %w", name, err)
		}
		f.Close()
	}

	logrus.Debug("creating site config file")
	if err := os.WriteFile(filepath.Join(sitePath, ConfigName), siteConfigTemplate, 0644); err != nil {
		return Site{}, fmt.Errorf("repo: writing site config: %w", err)
	}

	logrus.Debug("creating snapshots dir")
	if err := os.Mkdir(filepath.Join(sitePath, snapshotsDirName), 0755); err != nil {
		return Site{}, fmt.Errorf("repo: creating snapshots directory: %w", err)
	}

	return Site{Path: sitePath}, nil
}

// IsValidSite reports whether dir is a site directory: it must be a
// directory, its parent must be named "sites", and that "sites"
// directory's parent must be a valid repository root.
func IsValidSite(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	sitesDir := filepath.Dir(dir)
	if filepath.Base(sitesDir) != sitesDirName {
		return false
	}
	return IsValidRepoRoot(filepath.Dir(sitesDir))
}

// SiteOrEmpty walks dir and its ancestors looking for a valid site
// directory, mirroring repo_site_or_die's ancestor search. Returns "" if
// none is found.
func SiteOrEmpty(dir string) string {
	for {
		if IsValidSite(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Repo returns the repository this site belongs to.
func (s Site) Repo() Repo {
	return Repo{Path: filepath.Dir(filepath.Dir(s.Path))}
}

// SnapsPath returns the path of this site's snapshots directory.
func (s Site) SnapsPath() string {
	return filepath.Join(s.Path, snapshotsDirName)
}

// GetConfig decodes this site's config.toml.
func (s Site) GetConfig() (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join(s.Path, ConfigName), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("repo: decoding %s: %w", ConfigName, err)
	}
	return cfg, nil
}

func pathsFromFile(path string) ([]string, error) {
	entries, err := dsv.VecFromFile(path, nsv.Sep)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = nsv.TildeExpand(string(e))
	}
	return paths, nil
}

// GetIncluded returns the tilde-expanded include roots of this site.
func (s Site) GetIncluded() ([]string, error) {
	return pathsFromFile(filepath.Join(s.Path, IncludesName))
}

// GetExcluded returns the tilde-expanded explicit excludes of this site.
func (s Site) GetExcluded() ([]string, error) {
	return pathsFromFile(filepath.Join(s.Path, ExcludesName))
}

// Snapshots lists every snapshot directory under this site, in sorted order.
func (s Site) Snapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.SnapsPath())
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snaps = append(snaps, Snapshot{Path: filepath.Join(s.SnapsPath(), e.Name())})
	}
	return snaps, nil
}
