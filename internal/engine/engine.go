// Package engine implements baktu's snapshot orchestration: resolving a
// site's include/exclude lists, scanning prior snapshots to seed the dedup
// index, walking each include root in deterministic order, and
// materializing every entry plus its metadata record into a new snapshot.
// It is the Go counterpart of cli::Baktu::snapshot() in the original.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/dedup"
	"github.com/OrthogonalScribe/baktu/internal/filekey"
	"github.com/OrthogonalScribe/baktu/internal/historyscan"
	"github.com/OrthogonalScribe/baktu/internal/repo"
	"github.com/OrthogonalScribe/baktu/internal/xattrdump"
)

// ZerothSnapName is the hard-coded name baktu currently gives the only
// snapshot it knows how to create. Incremental snapshotting (distinct,
// ordered snapshot names) is future work, carried over unfixed from the
// original.
const ZerothSnapName = "0"

// metaStreamName is the per-snapshot metadata-stream file name. Hard-coded
// for the same reason as the original: a future incremental mode will need
// to pick a name guaranteed not to collide with the source tree instead.
const metaStreamName = ".baktu.meta.brj"

var (
	// ErrNoIncludes is returned when a site has an empty include list.
	ErrNoIncludes = errors.New("engine: no paths have been included")
	// ErrNonexistentPath is returned when an include or exclude entry does
	// not exist on disk.
	ErrNonexistentPath = errors.New("engine: found nonexistent path in include or exclude list")
	// ErrPermissionEscalation is returned when an entry is denied by the
	// kernel and the site is not configured (or the run not confirmed) to
	// silently exclude such entries.
	ErrPermissionEscalation = errors.New("engine: permission denied, and exclude.all_eacces escalation is unavailable")
	// ErrSourceNameCollision is returned when a source directory already
	// contains an entry literally named like the metadata-stream file.
	ErrSourceNameCollision = errors.New("engine: source tree contains an entry shadowing the metadata file name")
	// ErrUnknownFileType is returned for a directory entry statx reports a
	// type this engine has no materialization strategy for.
	ErrUnknownFileType = errors.New("engine: unknown file type")
)

// Options mirrors SnapArgs: the flags that shape one snapshot run.
type Options struct {
	AllowNonexistentExcludePaths bool
	NoReportCachedirTag          bool
	NoReportNodump               bool
	ConfirmExcludeAllEacces      bool
	DryRun                       bool
}

// Stats summarizes one completed run.
type Stats struct {
	ExcludedCount  uint64
	ProcessedCount uint64
}

// Snapshot captures site's include roots into a new, single snapshot named
// ZerothSnapName.
func Snapshot(site repo.Site, opts Options) (Stats, error) {
	includes, err := resolveIncludes(site, opts)
	if err != nil {
		return Stats{}, err
	}

	excludes, err := resolveExcludes(site, opts)
	if err != nil {
		return Stats{}, err
	}

	cfg, err := site.GetConfig()
	if err != nil {
		return Stats{}, fmt.Errorf("engine: reading site config: %w", err)
	}

	snapPath := filepath.Join(site.SnapsPath(), ZerothSnapName)
	if opts.DryRun {
		logrus.WithField("path", snapPath).Info("(dry run) would create snapshot directory")
	} else {
		logrus.WithField("path", snapPath).Info("creating snapshot directory")
		if err := os.Mkdir(snapPath, 0755); err != nil {
			return Stats{}, fmt.Errorf("engine: creating snapshot directory: %w", err)
		}
	}

	snapDataPath := filepath.Join(snapPath, "data")
	if opts.DryRun {
		logrus.WithField("path", snapDataPath).Info("(dry run) would create snapshot data directory")
	} else {
		logrus.WithField("path", snapDataPath).Info("creating snapshot data directory")
		if err := os.Mkdir(snapDataPath, 0755); err != nil {
			return Stats{}, fmt.Errorf("engine: creating snapshot data directory: %w", err)
		}
	}

	metaNameFPath := filepath.Join(snapPath, repo.MetaNameFileName)
	if opts.DryRun {
		logrus.WithField("path", metaNameFPath).Info("(dry run) would write metadata file name")
	} else {
		logrus.WithField("path", metaNameFPath).Info("writing metadata file name")
		if err := os.WriteFile(metaNameFPath, []byte(metaStreamName), 0644); err != nil {
			return Stats{}, fmt.Errorf("engine: writing %s: %w", repo.MetaNameFileName, err)
		}
	}

	idx := dedup.New()
	if err := historyscan.Populate(idx, site.Repo()); err != nil {
		return Stats{}, fmt.Errorf("engine: scanning snapshot history: %w", err)
	}

	xattrDumper, err := newXattrDumper()
	if err != nil {
		return Stats{}, fmt.Errorf("engine: initializing xattr reader: %w", err)
	}
	defer xattrDumper.Close()

	w := &walker{
		site:           site,
		opts:           opts,
		excludes:       excludes,
		cfg:            cfg,
		idx:            idx,
		xattrDumper:    xattrDumper,
		snapDataPath:   snapDataPath,
		metaStreamName: metaStreamName,
	}

	for _, includeRoot := range includes {
		if err := w.processIncludeRoot(includeRoot); err != nil {
			return w.stats, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"excluded":  w.stats.ExcludedCount,
		"processed": w.stats.ProcessedCount,
	}).Info("snapshot run complete")

	return w.stats, nil
}

func resolveIncludes(site repo.Site, opts Options) ([]string, error) {
	includes, err := site.GetIncluded()
	if err != nil {
		return nil, fmt.Errorf("engine: reading include list: %w", err)
	}
	if len(includes) == 0 {
		return nil, fmt.Errorf("%w: run `baktu nsv-add-to %s <PATH>` first", ErrNoIncludes, repo.IncludesName)
	}

	for _, p := range includes {
		if _, err := os.Lstat(p); err != nil {
			logrus.WithField("path", p).Error("included path doesn't exist")
			return nil, fmt.Errorf("%w: %s", ErrNonexistentPath, p)
		}
	}
	return includes, nil
}

func resolveExcludes(site repo.Site, opts Options) (map[filekey.FileKey]bool, error) {
	seq, err := site.GetExcluded()
	if err != nil {
		return nil, fmt.Errorf("engine: reading exclude list: %w", err)
	}

	excludes := make(map[filekey.FileKey]bool, len(seq))
	for _, p := range seq {
		if _, err := os.Lstat(p); err != nil {
			if opts.AllowNonexistentExcludePaths {
				continue
			}
			logrus.WithField("path", p).Error("excluded path doesn't exist")
			return nil, fmt.Errorf("%w: %s", ErrNonexistentPath, p)
		}
		fk, err := filekey.FromPath(p)
		if err != nil {
			return nil, fmt.Errorf("engine: computing file key for exclude %q: %w", p, err)
		}
		excludes[fk] = true
	}
	return excludes, nil
}

// helperPath is the name the xattr-reading helper is expected to be
// installed under on PATH, mirroring the original's bare
// Command::new("get-all-xattrs").
const helperPath = "get-all-xattrs"

func newXattrDumper() (xattrdump.Dumper, error) {
	return xattrdump.NewDumper(helperPath)
}
