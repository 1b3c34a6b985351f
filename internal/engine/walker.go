package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/OrthogonalScribe/baktu/internal/dedup"
	"github.com/OrthogonalScribe/baktu/internal/filekey"
	"github.com/OrthogonalScribe/baktu/internal/repo"
	"github.com/OrthogonalScribe/baktu/internal/statx"
	"github.com/OrthogonalScribe/baktu/internal/xattrdump"
)

type walker struct {
	site           repo.Site
	opts           Options
	excludes       map[filekey.FileKey]bool
	cfg            repo.Config
	idx            *dedup.Index
	xattrDumper    xattrdump.Dumper
	snapDataPath   string
	metaStreamName string

	stats Stats
}

// processIncludeRoot resolves includeRoot to its canonical form and walks
// it in sorted, deterministic order, materializing every entry it accepts
// under this snapshot's data directory.
func (w *walker) processIncludeRoot(includeRoot string) error {
	logrus.WithField("path", includeRoot).Info("processing include root")

	resolved, err := filepath.EvalSymlinks(includeRoot)
	if err != nil {
		return fmt.Errorf("engine: resolving include root %q: %w", includeRoot, err)
	}
	if resolved != includeRoot {
		logrus.WithField("resolved", resolved).Info("include root resolves to")
	}

	dstIncRootPath := filepath.Join(w.snapDataPath, filepath.Base(resolved))

	return w.walk(resolved, dstIncRootPath)
}

// walk recursively visits src in lexically sorted order (matching
// WalkDir::sort_by_file_name in the original), materializing each accepted
// entry at the path dst corresponding to it, and skipping the subtrees of
// any directory this run excludes.
func (w *walker) walk(src, dst string) error {
	stx, err := statx.Get(src)
	if err != nil {
		if statx.IsPermissionDenied(err) {
			excluded, escalationErr := w.excludeOrDie("statx", src)
			if escalationErr != nil {
				return escalationErr
			}
			if excluded {
				w.stats.ExcludedCount++
				return nil
			}
		}
		return fmt.Errorf("engine: statx(%q): %w", src, err)
	}

	included, err := w.isIncluded(src, stx)
	if err != nil {
		return err
	}
	if !included {
		w.stats.ExcludedCount++
		return nil
	}

	if err := w.visit(src, dst, stx); err != nil {
		return err
	}

	if statx.Type(stx) != statx.TypeDir {
		return nil
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("engine: reading directory %q: %w", src, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if err := w.walk(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// isIncluded applies the exclusion policy: explicit FileKey excludes, the
// CACHEDIR.TAG convention, the NODUMP attribute, and finally a read
// permission check, the last of which triggers the exclude.all_eacces
// escalation path when it fails.
func (w *walker) isIncluded(path string, stx unix.Statx_t) (bool, error) {
	fk := filekey.FromStatx(&stx)

	if w.excludes[fk] {
		logrus.WithField("path", path).Info("excluding due to exclude-paths.nsv")
		return false, nil
	}

	if w.cfg.Exclude.CachedirTag && statx.Type(stx) == statx.TypeDir && isValidCachedirTag(filepath.Join(path, "CACHEDIR.TAG")) {
		logrus.WithField("path", path).Info("excluding due to config.toml exclude.cachedir_tag")
		return false, nil
	}

	if w.cfg.Exclude.Nodump && statx.HasNodump(stx) {
		logrus.WithField("path", path).Info("excluding due to config.toml exclude.nodump")
		return false, nil
	}

	if !readable(path) {
		excluded, err := w.excludeOrDie("faccessat(READ)", path)
		if err != nil {
			return false, err
		}
		return !excluded, nil
	}

	return true, nil
}

// excludeOrDie implements die_or_log_exclude_all_eacces: if the site is
// configured for all_eacces exclusion and the run was invoked with
// --confirm-exclude-all-eacces, the entry is silently excluded; otherwise
// the run fails with ErrPermissionEscalation.
func (w *walker) excludeOrDie(deniedAction, path string) (excluded bool, err error) {
	if w.cfg.Exclude.AllEacces && w.opts.ConfirmExcludeAllEacces {
		logrus.WithFields(logrus.Fields{"path": path, "action": deniedAction}).Info("excluding due to config.toml exclude.all_eacces")
		return true, nil
	}
	return false, fmt.Errorf("%w: denied during %s for %q (exclude explicitly, re-run with elevated privileges, or set exclude.all_eacces and --confirm-exclude-all-eacces)",
		ErrPermissionEscalation, deniedAction, path)
}

// readable reports whether path is readable by the effective uid/gid, without
// following a trailing symlink — the Go equivalent of the original's
// faccessat(AT_FDCWD, path, R_OK, AT_EACCESS|AT_SYMLINK_NOFOLLOW).
func readable(path string) bool {
	return unix.Faccessat(unix.AT_FDCWD, path, unix.R_OK, unix.AT_EACCESS|unix.AT_SYMLINK_NOFOLLOW) == nil
}

func isValidCachedirTag(path string) bool {
	const signature = "Signature: 8a477f597d28d172789f06886806bc55"
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, len(signature))
	n, err := f.Read(buf)
	return err == nil && n == len(buf) && string(buf) == signature
}
