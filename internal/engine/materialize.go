package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/OrthogonalScribe/baktu/internal/hasher"
	"github.com/OrthogonalScribe/baktu/internal/ioctlflags"
	"github.com/OrthogonalScribe/baktu/internal/metafile"
	"github.com/OrthogonalScribe/baktu/internal/statx"
)

// dedupMinSize is the smallest regular file size this engine will
// deduplicate via a symlink rather than copy outright — a symlink needs at
// least as many bytes of target path as this, so deduplicating anything
// tinier would waste more space than it saves.
const dedupMinSize = 2

// visit materializes one directory entry at dst, recording its metadata in
// the destination directory's metadata-stream sink.
func (w *walker) visit(src, dst string, stx unix.Statx_t) error {
	logrus.WithField("path", dst).Debug("creating at destination")

	if statx.Type(stx) == statx.TypeDir {
		if _, err := os.Lstat(filepath.Join(src, w.metaStreamName)); err == nil {
			return fmt.Errorf("%w: %q already contains an entry named %q", ErrSourceNameCollision, src, w.metaStreamName)
		}
	}

	if !w.opts.NoReportCachedirTag && statx.Type(stx) == statx.TypeReg && filepath.Base(src) == "CACHEDIR.TAG" {
		if isValidCachedirTag(src) {
			logrus.WithField("path", src).Warn("found valid and unexcluded CACHEDIR.TAG; " +
				"rerun with --no-report-cachedir-tag or enable exclude.cachedir_tag to hide this warning")
		} else {
			logrus.WithField("path", src).Warn("found invalid CACHEDIR.TAG; rerun with --no-report-cachedir-tag to hide this warning")
		}
	}

	if !w.opts.NoReportNodump && statx.HasNodump(stx) {
		logrus.WithField("path", src).Warn("marked nodump but not excluded; " +
			"rerun with --no-report-nodump or enable exclude.nodump to hide this warning")
	}

	var hash *[32]byte
	isDeduplicated := false

	switch statx.Type(stx) {
	case statx.TypeDir:
		if w.opts.DryRun {
			logrus.WithField("path", dst).Info("(dry run) would mkdir")
		} else if err := os.Mkdir(dst, 0755); err != nil {
			return fmt.Errorf("engine: mkdir %q: %w", dst, err)
		}

	case statx.TypeReg:
		h, dedup, err := w.materializeRegular(src, dst, stx)
		if err != nil {
			return err
		}
		hash = h
		isDeduplicated = dedup

	case statx.TypeLnk:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("engine: reading symlink %q: %w", src, err)
		}
		if w.opts.DryRun {
			logrus.WithField("path", dst).Info("(dry run) would symlink")
		} else if err := os.Symlink(target, dst); err != nil {
			return fmt.Errorf("engine: symlinking %q: %w", dst, err)
		}

	case statx.TypeBlk, statx.TypeChr, statx.TypeFIFO, statx.TypeSock:
		if err := w.mknodOrExclude(src, dst, stx); err != nil {
			if errors.Is(err, errSkipped) {
				w.stats.ExcludedCount++
				return nil
			}
			return err
		}

	default:
		return fmt.Errorf("%w: %v", ErrUnknownFileType, statx.Type(stx))
	}

	if err := w.dumpMeta(src, dst, stx, hash, isDeduplicated); err != nil {
		return err
	}
	w.stats.ProcessedCount++
	return nil
}

// materializeRegular copies or, if a byte-identical backing file already
// exists in the dedup index, symlinks to that backing file. Returns the
// entry's content hash (nil if below dedupMinSize) and whether it was
// deduplicated.
func (w *walker) materializeRegular(src, dst string, stx unix.Statx_t) (hash *[32]byte, deduplicated bool, err error) {
	if stx.Size < dedupMinSize {
		logrus.Debug("skipping deduplication of file smaller than dedup threshold")
		if w.opts.DryRun {
			logrus.WithField("path", dst).Info("(dry run) would copy")
		} else if err := copyFile(src, dst); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	sum, err := hasher.Sum(src)
	if err != nil {
		return nil, false, fmt.Errorf("engine: hashing %q: %w", src, err)
	}

	if backing, ok, err := w.idx.Find(sum, src); err != nil {
		return nil, false, fmt.Errorf("engine: comparing against dedup candidates for %q: %w", src, err)
	} else if ok {
		if w.opts.DryRun {
			logrus.WithFields(logrus.Fields{"src": src, "dst": dst, "backing": backing}).Info("(dry run) would deduplicate")
		} else {
			rel, err := filepath.Rel(filepath.Dir(dst), backing)
			if err != nil {
				return nil, false, fmt.Errorf("engine: computing relative dedup target for %q: %w", dst, err)
			}
			if err := os.Symlink(rel, dst); err != nil {
				return nil, false, fmt.Errorf("engine: creating dedup symlink %q: %w", dst, err)
			}
		}
		return &sum, true, nil
	}

	if w.opts.DryRun {
		logrus.WithField("path", dst).Info("(dry run) would copy")
	} else if err := copyFile(src, dst); err != nil {
		return nil, false, err
	}

	// The dry-run variant indexes the source path as the backing file,
	// since no destination copy exists to compare future candidates
	// against — a known impurity of dry-run mode carried over unfixed.
	backingPath := dst
	if w.opts.DryRun {
		backingPath = src
	}
	w.idx.Add(sum, backingPath)

	return &sum, false, nil
}

var errSkipped = errors.New("engine: entry skipped")

// mknodOrExclude creates a device/FIFO/socket node at dst, applying the
// exclude.all_eacces escalation on EPERM.
func (w *walker) mknodOrExclude(src, dst string, stx unix.Statx_t) error {
	if w.opts.DryRun {
		logrus.WithField("path", dst).Info("(dry run) would mknod")
		return nil
	}

	mode := uint32(stx.Mode)
	dev := unix.Mkdev(stx.Rdev_major, stx.Rdev_minor)
	err := unix.Mknod(dst, mode, int(dev))
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EPERM) {
		excluded, escalationErr := w.excludeOrDie("mknod", src)
		if escalationErr != nil {
			return escalationErr
		}
		if excluded {
			return errSkipped
		}
	}
	return fmt.Errorf("engine: mknod %q: %w", dst, err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("engine: opening %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("engine: creating %q: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("engine: copying %q to %q: %w", src, dst, err)
	}
	return out.Close()
}

// dumpMeta writes one metadata record for src's materialization, following
// the fixed field order dump_meta uses: dedup flag, name, hash, statx
// fields, lsattr (where supported), xattrs.
func (w *walker) dumpMeta(src, dst string, stx unix.Statx_t, hash *[32]byte, isDeduplicated bool) error {
	var lsattr *string
	switch statx.Type(stx) {
	case statx.TypeReg, statx.TypeDir:
		flags, err := ioctlflags.Get(src)
		if err != nil {
			return fmt.Errorf("engine: reading inode flags for %q: %w", src, err)
		}
		lsattr = &flags
	}

	kvs, err := w.xattrDumper.Dump(src)
	if err != nil {
		return fmt.Errorf("engine: reading extended attributes for %q: %w", src, err)
	}
	xattrs := make([]metafile.Xattr, len(kvs))
	for i, kv := range kvs {
		xattrs[i] = metafile.Xattr{Key: kv.Key, Value: kv.Value}
	}

	sink, err := w.metaSink(dst)
	if err != nil {
		return err
	}
	defer sink.Close()

	return metafile.Write(sink, metafile.Entry{
		IsDeduplicated: isDeduplicated,
		Name:           []byte(filepath.Base(src)),
		Hash:           hash,
		Stx:            stx,
		Lsattr:         lsattr,
		Xattrs:         xattrs,
	})
}
