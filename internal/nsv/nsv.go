// Package nsv implements NUL-separated value files: the on-disk format for
// a site's include/exclude path lists. It is a thin instantiation of
// internal/dsv with the separator fixed to NUL, plus the append/filter-not
// operations cmd/baktu's nsv-add-to/nsv-rm-from subcommands drive.
package nsv

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"

	"github.com/OrthogonalScribe/baktu/internal/dsv"
)

// Sep is the NSV entry separator: ASCII NUL.
const Sep = 0

// Append adds entry to the end of the NSV file at path.
func Append(path string, entry []byte) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("nsv: expanding %q: %w", path, err)
	}

	f, err := os.OpenFile(expanded, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(entry); err != nil {
		return err
	}
	_, err = f.Write([]byte{Sep})
	return err
}

// FilterNot removes every occurrence of entry from the NSV file at path. It
// returns an error if entry is not present at all.
func FilterNot(path string, entry []byte) error {
	entries, err := dsv.VecFromFile(path, Sep)
	if err != nil {
		return err
	}

	if !dsv.Contains(entries, entry) {
		return fmt.Errorf("nsv: entry %q not found in %s", entry, path)
	}

	return dsv.VecToFile(path, Sep, dsv.FilterNot(entries, entry))
}

// TildeExpand expands a leading "~" (alone or followed by "/") in path to
// the current user's home directory, the way the site's include/exclude NSV
// entries are expanded before use. A "~user" prefix is not expanded; such a
// path is returned unchanged.
func TildeExpand(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
