// Package dedup implements baktu's in-memory deduplication index: a map from
// BLAKE3 digest to the destination paths of every previously materialized
// file carrying that digest. A digest identifies a bucket of candidates, not
// a single file — Find still verifies byte equality before reporting a
// match (§5.2).
package dedup

import (
	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/hasher"
)

// Index is a hash-bucketed set of backing file paths. The zero value is
// ready to use. Not safe for concurrent use.
type Index struct {
	buckets map[[32]byte][]string
}

// New returns an empty Index.
func New() *Index {
	return &Index{buckets: make(map[[32]byte][]string)}
}

// Add records path as a backing candidate for hash. Logs a warning every
// time a path is appended to an already existing bucket, since distinct
// content sharing a BLAKE3 digest is expected to be exceedingly rare.
func (idx *Index) Add(hash [32]byte, path string) {
	if idx.buckets == nil {
		idx.buckets = make(map[[32]byte][]string)
	}
	existing, ok := idx.buckets[hash]
	if ok {
		logrus.WithField("path", path).Warn("dedup: hash collision, appending to existing bucket")
	}
	idx.buckets[hash] = append(existing, path)
}

// Find looks up hash's bucket and returns the path of the first candidate
// whose content is byte-identical to the file at path, if any. A returned
// ok of false means path should be materialized as a fresh copy rather than
// deduplicated.
func (idx *Index) Find(hash [32]byte, path string) (backingPath string, ok bool, err error) {
	for _, candidate := range idx.buckets[hash] {
		eq, err := hasher.Equal(path, candidate)
		if err != nil {
			return "", false, err
		}
		if eq {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

// Len returns the number of distinct hash buckets currently indexed.
func (idx *Index) Len() int {
	return len(idx.buckets)
}
