// Package historyscan populates a dedup.Index from every metadata-stream
// file of every snapshot of every site in a repository, so a new snapshot
// run can deduplicate against everything captured so far. This mirrors the
// history-scan loop at the top of cli::Baktu::snapshot() in the original.
package historyscan

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/dedup"
	"github.com/OrthogonalScribe/baktu/internal/metafile"
	"github.com/OrthogonalScribe/baktu/internal/repo"
)

// Populate walks every site, snapshot and metadata-stream file reachable
// from r and adds every non-deduplicated regular-file record's (hash, path)
// pair into idx.
func Populate(idx *dedup.Index, r repo.Repo) error {
	sites, err := r.Sites()
	if err != nil {
		return fmt.Errorf("historyscan: listing sites: %w", err)
	}

	for _, site := range sites {
		snaps, err := site.Snapshots()
		if err != nil {
			return fmt.Errorf("historyscan: listing snapshots of site %q: %w", site.Path, err)
		}

		for _, snap := range snaps {
			metaFiles, err := snap.MetaFiles()
			if err != nil {
				return fmt.Errorf("historyscan: listing metadata files of snapshot %q: %w", snap.Path, err)
			}

			for _, metaPath := range metaFiles {
				records, err := metafile.ReadRecords(metaPath)
				if err != nil {
					return fmt.Errorf("historyscan: reading %q: %w", metaPath, err)
				}

				for _, record := range records {
					hash, path, ok, err := record.HashAndPath(metaPath)
					if err != nil {
						return fmt.Errorf("historyscan: parsing record in %q: %w", metaPath, err)
					}
					if !ok {
						continue
					}
					idx.Add(hash, path)
				}
			}
		}
	}

	logrus.WithField("buckets", idx.Len()).Info("history scan complete")
	return nil
}
