package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// nopWriteCloser adapts a plain io.Writer that must not be closed (stdout)
// to io.WriteCloser.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// metaSink returns the metadata-stream writer for the directory dst is
// materialized into. In a real run this is the append-only metadata file
// alongside dst; in a dry run, stdout when debug logging is enabled
// (so dry-run output is inspectable), otherwise /dev/null, mirroring
// get_meta_sink.
func (w *walker) metaSink(dst string) (io.WriteCloser, error) {
	if w.opts.DryRun {
		if logrus.GetLevel() >= logrus.DebugLevel {
			return nopWriteCloser{os.Stdout}, nil
		}
		f, err := os.OpenFile(os.DevNull, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return nil, fmt.Errorf("engine: opening %s: %w", os.DevNull, err)
		}
		return f, nil
	}

	metaPath := filepath.Join(filepath.Dir(dst), w.metaStreamName)
	f, err := os.OpenFile(metaPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("engine: opening %q: %w", metaPath, err)
	}
	return f, nil
}
