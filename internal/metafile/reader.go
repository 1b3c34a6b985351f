package metafile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OrthogonalScribe/baktu/internal/hexcodec"
)

const (
	linePfxIsDeduplicated = "is-deduplicated"
	linePfxName           = "name "
	linePfxHash           = "b3sum "
)

// Record is the raw line set of one parsed metadata record, bounded by a
// "--" separator line.
type Record struct {
	Lines [][]byte
}

// ReadRecords splits path's contents into records on "--" lines.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	var cur []([]byte)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := append([]byte{}, scanner.Bytes()...)
		if string(line) == separator {
			records = append(records, Record{Lines: cur})
			cur = nil
		} else {
			cur = append(cur, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("metafile: reading %q: %w", path, err)
	}
	return records, nil
}

// HashAndPath returns the content hash and reconstructed destination path
// of r, if r describes a non-deduplicated regular file (i.e. it carries a
// b3sum line and no is-deduplicated line). metaFilePath is the path of the
// metadata file this record was read from; the entry's destination path is
// its parent directory joined with the record's decoded name.
func (r Record) HashAndPath(metaFilePath string) (hash [32]byte, path string, ok bool, err error) {
	var hasHash, hasName bool

	for _, line := range r.Lines {
		switch {
		case string(line) == linePfxIsDeduplicated:
			return [32]byte{}, "", false, nil
		case bytes.HasPrefix(line, []byte(linePfxHash)):
			decoded, err := decodeHexDigest(line[len(linePfxHash):])
			if err != nil {
				return [32]byte{}, "", false, err
			}
			hash = decoded
			hasHash = true
		case bytes.HasPrefix(line, []byte(linePfxName)):
			name, _, err := hexcodec.DecodeTagged(line[len(linePfxName):])
			if err != nil {
				return [32]byte{}, "", false, err
			}
			path = filepath.Join(filepath.Dir(metaFilePath), string(name))
			hasName = true
		}
	}

	if !hasHash || !hasName {
		return [32]byte{}, "", false, nil
	}
	return hash, path, true, nil
}

func decodeHexDigest(hexStr []byte) ([32]byte, error) {
	var out [32]byte
	decoded := hexcodec.Decode(hexStr)
	if len(decoded) != len(out) {
		return out, fmt.Errorf("metafile: b3sum digest has %d bytes, want %d", len(decoded), len(out))
	}
	copy(out[:], decoded)
	return out, nil
}
