// Package hasher computes the BLAKE3 content digest baktu uses as a dedup
// bucket key, and verifies candidate matches within a bucket by comparing
// file content byte for byte (the digest alone is never treated as proof of
// equality, see §5.2).
package hasher

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// chunkSize is the streaming buffer size for both hashing and comparison,
// matching the teacher's chunked-read style in backend/local.
const chunkSize = 64 * 1024

// Sum returns the BLAKE3 digest of the file at path, read in chunkSize
// chunks so memory use stays flat regardless of file size.
func Sum(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return [32]byte{}, fmt.Errorf("hasher: reading %q: %w", path, err)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Equal reports whether the files at p1 and p2 have identical content. It
// first compares sizes, then streams both files in lockstep, chunkSize
// bytes at a time, comparing each pair of read regions directly against
// each other.
func Equal(p1, p2 string) (bool, error) {
	f1, err := os.Open(p1)
	if err != nil {
		return false, err
	}
	defer f1.Close()

	f2, err := os.Open(p2)
	if err != nil {
		return false, err
	}
	defer f2.Close()

	stat1, err := f1.Stat()
	if err != nil {
		return false, err
	}
	stat2, err := f2.Stat()
	if err != nil {
		return false, err
	}
	if stat1.Size() != stat2.Size() {
		return false, nil
	}

	b1 := make([]byte, chunkSize)
	b2 := make([]byte, chunkSize)

	for {
		n1, err1 := io.ReadFull(f1, b1)
		n2, err2 := io.ReadFull(f2, b2)

		if n1 != n2 {
			return false, fmt.Errorf("hasher: mismatched read lengths on equally sized files %q and %q", p1, p2)
		}
		if n1 == 0 {
			if isEOF(err1) && isEOF(err2) {
				return true, nil
			}
			if err1 != nil {
				return false, err1
			}
			return false, err2
		}

		// The comparison a past version of this function performed here
		// compared b1 against itself, which trivially always succeeds; any
		// two same-size, same-hash-bucket files were reported equal without
		// their content ever being examined. Compare the two read regions
		// against each other instead.
		if string(b1[:n1]) != string(b2[:n2]) {
			return false, nil
		}

		if !isEOF(err1) && err1 != nil {
			return false, err1
		}
		if !isEOF(err2) && err2 != nil {
			return false, err2
		}
		if isEOF(err1) || isEOF(err2) {
			return true, nil
		}
	}
}

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
