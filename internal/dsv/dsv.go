// Package dsv implements delimiter-separated value files: a flat list of
// byte-string entries, each terminated by a single separator byte, with no
// escaping. It underlies internal/nsv's NUL-separated path lists.
package dsv

import (
	"bufio"
	"bytes"
	"os"
)

// VecFromFile reads path and splits its contents on sep, returning one
// entry per separator-terminated run (a trailing separator byte, if
// present, is not included in the entry).
func VecFromFile(path string, sep byte) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var result [][]byte
	r := bufio.NewReader(f)
	for {
		entry, err := r.ReadBytes(sep)
		if len(entry) > 0 {
			if entry[len(entry)-1] == sep {
				entry = entry[:len(entry)-1]
			}
			result = append(result, entry)
		}
		if err != nil {
			break
		}
	}
	return result, nil
}

// VecToFile overwrites path with xs, each entry followed by sep.
func VecToFile(path string, sep byte, xs [][]byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, x := range xs {
		if _, err := w.Write(x); err != nil {
			return err
		}
		if err := w.WriteByte(sep); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Contains reports whether entry occurs verbatim in xs.
func Contains(xs [][]byte, entry []byte) bool {
	for _, x := range xs {
		if bytes.Equal(x, entry) {
			return true
		}
	}
	return false
}

// FilterNot returns xs with every occurrence of entry removed.
func FilterNot(xs [][]byte, entry []byte) [][]byte {
	out := make([][]byte, 0, len(xs))
	for _, x := range xs {
		if !bytes.Equal(x, entry) {
			out = append(out, x)
		}
	}
	return out
}
