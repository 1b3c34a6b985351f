// Command get-all-xattrs is baktu's privileged xattr-reading helper. It is
// meant to be installed with CAP_SYS_ADMIN permitted (e.g. via
// `setcap cap_sys_admin=p get-all-xattrs`), so that the main baktu process
// can stay unprivileged while still seeing attributes in the `trusted.*`
// namespace.
//
// Protocol: reads NUL-terminated path strings from stdin. For each path,
// writes one "<key_hex> <value_hex>" line per extended attribute found, in
// kernel enumeration order, followed by a lone "--" line.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/xattr"

	"github.com/OrthogonalScribe/baktu/internal/capabilities"
	"github.com/OrthogonalScribe/baktu/internal/hexcodec"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "get-all-xattrs:", err)
		os.Exit(1)
	}
}

func run(in *os.File, out *os.File) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for {
		path, err := reader.ReadString(0)
		if err != nil {
			return nil // EOF: stdin closed, exit cleanly
		}
		path = path[:len(path)-1] // drop the NUL terminator

		if err := dumpOne(writer, path); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
}

func dumpOne(w *bufio.Writer, path string) error {
	if err := capabilities.RaiseSysAdminEffective(); err != nil {
		return fmt.Errorf("raising CAP_SYS_ADMIN: %w", err)
	}
	defer capabilities.DropSysAdminEffective()

	keys, err := xattr.LList(path)
	if err != nil {
		return fmt.Errorf("listing xattrs on %q: %w", path, err)
	}

	for _, k := range keys {
		v, err := xattr.LGet(path, k)
		if err != nil {
			return fmt.Errorf("reading xattr %q on %q: %w", k, path, err)
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", hexcodec.EncodeHex([]byte(k)), hexcodec.EncodeHex(v)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, "--")
	return err
}
