// Package metafile implements baktu's per-entry metadata record: the
// lossless textual description of one materialized filesystem entry, and
// the reader that reconstructs (hash, destination path) pairs out of a
// stream of such records for the dedup index.
package metafile

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/OrthogonalScribe/baktu/internal/hexcodec"
	"github.com/OrthogonalScribe/baktu/internal/statx"
)

// Xattr is one extended attribute key/value pair as recorded in a metadata
// line.
type Xattr struct {
	Key   []byte
	Value []byte
}

// Entry holds everything a single metadata record needs to serialize.
type Entry struct {
	IsDeduplicated bool
	Name           []byte         // last path component, raw bytes
	Hash           *[32]byte      // nil when the entry was too small to hash
	Stx            unix.Statx_t   // always populated
	Lsattr         *string        // nil to suppress the line entirely
	Xattrs         []Xattr
}

const separator = "--"

// Write appends one complete record to w, in the fixed field order the
// format requires (§4.5): dedup flag, name, hash, statx fields, lsattr,
// xattrs, separator.
func Write(w io.Writer, e Entry) error {
	bw := bufio.NewWriter(w)

	if e.IsDeduplicated {
		if _, err := fmt.Fprintln(bw, "is-deduplicated"); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString("name "); err != nil {
		return err
	}
	if _, err := bw.Write(hexcodec.Encode(false, e.Name)); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if e.Hash != nil {
		if _, err := fmt.Fprintf(bw, "b3sum %x\n", *e.Hash); err != nil {
			return err
		}
	}

	if err := writeStatx(bw, e.Stx); err != nil {
		return err
	}

	if e.Lsattr != nil {
		if _, err := fmt.Fprintf(bw, "lsattr %s\n", *e.Lsattr); err != nil {
			return err
		}
	}

	for _, x := range e.Xattrs {
		if _, err := bw.WriteString("x k."); err != nil {
			return err
		}
		if _, err := bw.Write(hexcodec.Encode(true, x.Key)); err != nil {
			return err
		}
		if _, err := bw.WriteString(" v."); err != nil {
			return err
		}
		if _, err := bw.Write(hexcodec.Encode(false, x.Value)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(bw, separator); err != nil {
		return err
	}

	return bw.Flush()
}

func writeStatx(bw *bufio.Writer, stx unix.Statx_t) error {
	fmt.Fprintf(bw, "blksize %d\n", stx.Blksize)

	bw.WriteString("attributes")
	writeAttr(bw, stx, unix.STATX_ATTR_COMPRESSED, "compressed")
	writeAttr(bw, stx, unix.STATX_ATTR_IMMUTABLE, "immutable")
	writeAttr(bw, stx, unix.STATX_ATTR_APPEND, "append")
	writeAttr(bw, stx, unix.STATX_ATTR_NODUMP, "nodump")
	writeAttr(bw, stx, unix.STATX_ATTR_ENCRYPTED, "encrypted")
	writeAttr(bw, stx, unix.STATX_ATTR_VERITY, "verity")
	writeAttr(bw, stx, unix.STATX_ATTR_DAX, "dax")
	bw.WriteByte('\n')

	fmt.Fprintf(bw, "nlink %d\n", stx.Nlink)
	fmt.Fprintf(bw, "uid %d\n", stx.Uid)
	fmt.Fprintf(bw, "gid %d\n", stx.Gid)
	fmt.Fprintf(bw, "mode %o\n", statx.Perm(stx))
	fmt.Fprintf(bw, "type %s\n", statx.Type(stx))
	fmt.Fprintf(bw, "ino %d\n", stx.Ino)
	fmt.Fprintf(bw, "size %d\n", stx.Size)
	fmt.Fprintf(bw, "blocks %d\n", stx.Blocks)
	fmt.Fprintf(bw, "atime %d.%09d\n", stx.Atime.Sec, stx.Atime.Nsec)
	fmt.Fprintf(bw, "btime %d.%09d\n", stx.Btime.Sec, stx.Btime.Nsec)
	fmt.Fprintf(bw, "ctime %d.%09d\n", stx.Ctime.Sec, stx.Ctime.Nsec)
	fmt.Fprintf(bw, "mtime %d.%09d\n", stx.Mtime.Sec, stx.Mtime.Nsec)

	switch statx.Type(stx) {
	case statx.TypeChr, statx.TypeBlk:
		fmt.Fprintf(bw, "rdev_major %d\n", stx.Rdev_major)
		fmt.Fprintf(bw, "rdev_minor %d\n", stx.Rdev_minor)
	}

	fmt.Fprintf(bw, "dev_major %d\n", stx.Dev_major)
	fmt.Fprintf(bw, "dev_minor %d\n", stx.Dev_minor)
	fmt.Fprintf(bw, "mnt_id %d\n", stx.Mnt_id)

	if stx.Mask&unix.STATX_DIOALIGN != 0 {
		fmt.Fprintf(bw, "dio_mem_align %d\n", stx.Dio_mem_align)
		fmt.Fprintf(bw, "dio_offset_align %d\n", stx.Dio_offset_align)
	}

	return bw.Flush()
}

func writeAttr(bw *bufio.Writer, stx unix.Statx_t, flag uint64, name string) {
	if stx.Attributes_mask&flag != 0 && stx.Attributes&flag != 0 {
		bw.WriteByte(' ')
		bw.WriteString(name)
	}
}
