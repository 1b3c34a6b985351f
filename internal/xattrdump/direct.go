//go:build linux

package xattrdump

import (
	"fmt"

	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/capabilities"
)

func hasSysAdminPermitted() (bool, error) {
	return capabilities.HasSysAdminPermitted()
}

// directDumper reads xattrs in-process, scoping CAP_SYS_ADMIN to the
// duration of each Dump call so the process only carries the elevated
// capability while it is actually needed.
type directDumper struct{}

func newDirectDumper() Dumper {
	return directDumper{}
}

func (directDumper) Dump(path string) ([]KV, error) {
	logrus.Trace("raising CAP_SYS_ADMIN before getting xattrs")
	if err := capabilities.RaiseSysAdminEffective(); err != nil {
		return nil, fmt.Errorf("xattrdump: raising CAP_SYS_ADMIN: %w", err)
	}
	defer func() {
		logrus.Trace("dropping CAP_SYS_ADMIN after getting xattrs")
		if err := capabilities.DropSysAdminEffective(); err != nil {
			logrus.Errorf("xattrdump: dropping CAP_SYS_ADMIN: %v", err)
		}
	}()

	keys, err := xattr.LList(path)
	if err != nil {
		return nil, fmt.Errorf("xattrdump: listing %q: %w", path, err)
	}

	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		v, err := xattr.LGet(path, k)
		if err != nil {
			return nil, fmt.Errorf("xattrdump: reading %q on %q: %w", k, path, err)
		}
		out = append(out, KV{Key: []byte(k), Value: v})
	}
	return out, nil
}

func (directDumper) Close() error { return nil }
