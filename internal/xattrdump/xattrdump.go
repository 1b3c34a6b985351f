// Package xattrdump enumerates all extended attributes of a filesystem
// entry, in direct mode (requiring CAP_SYS_ADMIN) or via a long-lived
// external helper process, chosen once at startup based on the running
// process's capabilities.
package xattrdump

// KV is one extended attribute, as raw, possibly non-UTF-8 bytes.
type KV struct {
	Key   []byte
	Value []byte
}

// Dumper enumerates extended attributes for one path at a time. Key order
// is whatever the kernel returns, not sorted — this preserves
// implementation-visible creation order.
type Dumper interface {
	Dump(path string) ([]KV, error)
	Close() error
}

// NewDumper chooses direct mode when CAP_SYS_ADMIN is permitted for this
// process, helper mode otherwise. helperPath is the executable name or path
// used to spawn the helper (normally "get-all-xattrs", resolved via PATH).
func NewDumper(helperPath string) (Dumper, error) {
	permitted, err := hasSysAdminPermitted()
	if err != nil {
		return nil, err
	}
	if permitted {
		return newDirectDumper(), nil
	}
	return newHelperDumper(helperPath)
}
