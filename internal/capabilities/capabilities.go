//go:build linux

// Package capabilities provides just enough of the Linux capability(7) API
// for baktu's direct-mode xattr dumper: checking whether CAP_SYS_ADMIN is
// permitted, and scoped raise/drop of it in the effective set for the
// duration of one enumeration. No general-purpose Go capability library
// turned up anywhere in the reference corpus this was built against, so
// this talks to capget(2)/capset(2) directly via golang.org/x/sys/unix
// syscall numbers, the same dependency family the rest of the low-level
// filesystem code in this module already uses.
package capabilities

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// capSysAdmin is CAP_SYS_ADMIN from linux/capability.h.
const capSysAdmin = 21

// linuxCapabilityVersion3 selects the 64-bit-wide capability set layout
// (two 32-bit words), avoiding the 32-capability ceiling of version 1.
const linuxCapabilityVersion3 = 0x20080522

type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permissible uint32
	inheritable uint32
}

func capget(header *capHeader, data *[2]capData) error {
	_, _, errno := unix.Syscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(header)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return fmt.Errorf("capget: %w", errno)
	}
	return nil
}

func capset(header *capHeader, data *[2]capData) error {
	_, _, errno := unix.Syscall(unix.SYS_CAPSET, uintptr(unsafe.Pointer(header)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return fmt.Errorf("capset: %w", errno)
	}
	return nil
}

// bitFor returns the (word index, bit) pair locating capSysAdmin within the
// two 32-bit words of a version-3 capability set.
func bitFor(cap uint) (word int, bit uint32) {
	return int(cap / 32), 1 << (cap % 32)
}

// HasSysAdminPermitted reports whether CAP_SYS_ADMIN is in this process's
// permitted set, i.e. whether direct-mode xattr enumeration is available
// at all without spawning the helper.
func HasSysAdminPermitted() (bool, error) {
	header := capHeader{version: linuxCapabilityVersion3, pid: 0}
	var data [2]capData
	if err := capget(&header, &data); err != nil {
		return false, err
	}

	word, bit := bitFor(capSysAdmin)
	permitted := [2]uint32{data[0].permissible, data[1].permissible}
	return permitted[word]&bit != 0, nil
}

// RaiseSysAdminEffective adds CAP_SYS_ADMIN to the effective set.
func RaiseSysAdminEffective() error {
	return setEffective(true)
}

// DropSysAdminEffective removes CAP_SYS_ADMIN from the effective set. Call
// this on every exit path after a successful RaiseSysAdminEffective.
func DropSysAdminEffective() error {
	return setEffective(false)
}

func setEffective(raise bool) error {
	header := capHeader{version: linuxCapabilityVersion3, pid: 0}
	var data [2]capData
	if err := capget(&header, &data); err != nil {
		return err
	}

	word, bit := bitFor(capSysAdmin)
	effective := [2]*uint32{&data[0].effective, &data[1].effective}
	if raise {
		*effective[word] |= bit
	} else {
		*effective[word] &^= bit
	}

	return capset(&header, &data)
}
