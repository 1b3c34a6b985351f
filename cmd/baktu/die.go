package main

import (
	"errors"

	"github.com/OrthogonalScribe/baktu/internal/engine"
)

// Exit codes mirror the sysexits.h values the original used via the
// `exitcode` crate, so scripts driving either implementation see the same
// numbers for the same failure classes.
const (
	exitUsage     = 64 // command line usage error: not in a repo/site, bad args
	exitDataErr   = 65 // input data was incorrect: corrupt repo, empty include list
	exitNoInput   = 66 // an input path could not be opened
	exitCantCreat = 73 // output file could not be created
	exitIOErr     = 74 // an I/O error occurred
	exitSoftware  = 70 // internal software error, shouldn't happen
)

// classify maps an error returned by a subcommand to a process exit code,
// the Go counterpart of scattering exitcode::{USAGE,DATAERR,...} through
// cli::die calls in the original.
func classify(err error) int {
	switch {
	case errors.Is(err, errNotARepo), errors.Is(err, errNotASite), errors.Is(err, errAlreadyExists):
		return exitUsage
	case errors.Is(err, errRepoCorrupt), errors.Is(err, engine.ErrNoIncludes):
		return exitDataErr
	case errors.Is(err, engine.ErrNonexistentPath):
		return exitNoInput
	case errors.Is(err, engine.ErrPermissionEscalation), errors.Is(err, engine.ErrSourceNameCollision), errors.Is(err, engine.ErrUnknownFileType):
		return exitDataErr
	default:
		return exitSoftware
	}
}
