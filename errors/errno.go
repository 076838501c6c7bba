// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like ENOSPC on a non-Unix build.

package errors

import (
	"fmt"
)

type DiskoError string

// Error kinds, one per failure category the mount-point and file operations
// can produce. These are the only errors this module returns; everything
// else is a programmer error (a panic) or a bug.
const (
	// ErrIOFailed means the underlying block device read or write failed.
	ErrIOFailed = DiskoError("input/output error")
	// ErrInvalidPath means a path was malformed, a component exceeded the
	// name length, or the depth exceeded MaxDirDeep.
	ErrInvalidPath = DiskoError("invalid path")
	// ErrNotFound means a path resolved to no entry and no creation was
	// requested.
	ErrNotFound = DiskoError("no such file or directory")
	// ErrExists means O_CREATE was given for a path that already exists.
	ErrExists = DiskoError("file exists")
	// ErrIsADirectory means the caller tried to open a directory as a file.
	ErrIsADirectory = DiskoError("is a directory")
	// ErrNoSpaceOnDevice means FAT allocation failed, or the parent
	// directory's single data sector is full.
	ErrNoSpaceOnDevice = DiskoError("no space left on device")
	// ErrPermissionDenied means a write was requested on a handle opened
	// without O_WRITE, or against a read-only entry.
	ErrPermissionDenied = DiskoError("permission denied")
	// ErrArgumentOutOfRange means a read extended past the handle's recorded
	// end-of-file position, or a volume is too small to format. Writes past
	// the end grow the file instead.
	ErrArgumentOutOfRange = DiskoError("argument out of range")
	// ErrNotSupported means the operation isn't implemented at this layer
	// (delete, create_directory, open_directory, read_entry).
	ErrNotSupported = DiskoError("operation not supported")
)

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: e,
	}
}

func (e DiskoError) Unwrap() error {
	return nil
}

// POSIX-style negative return codes, per the propagation contract in the
// spec: every error surfaces to the VFS layer as a single negative integer,
// and the VFS is responsible for mapping it to a user-visible code.
const (
	EUNKNOWN = -1
	ENOENT   = -2
	EIO      = -5
	EACCES   = -13
	EEXIST   = -17
	EISDIR   = -21
	EINVAL   = -22
	ENOSPC   = -28
	ERANGE   = -34
	ENOSYS   = -38
)

// ToErrno maps an error returned by this module to the negative integer the
// VFS dispatch layer expects. Errors that don't wrap one of the kinds above
// map to EUNKNOWN.
func ToErrno(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case isKind(err, ErrIOFailed):
		return EIO
	case isKind(err, ErrInvalidPath):
		return EINVAL
	case isKind(err, ErrNotFound):
		return ENOENT
	case isKind(err, ErrExists):
		return EEXIST
	case isKind(err, ErrIsADirectory):
		return EISDIR
	case isKind(err, ErrNoSpaceOnDevice):
		return ENOSPC
	case isKind(err, ErrPermissionDenied):
		return EACCES
	case isKind(err, ErrArgumentOutOfRange):
		return ERANGE
	case isKind(err, ErrNotSupported):
		return ENOSYS
	default:
		return EUNKNOWN
	}
}

// isKind walks the Unwrap chain looking for `kind`. customDriverError wraps
// its cause via Unwrap, so an error built with WithMessage/WrapError still
// compares equal to the sentinel it was built from.
func isKind(err error, kind DiskoError) bool {
	for err != nil {
		if err == error(kind) {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
