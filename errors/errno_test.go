package errors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/little-csd/geekos/errors"
)

func TestToErrnoMapsKnownKinds(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{errors.ErrIOFailed, errors.EIO},
		{errors.ErrInvalidPath, errors.EINVAL},
		{errors.ErrNotFound, errors.ENOENT},
		{errors.ErrExists, errors.EEXIST},
		{errors.ErrIsADirectory, errors.EISDIR},
		{errors.ErrNoSpaceOnDevice, errors.ENOSPC},
		{errors.ErrPermissionDenied, errors.EACCES},
		{errors.ErrArgumentOutOfRange, errors.ERANGE},
		{errors.ErrNotSupported, errors.ENOSYS},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, errors.ToErrno(c.err))
	}
}

func TestToErrnoUnwrapsWrappedErrors(t *testing.T) {
	wrapped := errors.ErrNotFound.WithMessage("no such file: foo.txt")
	require.Equal(t, errors.ENOENT, errors.ToErrno(wrapped))
	require.ErrorIs(t, wrapped, errors.ErrNotFound)
}

func TestToErrnoNilIsZero(t *testing.T) {
	require.Equal(t, 0, errors.ToErrno(nil))
}

func TestToErrnoUnknownIsUnknown(t *testing.T) {
	require.Equal(t, errors.EUNKNOWN, errors.ToErrno(assertPlainError{}))
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "some other error" }
