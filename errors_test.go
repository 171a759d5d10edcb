package upm

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/format"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "load", Path: "/tmp/db", Kind: ErrFileAccess, Err: os.ErrNotExist}
	assert.Equal(t, "upm: load /tmp/db: cannot access database file: file does not exist", err.Error())

	err = &Error{Op: "save", Kind: ErrNoPath, Err: ErrNoPath}
	assert.Equal(t, "upm: save: database has no backing file", err.Error())
}

func TestErrorIs(t *testing.T) {
	var err error = &Error{Op: "load", Kind: ErrCorruptOrWrongPassword, Err: crypt.ErrDecrypt}

	assert.True(t, errors.Is(err, ErrCorruptOrWrongPassword))
	assert.True(t, errors.Is(err, crypt.ErrDecrypt))
	assert.False(t, errors.Is(err, ErrFileAccess))

	var upmErr *Error
	assert.True(t, errors.As(errors.Wrap(err, "outer"), &upmErr))
	assert.Equal(t, "load", upmErr.Op)
}

func TestCodecErrorKinds(t *testing.T) {
	for cause, kind := range map[error]error{
		format.ErrUnsupportedVersion: ErrUnsupportedFormat,
		format.ErrTruncated:          ErrCorruptOrWrongPassword,
		crypt.ErrDecrypt:             ErrCorruptOrWrongPassword,
		database.ErrMalformed:        ErrCorruptOrWrongPassword,
		database.ErrInvalid:          ErrSerialization,
	} {
		err := codecError("load", "", errors.Wrap(cause, "context"))
		assert.True(t, errors.Is(err, kind), "%v", cause)
		assert.True(t, errors.Is(err, cause), "%v", cause)
	}
}
