package upm

import (
	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/format"
)

// The kinds of failure callers are expected to tell apart. Use errors.Is to
// match them against anything this package returns.
var (
	// The database file couldn't be read, written or replaced.
	ErrFileAccess = errors.New("cannot access database file")

	// Decryption or decoding failed. There's no way to know whether the
	// passphrase was wrong or the data is damaged, so this covers both.
	ErrCorruptOrWrongPassword = errors.New("wrong passphrase or corrupt database")

	// The file has a version header nothing here knows how to read.
	ErrUnsupportedFormat = errors.New("unsupported database format")

	// The in-memory database couldn't be encoded.
	ErrSerialization = errors.New("cannot serialize database")

	ErrNoPath           = errors.New("database has no backing file")
	ErrEmptyName        = errors.New("account name must not be empty")
	ErrPromptCanceled   = errors.New("passphrase prompt canceled")
	ErrUnknownAuthEntry = errors.New("auth entry doesn't name an account")
	ErrNoRemote         = errors.New("database has no remote location")
	ErrClosed           = errors.New("session is closed")
)

// Error records a failed operation, the file it concerned and which kind of
// failure it was. The underlying cause is kept for inspection.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	s := "upm: " + e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	s += ": " + e.Kind.Error()
	if e.Err != nil && e.Err != e.Kind {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Wrap an error from the codec layers in an *Error of the matching kind.
func codecError(op, path string, err error) error {
	kind := ErrSerialization
	switch {
	case errors.Is(err, format.ErrUnsupportedVersion):
		kind = ErrUnsupportedFormat
	case errors.Is(err, format.ErrTruncated),
		errors.Is(err, crypt.ErrDecrypt),
		errors.Is(err, database.ErrMalformed):
		kind = ErrCorruptOrWrongPassword
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}
