package upm

import (
	"os"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/format"
)

// LoadOption tunes how database files are read.
type LoadOption func(*format.Options)

// WithLegacyCharset sets the charset that text in files older than version 3
// is assumed to be in. The default is Windows-1252.
func WithLegacyCharset(c database.Charset) LoadOption {
	return func(o *format.Options) {
		o.LegacyCharset = &c
	}
}

func loadOptions(opts []LoadOption) *format.Options {
	o := &format.Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create returns an empty database with a fresh salt and no backing file. The
// passphrase is given when it's first saved.
func Create() (*Database, error) {
	salt, err := crypt.NewSalt()
	if err != nil {
		return nil, &Error{Op: "create", Kind: ErrSerialization, Err: err}
	}
	return newDatabase(salt), nil
}

// Load reads and decrypts the database stored at path.
func Load(path string, passphrase []byte, opts ...LoadOption) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Kind: ErrFileAccess, Err: err}
	}

	db, err := decode("load", path, data, passphrase, opts)
	if err != nil {
		return nil, err
	}

	log().Debug("loaded database",
		"path", path, "version", db.version, "revision", db.revision, "accounts", db.Len())
	return db, nil
}

// LoadBytes decrypts a database held in memory, for example one fetched from a
// remote location. The result has no backing file.
func LoadBytes(data, passphrase []byte, opts ...LoadOption) (*Database, error) {
	return decode("load", "", data, passphrase, opts)
}

func decode(op, path string, data, passphrase []byte, opts []LoadOption) (*Database, error) {
	decoded, err := format.Decode(data, passphrase, loadOptions(opts))
	if err != nil {
		return nil, codecError(op, path, err)
	}
	return fromDecoded(decoded, path), nil
}

// Save writes the database back to its backing file under the given
// passphrase.
func Save(db *Database, passphrase []byte) error {
	if db.path == "" {
		return &Error{Op: "save", Kind: ErrNoPath, Err: ErrNoPath}
	}
	return save("save", db, db.path, passphrase)
}

// SaveAs writes the database to path under the given passphrase, which then
// becomes its backing file.
func SaveAs(db *Database, path string, passphrase []byte) error {
	return save("save", db, path, passphrase)
}

// The revision is bumped in the encoded payload first and only committed to
// the database once the file is safely in place, so failures leave it alone.
func save(op string, db *Database, path string, passphrase []byte) error {
	payload := db.payload()
	payload.Revision++

	data, err := format.Encode(payload, db.salt, passphrase)
	if err != nil {
		return &Error{Op: op, Path: path, Kind: ErrSerialization, Err: err}
	}

	if err := writeFileAtomic(path, data, 0600); err != nil {
		return &Error{Op: op, Path: path, Kind: ErrFileAccess, Err: err}
	}

	if db.version.Legacy() {
		log().Info("upgraded database format",
			"path", path, "from", db.version, "to", format.Latest)
	}

	db.revision = payload.Revision
	db.path = path
	db.version = format.Latest

	log().Debug("saved database", "path", path, "revision", db.revision, "accounts", db.Len())
	return nil
}

// ChangePassword saves the database under a new passphrase. When it has a
// backing file, that file must decrypt with the old passphrase first. The salt
// is kept.
func ChangePassword(db *Database, oldPassphrase, newPassphrase []byte, opts ...LoadOption) error {
	if db.path == "" {
		return &Error{Op: "change password", Kind: ErrNoPath, Err: ErrNoPath}
	}

	data, err := os.ReadFile(db.path)
	if err != nil {
		return &Error{Op: "change password", Path: db.path, Kind: ErrFileAccess, Err: err}
	}
	if _, err := format.Decode(data, oldPassphrase, loadOptions(opts)); err != nil {
		return codecError("change password", db.path, err)
	}

	return save("change password", db, db.path, newPassphrase)
}

// Reload reads the database's backing file again. The result replaces the
// database entirely; nothing from the in-memory copy is kept.
func Reload(db *Database, passphrase []byte, opts ...LoadOption) (*Database, error) {
	if db.path == "" {
		return nil, &Error{Op: "reload", Kind: ErrNoPath, Err: ErrNoPath}
	}
	return Load(db.path, passphrase, opts...)
}
