// Package formattest builds containers in the versions the format package only
// reads, so that code handling old files can be tested without binary fixtures.
package formattest

import (
	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/format"
)

// Encode builds a container of the given version. Text in versions before 3 is
// stored in the given charset.
func Encode(
	version format.Version,
	payload *database.Payload,
	salt crypt.Salt,
	passphrase []byte,
	charset database.Charset,
) ([]byte, error) {
	var (
		plaintext []byte
		header    []byte
		err       error
	)

	switch version {
	case format.Version100:
		plaintext, err = database.EncodeLegacy(payload, database.LegacyHeader100, charset)
	case format.Version110:
		plaintext, err = database.EncodeLegacy(payload, database.LegacyHeader110, charset)
	case format.Version2:
		plaintext, err = database.Encode(payload, charset)
		header = append(append([]byte{}, format.Magic...), 2)
	case format.Version3:
		return format.Encode(payload, salt, passphrase)
	default:
		return nil, errors.Errorf("no such version %s", version)
	}
	if err != nil {
		return nil, err
	}

	key, err := crypt.Derive(crypt.SuiteLegacy, passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	ciphertext, err := crypt.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	container := append(header, salt[:]...)
	return append(container, ciphertext...), nil
}

// Payload returns a payload exercising empty fields, Unicode text and options.
func Payload() *database.Payload {
	return &database.Payload{
		Revision: 12,
		Options: database.Options{
			RemoteLocation: "http://example.com/upm/",
			AuthEntry:      "remote",
		},
		Accounts: []database.Account{
			{Name: "remote", UserID: "sync", Password: "s3cret", URL: "http://example.com"},
			{Name: "café", UserID: "zoë", Password: "crème brûlée", Notes: "line one\nline two"},
			{Name: "blank"},
		},
	}
}
