// Package format reads and writes the on-disk container: an unencrypted header
// holding the version and salt, followed by the encrypted payload.
//
// Four versions exist. 1.0.0 and 1.1.0 files start directly with the salt and
// can only be told apart once decrypted. Versions 2 and 3 start with the magic
// "UPM" and a version byte. Everything is written as version 3.
package format

import (
	"bytes"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
)

// Magic starts every container of version 2 or later.
var Magic = []byte("UPM")

// ErrTruncated is returned when data is too short to hold a container header.
var ErrTruncated = errors.New("container is truncated")

// ErrUnsupportedVersion is returned for a magic header with an unknown version.
var ErrUnsupportedVersion = errors.New("unsupported container version")

// Version is one of the known container versions.
type Version int

const (
	Version100 Version = iota
	Version110
	Version2
	Version3
)

// Latest is the version every container is written as.
const Latest = Version3

func (v Version) String() string {
	switch v {
	case Version100:
		return "1.0.0"
	case Version110:
		return "1.1.0"
	case Version2:
		return "2"
	case Version3:
		return "3"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

// Legacy reports whether the version predates format 3.
func (v Version) Legacy() bool {
	return v != Latest
}

// Header is the unencrypted part of a container. For files without a magic
// the version is reported as Version100 until decryption says otherwise.
type Header struct {
	Version    Version
	Salt       crypt.Salt
	Ciphertext []byte
}

// Parse reads a container's header without decrypting anything. The returned
// ciphertext shares memory with data.
func Parse(data []byte) (*Header, error) {
	record := versionRecord100

	if bytes.HasPrefix(data, Magic) {
		if len(data) <= len(Magic) {
			return nil, errors.Wrap(ErrTruncated, "missing version after magic")
		}

		tag := data[len(Magic)]
		var ok bool
		if record, ok = Versions.findTag(tag); !ok {
			return nil, errors.Wrapf(ErrUnsupportedVersion, "version tag %d", tag)
		}
	}

	v, ok := record.Header.view(data)
	if !ok {
		return nil, errors.Wrapf(ErrTruncated,
			"got %d bytes, a version %s header needs %d", len(data), record.Version, record.Header.size)
	}

	h := &Header{
		Version:    record.Version,
		Ciphertext: v.Get("ciphertext"),
	}
	if n := copy(h.Salt[:], v.Get("salt")); n != crypt.SaltSize {
		return nil, errors.Errorf(
			"Incorrect number of salt bytes copied (got: %d, expected: %d)", n, crypt.SaltSize)
	}
	return h, nil
}

// Options tune how containers are decoded.
type Options struct {
	// The charset of text in containers older than version 3. Defaults to
	// Windows-1252 when nil.
	LegacyCharset *database.Charset
}

func (o *Options) legacyCharset() database.Charset {
	if o == nil || o.LegacyCharset == nil {
		return database.Windows1252
	}
	return *o.LegacyCharset
}

// Decoded is the result of decoding a container.
type Decoded struct {
	Version Version
	Salt    crypt.Salt
	Payload *database.Payload
}

// Decode parses, decrypts and decodes a container. A wrong passphrase and
// corrupt data look the same: either crypt.ErrDecrypt or database.ErrMalformed
// is somewhere in the returned error's chain.
func Decode(data, passphrase []byte, opts *Options) (*Decoded, error) {
	h, err := Parse(data)
	if err != nil {
		return nil, err
	}

	record, ok := Versions.Find(h.Version)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%s", h.Version)
	}

	key, err := crypt.Derive(record.Suite, passphrase, h.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive key")
	}
	defer key.Wipe()

	plaintext, err := crypt.Decrypt(key, h.Ciphertext)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plaintext)

	charset := database.UTF8
	if record.Charset == charsetLegacy {
		charset = opts.legacyCharset()
	}

	decoded := &Decoded{
		Version: record.Version,
		Salt:    h.Salt,
	}

	switch record.Payload {
	case payloadLegacy:
		payload, header, err := database.DecodeLegacy(plaintext, charset)
		if err != nil {
			return nil, err
		}
		if header == database.LegacyHeader110 {
			decoded.Version = Version110
		}
		decoded.Payload = payload
	case payloadCurrent:
		payload, err := database.Decode(plaintext, charset)
		if err != nil {
			return nil, err
		}
		decoded.Payload = payload
	default:
		panic(fmt.Sprintf("Unknown payload layout %d", record.Payload))
	}

	return decoded, nil
}

// Encode a payload as a container of the latest version, encrypted under a key
// derived from the passphrase and salt.
func Encode(payload *database.Payload, salt crypt.Salt, passphrase []byte) ([]byte, error) {
	record := Versions.Latest()

	plaintext, err := database.Encode(payload, database.UTF8)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plaintext)

	key, err := crypt.Derive(record.Suite, passphrase, salt)
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive key")
	}
	defer key.Wipe()

	ciphertext, err := crypt.Encrypt(key, plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encrypt payload")
	}

	v := record.Header.alloc(len(ciphertext))
	copy(v.Get("magic"), Magic)
	v.Get("version")[0] = record.Tag
	copy(v.Get("salt"), salt[:])
	copy(v.Get("ciphertext"), ciphertext)

	return v.Bytes(), nil
}
