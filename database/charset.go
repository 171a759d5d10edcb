package database

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// Charset is the text encoding used for the string fields of a payload.
// Format 3 always uses UTF-8; older formats used whatever the writing
// platform's default was.
type Charset struct {
	name string

	// nil for UTF-8, which is validated rather than transcoded.
	enc encoding.Encoding
}

// UTF8 is the charset of every payload written today.
var UTF8 = Charset{name: "utf-8"}

// Windows1252 is the default charset assumed for payloads of old formats.
var Windows1252 = Charset{name: "windows-1252", enc: charmap.Windows1252}

// LookupCharset finds a charset by any of its WHATWG labels, for example
// "utf-8", "latin1" or "windows-1252".
func LookupCharset(label string) (Charset, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return Charset{}, errors.Wrapf(err, "unknown charset %q", label)
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		return Charset{}, errors.Wrapf(err, "unknown charset %q", label)
	}
	if name == UTF8.name {
		return UTF8, nil
	}
	return Charset{name: name, enc: enc}, nil
}

func (c Charset) String() string {
	if c.name == "" {
		return UTF8.name
	}
	return c.name
}

func (c Charset) encode(s string) ([]byte, error) {
	if c.enc == nil {
		if !utf8.ValidString(s) {
			return nil, errors.Wrap(ErrInvalid, "text isn't valid UTF-8")
		}
		return []byte(s), nil
	}

	encoded, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalid, "text can't be represented in %s: %v", c, err)
	}
	return encoded, nil
}

func (c Charset) decode(b []byte) (string, error) {
	if c.enc == nil {
		if !utf8.Valid(b) {
			return "", errors.Wrap(ErrMalformed, "text isn't valid UTF-8")
		}
		return string(b), nil
	}

	decoded, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrapf(ErrMalformed, "text isn't valid %s: %v", c, err)
	}
	return string(decoded), nil
}
