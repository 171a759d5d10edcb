package database

import (
	"github.com/pkg/errors"
)

// ErrMalformed is returned when payload bytes don't have the expected
// structure. Decrypting with the wrong key produces exactly this kind of
// garbage, so callers can't tell corruption from a wrong passphrase.
var ErrMalformed = errors.New("malformed payload")

// ErrInvalid is returned when in-memory data can't be encoded into a payload.
var ErrInvalid = errors.New("invalid payload data")

// The header strings stored at the start of pre-2 payloads.
const (
	LegacyHeader100 = "1.0.0"
	LegacyHeader110 = "1.1.0"
)

// Encode the payload in the layout used by formats 2 and 3: revision, options,
// account count, then each account's five fields.
func Encode(p *Payload, charset Charset) ([]byte, error) {
	w := &fieldWriter{charset: charset}

	if err := w.writeInt("revision", p.Revision); err != nil {
		return nil, err
	}
	if err := writeOptions(w, &p.Options); err != nil {
		return nil, err
	}
	if err := writeAccounts(w, p.Accounts); err != nil {
		return nil, err
	}

	return w.buf, nil
}

// Decode a payload in the layout used by formats 2 and 3.
func Decode(data []byte, charset Charset) (*Payload, error) {
	r := &fieldReader{data: data, charset: charset}

	p := &Payload{}
	var err error

	if p.Revision, err = r.readInt("revision"); err != nil {
		return nil, err
	}
	if p.Options, err = readOptions(r); err != nil {
		return nil, err
	}
	if p.Accounts, err = readAccounts(r); err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}

	return p, nil
}

// EncodeLegacy encodes the payload in the layout of a pre-2 file with the given
// header. A 1.0.0 payload has no room for the revision and options, so they're
// dropped.
func EncodeLegacy(p *Payload, header string, charset Charset) ([]byte, error) {
	w := &fieldWriter{charset: charset}

	if err := w.writeString("header", header); err != nil {
		return nil, err
	}

	switch header {
	case LegacyHeader100:
	case LegacyHeader110:
		if err := w.writeInt("revision", p.Revision); err != nil {
			return nil, err
		}
		if err := writeOptions(w, &p.Options); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(ErrInvalid, "unknown legacy header %q", header)
	}

	if err := writeAccounts(w, p.Accounts); err != nil {
		return nil, err
	}

	return w.buf, nil
}

// DecodeLegacy decodes a pre-2 payload. Those files carry no unencrypted
// version, so the header returned here is the only way to tell a 1.0.0 file
// from a 1.1.0 one. 1.0.0 payloads decode with revision 0 and empty options.
func DecodeLegacy(data []byte, charset Charset) (*Payload, string, error) {
	r := &fieldReader{data: data, charset: charset}

	header, err := r.readString("header")
	if err != nil {
		return nil, "", err
	}

	p := &Payload{}
	switch header {
	case LegacyHeader100:
	case LegacyHeader110:
		if p.Revision, err = r.readInt("revision"); err != nil {
			return nil, "", err
		}
		if p.Options, err = readOptions(r); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", errors.Wrapf(ErrMalformed, "unknown legacy header %q", header)
	}

	if p.Accounts, err = readAccounts(r); err != nil {
		return nil, "", err
	}
	if err := r.done(); err != nil {
		return nil, "", err
	}

	return p, header, nil
}

func writeOptions(w *fieldWriter, o *Options) error {
	if err := w.writeString("remote location", o.RemoteLocation); err != nil {
		return err
	}
	return w.writeString("auth entry", o.AuthEntry)
}

func readOptions(r *fieldReader) (Options, error) {
	var (
		o   Options
		err error
	)
	if o.RemoteLocation, err = r.readString("remote location"); err != nil {
		return Options{}, err
	}
	if o.AuthEntry, err = r.readString("auth entry"); err != nil {
		return Options{}, err
	}
	return o, nil
}

func writeAccounts(w *fieldWriter, accounts []Account) error {
	if err := w.writeInt("account count", len(accounts)); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
		if _, ok := seen[a.Name]; ok {
			return errors.Wrapf(ErrInvalid, "duplicate account name %q", a.Name)
		}
		seen[a.Name] = struct{}{}

		fields := [...]struct{ name, value string }{
			{"account name", a.Name},
			{"user id", a.UserID},
			{"password", a.Password},
			{"url", a.URL},
			{"notes", a.Notes},
		}
		for _, f := range fields {
			if err := w.writeString(f.name, f.value); err != nil {
				return errors.Wrapf(err, "account %q", a.Name)
			}
		}
	}
	return nil
}

func readAccounts(r *fieldReader) ([]Account, error) {
	count, err := r.readInt("account count")
	if err != nil {
		return nil, err
	}

	// Refuse counts the remaining bytes can't possibly hold before allocating
	// anything for them.
	if count > r.remaining()/minAccountSize {
		return nil, errors.Wrapf(ErrMalformed,
			"account count %d doesn't fit in %d bytes", count, r.remaining())
	}

	accounts := make([]Account, 0, count)
	for i := 0; i < count; i++ {
		var a Account
		fields := [...]struct {
			name  string
			value *string
		}{
			{"account name", &a.Name},
			{"user id", &a.UserID},
			{"password", &a.Password},
			{"url", &a.URL},
			{"notes", &a.Notes},
		}
		for _, f := range fields {
			if *f.value, err = r.readString(f.name); err != nil {
				return nil, errors.Wrapf(err, "account %d", i)
			}
		}

		if a.Name == "" {
			return nil, errors.Wrapf(ErrMalformed, "account %d has an empty name", i)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
