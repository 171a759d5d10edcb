// Package database holds the account data model and the codec that turns it
// into the plaintext payload stored inside an encrypted container.
package database

import (
	"github.com/pkg/errors"
)

// Account is a single credential entry. Name is the account's key within a
// database and must not be empty.
type Account struct {
	Name     string
	UserID   string
	Password string
	URL      string
	Notes    string
}

// Validate reports whether the account can be stored.
func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.Wrap(ErrInvalid, "account name must not be empty")
	}
	return nil
}

// Options describes how a database synchronises with a remote copy of itself.
type Options struct {
	// Where the remote copy of the database lives.
	RemoteLocation string

	// The name of the account whose user id and password authenticate requests
	// for the remote copy. Empty means no authentication. Nothing here checks
	// that the account exists; that's up to whoever uses the options.
	AuthEntry string
}

// Payload is everything that gets encrypted: the revision, the options and the
// accounts.
type Payload struct {
	Revision int
	Options  Options

	// Accounts in the order they were stored. Names may repeat in data read
	// from old files, in which case the later account wins.
	Accounts []Account
}
