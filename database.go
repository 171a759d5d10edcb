// Package upm is a store of named credentials kept in a single file encrypted
// under a master passphrase.
//
// A Database is created empty or loaded from a file, changed in memory, and
// saved back. Files of any historical version can be loaded; they're always
// saved in the latest one.
package upm

import (
	"sort"

	"github.com/swargo/upm-swing/crypt"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/format"
	"github.com/swargo/upm-swing/util"
)

// Database is the in-memory form of a credential file. It isn't safe for
// concurrent use.
type Database struct {
	accounts map[string]database.Account
	options  database.Options

	// bumped by one for every successful save
	revision int

	// generated once when the database is created and kept from then on
	salt crypt.Salt

	// empty until the database is first saved
	path string

	// the version the database was read as
	version format.Version
}

func newDatabase(salt crypt.Salt) *Database {
	return &Database{
		accounts: make(map[string]database.Account),
		salt:     salt,
		version:  format.Latest,
	}
}

// Build a database from a decoded container. Repeated names keep the later
// account.
func fromDecoded(d *format.Decoded, path string) *Database {
	db := newDatabase(d.Salt)
	db.options = d.Payload.Options
	db.revision = d.Payload.Revision
	db.path = path
	db.version = d.Version

	for _, a := range d.Payload.Accounts {
		db.accounts[a.Name] = a
	}
	return db
}

// The payload to encode for the database in its current state.
func (db *Database) payload() *database.Payload {
	return &database.Payload{
		Revision: db.revision,
		Options:  db.options,
		Accounts: db.Accounts(),
	}
}

// Accounts returns every account, sorted by name.
func (db *Database) Accounts() []database.Account {
	accounts := make([]database.Account, 0, len(db.accounts))
	for _, a := range db.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return accounts
}

// Account returns the account with the given name, if there is one.
func (db *Database) Account(name string) (database.Account, bool) {
	a, ok := db.accounts[name]
	return a, ok
}

// Names returns the name of every account, sorted.
func (db *Database) Names() []string {
	names := util.NewSortedSet()
	for name := range db.accounts {
		names.Add(name)
	}
	return names.Values()
}

// Len returns the number of accounts.
func (db *Database) Len() int {
	return len(db.accounts)
}

func (db *Database) Options() database.Options {
	return db.options
}

func (db *Database) Revision() int {
	return db.revision
}

// Path returns the file backing the database, or "" if it was never saved.
func (db *Database) Path() string {
	return db.path
}

// Version returns the container version the database was loaded from. Once
// saved, that's always the latest version.
func (db *Database) Version() format.Version {
	return db.version
}

func (db *Database) Salt() crypt.Salt {
	return db.salt
}

// Put adds the account, replacing any existing account with the same name.
func (db *Database) Put(a database.Account) error {
	if a.Name == "" {
		return ErrEmptyName
	}
	db.accounts[a.Name] = a
	return nil
}

// Delete removes the named account, reporting whether it existed.
func (db *Database) Delete(name string) bool {
	if _, ok := db.accounts[name]; !ok {
		return false
	}
	delete(db.accounts, name)
	return true
}

func (db *Database) SetOptions(o database.Options) {
	db.options = o
}

// ImportResult lists what an import did with each account, by name.
type ImportResult struct {
	Added    []string
	Replaced []string

	// existing accounts left alone because overwriting wasn't allowed
	Skipped []string
}

// Import adds the given accounts. Accounts whose name already exists replace
// the existing one only when overwrite is set. A name repeated in accounts is
// imported once, with its last account, and reported once. Nothing is
// imported if any account has an empty name.
func (db *Database) Import(accounts []database.Account, overwrite bool) (ImportResult, error) {
	unique := make([]database.Account, 0, len(accounts))
	index := make(map[string]int, len(accounts))
	for _, a := range accounts {
		if a.Name == "" {
			return ImportResult{}, ErrEmptyName
		}
		if i, ok := index[a.Name]; ok {
			unique[i] = a
			continue
		}
		index[a.Name] = len(unique)
		unique = append(unique, a)
	}

	var result ImportResult
	for _, a := range unique {
		_, exists := db.accounts[a.Name]
		switch {
		case !exists:
			result.Added = append(result.Added, a.Name)
		case overwrite:
			result.Replaced = append(result.Replaced, a.Name)
		default:
			result.Skipped = append(result.Skipped, a.Name)
			continue
		}
		db.accounts[a.Name] = a
	}
	return result, nil
}
