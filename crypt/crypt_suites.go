package crypt

import (
	"fmt"
)

// Suite identifies a key derivation function paired with a block cipher.
type Suite int32

const (
	// SuiteLegacy is PBKDF1-MD5 with DES-CBC, used by formats before 3.
	SuiteLegacy Suite = iota
	// SuiteCurrent is scrypt with AES-256-CBC, used by format 3.
	SuiteCurrent
)

func (s Suite) String() string {
	switch s {
	case SuiteLegacy:
		return "pbkdf1-md5/des-cbc"
	case SuiteCurrent:
		return "scrypt/aes-256-cbc"
	default:
		return fmt.Sprintf("suite(%d)", int32(s))
	}
}

// A simple box to hold the suite identifier and the functions that implement
// it.
type cryptSuiteRecord struct {
	Suite   Suite
	Derive  func(passphrase []byte, salt Salt) (*Key, error)
	Encrypt func(key *Key, plaintext []byte) ([]byte, error)
	Decrypt func(key *Key, ciphertext []byte) ([]byte, error)
}

// Holds all the available suites in an immutable manner, to prevent any
// modification of the canonical list.
type cryptSuites struct {
	// An ordered list of suites, from oldest to newest. The last item in the
	// slice is guaranteed to be the latest suite.
	suites []cryptSuiteRecord

	// A map of suite to record pointer, to speed lookup.
	suitesById map[Suite]*cryptSuiteRecord
}

// Suites is the canonical list of available suites, as defined by their
// respective files.
// NOTE: We maintain this _here and only here_ so the list stays immutable for
// all intents and purposes.
var Suites cryptSuites = newCryptSuites(
	cryptSuiteRecordLegacy,
	cryptSuiteRecordCurrent,
)

// Given a bunch of suites, builds the internal list and populates the lookup
// map.
func newCryptSuites(records ...cryptSuiteRecord) cryptSuites {
	if len(records) == 0 {
		panic("Must be called with at least one suite record")
	}

	suites := make([]cryptSuiteRecord, len(records))
	suitesById := make(map[Suite]*cryptSuiteRecord)

	for i, r := range records {
		if _, ok := suitesById[r.Suite]; ok {
			panic(fmt.Sprintf("Can't duplicate suites (duplicated: %d)", r.Suite))
		}

		suites[i] = r
		suitesById[r.Suite] = &suites[i]
	}

	return cryptSuites{
		suites,
		suitesById,
	}
}

// Returns a copy of all the internal suite records.
func (c *cryptSuites) All() []cryptSuiteRecord {
	records := make([]cryptSuiteRecord, len(c.suites))
	copy(records, c.suites)
	return records
}

// Get a copy of the latest suite's record.
func (c *cryptSuites) Latest() cryptSuiteRecord {
	return c.suites[len(c.suites)-1]
}

// Get a copy of the given suite's record, returning "not ok" if no record
// exists for it.
func (c *cryptSuites) Find(requested Suite) (cryptSuiteRecord, bool) {
	record, ok := c.suitesById[requested]
	if !ok {
		return cryptSuiteRecord{}, false
	}

	return *record, true
}
