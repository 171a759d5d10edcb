package format

import (
	"fmt"

	"github.com/swargo/upm-swing/crypt"
)

// The plaintext layouts a payload can have once decrypted.
type payloadLayout int

const (
	// a header string, then (1.1.0 only) revision and options, then accounts
	payloadLegacy payloadLayout = iota
	// revision, options, then accounts
	payloadCurrent
)

// Which charset a version's text fields are in.
type charsetKind int

const (
	// whatever Options.LegacyCharset says
	charsetLegacy charsetKind = iota
	charsetUTF8
)

// A simple box to hold a version and everything needed to read or write a
// container of that version.
type versionRecord struct {
	Version Version

	// the byte following the magic in the header, or 0 for versions that
	// have no magic at all
	Tag byte

	Suite   crypt.Suite
	Header  layout
	Payload payloadLayout
	Charset charsetKind
}

// Holds all the known versions in an immutable manner.
type versionRecords struct {
	// ordered from oldest to newest. the last item in the slice is guaranteed
	// to be the latest version.
	versions []versionRecord

	versionsById  map[Version]*versionRecord
	versionsByTag map[byte]*versionRecord
}

// Versions is the canonical list of container versions.
var Versions versionRecords = newVersionRecords(
	versionRecord100,
	versionRecord110,
	versionRecord2,
	versionRecord3,
)

var (
	// no magic and no version byte, just the salt
	legacyHeader = newLayout(
		field{"salt", crypt.SaltSize},
		field{"ciphertext", 0},
	)

	currentHeader = newLayout(
		field{"magic", len(Magic)},
		field{"version", 1},
		field{"salt", crypt.SaltSize},
		field{"ciphertext", 0},
	)
)

var versionRecord100 = versionRecord{
	Version: Version100,
	Suite:   crypt.SuiteLegacy,
	Header:  legacyHeader,
	Payload: payloadLegacy,
	Charset: charsetLegacy,
}

var versionRecord110 = versionRecord{
	Version: Version110,
	Suite:   crypt.SuiteLegacy,
	Header:  legacyHeader,
	Payload: payloadLegacy,
	Charset: charsetLegacy,
}

var versionRecord2 = versionRecord{
	Version: Version2,
	Tag:     2,
	Suite:   crypt.SuiteLegacy,
	Header:  currentHeader,
	Payload: payloadCurrent,
	Charset: charsetLegacy,
}

var versionRecord3 = versionRecord{
	Version: Version3,
	Tag:     3,
	Suite:   crypt.SuiteCurrent,
	Header:  currentHeader,
	Payload: payloadCurrent,
	Charset: charsetUTF8,
}

func newVersionRecords(records ...versionRecord) versionRecords {
	if len(records) == 0 {
		panic("Must be called with at least one version record")
	}

	versions := make([]versionRecord, len(records))
	versionsById := make(map[Version]*versionRecord)
	versionsByTag := make(map[byte]*versionRecord)

	for i, r := range records {
		if _, ok := versionsById[r.Version]; ok {
			panic(fmt.Sprintf("Can't duplicate versions (duplicated: %s)", r.Version))
		}

		versions[i] = r
		versionsById[r.Version] = &versions[i]

		if r.Tag == 0 {
			continue
		}
		if _, ok := versionsByTag[r.Tag]; ok {
			panic(fmt.Sprintf("Can't duplicate version tags (duplicated: %d)", r.Tag))
		}
		versionsByTag[r.Tag] = &versions[i]
	}

	return versionRecords{
		versions,
		versionsById,
		versionsByTag,
	}
}

// All returns a copy of every version record, oldest first.
func (c *versionRecords) All() []versionRecord {
	records := make([]versionRecord, len(c.versions))
	copy(records, c.versions)
	return records
}

// Latest returns a copy of the newest version's record.
func (c *versionRecords) Latest() versionRecord {
	return c.versions[len(c.versions)-1]
}

// Find returns a copy of the given version's record, or "not ok" if there is
// no such version.
func (c *versionRecords) Find(requested Version) (versionRecord, bool) {
	record, ok := c.versionsById[requested]
	if !ok {
		return versionRecord{}, false
	}

	return *record, true
}

// Finds the version whose header carries the given tag byte.
func (c *versionRecords) findTag(tag byte) (versionRecord, bool) {
	record, ok := c.versionsByTag[tag]
	if !ok {
		return versionRecord{}, false
	}

	return *record, true
}
