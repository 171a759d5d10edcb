package upm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swargo/upm-swing/database"
)

var password = []byte("correct horse battery staple")

var unicodeText = "a®Ďƃɕʶ ̂ΆԃЌԵﬗאر݃ݓޤ‎߅ࡄখஷഖคබໄ၇ꩦႦᄓᎄⷄꬓᏄᑖᣆᚅᛕᜅᜤᝄᝣ‴№⁷✚z"

func sampleAccounts() []database.Account {
	return []database.Account{
		{Name: "example", UserID: "jane", Password: "hunter2", URL: "https://example.com", Notes: "notes"},
		{Name: "empty"},
		{Name: unicodeText, UserID: unicodeText, Password: unicodeText, URL: unicodeText, Notes: unicodeText},
	}
}

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "passwords.upm")
}

// A database holding the sample accounts, saved once under password.
func savedDatabase(t *testing.T) *Database {
	db, err := Create()
	require.NoError(t, err)

	for _, a := range sampleAccounts() {
		require.NoError(t, db.Put(a))
	}
	db.SetOptions(database.Options{RemoteLocation: "http://example.com/upm/", AuthEntry: "example"})

	require.NoError(t, SaveAs(db, tempPath(t), password))
	return db
}

func readFile(t *testing.T, path string) []byte {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// Lists the directory, to check nothing stray is left in it.
func dirNames(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
