// Package accountcsv converts accounts to and from unencrypted CSV, one row per
// account with the columns name, user id, password, url and notes. There is
// no header row.
package accountcsv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/database"
)

// Columns is the number of fields in every row.
const Columns = 5

// ErrRowShape matches any *RowShapeError.
var ErrRowShape = errors.New("row doesn't have exactly 5 columns")

// RowShapeError is returned when a row has the wrong number of columns.
type RowShapeError struct {
	// the 1-based line of the file the row starts on
	Row     int
	Columns int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row %d has %d columns, expected %d", e.Row, e.Columns, Columns)
}

func (e *RowShapeError) Is(target error) bool {
	return target == ErrRowShape
}

// Marshal writes one row per account.
func Marshal(w io.Writer, accounts []database.Account) error {
	cw := csv.NewWriter(w)
	for _, a := range accounts {
		if err := cw.Write([]string{a.Name, a.UserID, a.Password, a.URL, a.Notes}); err != nil {
			return errors.Wrapf(err, "cannot write account %q", a.Name)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "cannot write accounts")
}

// Unmarshal reads every row as an account. Any row without exactly five
// columns fails the whole read with a *RowShapeError.
func Unmarshal(r io.Reader) ([]database.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var accounts []database.Account
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return accounts, nil
		}
		if err != nil {
			// a *csv.ParseError already says which line
			return nil, errors.Wrap(err, "cannot read accounts")
		}

		// blank lines are skipped and quoted fields may span lines, so
		// counting records wouldn't give the line
		if len(record) != Columns {
			line, _ := cr.FieldPos(0)
			return nil, &RowShapeError{Row: line, Columns: len(record)}
		}
		accounts = append(accounts, database.Account{
			Name:     record[0],
			UserID:   record[1],
			Password: record[2],
			URL:      record[3],
			Notes:    record[4],
		})
	}
}
