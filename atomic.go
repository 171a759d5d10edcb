package upm

import (
	"io"
	"os"

	"github.com/swargo/upm-swing/util"
)

// Writes the contents of the temporary file. Tests swap it out to simulate a
// write that dies partway.
var writeTemp = func(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// Replace the database file at path without readers ever seeing a partly
// written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	return util.WriteFileAtomicFunc(path, perm, func(w io.Writer) error {
		return writeTemp(w, data)
	})
}
