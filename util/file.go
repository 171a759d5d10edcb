package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// WriteFileAtomic replaces the file at path with data such that readers only
// ever see the old contents or the new ones.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteFileAtomicFunc(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFileAtomicFunc is WriteFileAtomic with the contents written by fn. They
// go to a temporary file in the same directory, which is synced and then
// renamed over the target. If the target exists its permissions are kept,
// otherwise perm is used.
func WriteFileAtomicFunc(path string, perm os.FileMode, fn func(io.Writer) error) error {
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return errors.Wrap(err, "cannot create temporary file")
	}

	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err := fn(f); err != nil {
		return errors.Wrap(err, "cannot write temporary file")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "cannot sync temporary file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "cannot close temporary file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "cannot replace %s", path)
	}
	committed = true

	// Make the rename itself durable. Not every filesystem can sync a
	// directory, and the file is in place either way.
	syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
