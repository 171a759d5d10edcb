package transport

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/util"
)

// File serves remote locations that are really paths on a mounted filesystem.
// Credentials are ignored.
type File struct{}

func (File) Fetch(ctx context.Context, location string, _ Credentials) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := filePath(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "%s", path)
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// Upload replaces the file by renaming a fully written and synced copy over it.
func (File) Upload(ctx context.Context, location string, data []byte, _ Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := filePath(location)
	if err != nil {
		return err
	}

	return util.WriteFileAtomic(path, data, 0600)
}

func filePath(location string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(location), "file:") {
		return location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", errors.Wrapf(err, "bad file location %q", location)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", errors.Errorf("file location %q names a remote host", location)
	}
	return filepath.FromSlash(u.Path), nil
}
