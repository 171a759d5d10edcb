// Package transport moves database files to and from the remote location a
// database synchronises with.
package transport

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds each HTTP request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// MaxSize is the largest remote file that will be fetched.
const MaxSize = 64 << 20

// ErrNotFound is returned by Fetch when there's nothing at the location yet.
var ErrNotFound = errors.New("remote file not found")

// ErrUnsupportedScheme is returned for locations no transport can serve.
var ErrUnsupportedScheme = errors.New("unsupported remote location scheme")

// Credentials authenticate requests for a remote file. The zero value means
// no authentication.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) empty() bool {
	return c.Username == "" && c.Password == ""
}

// Transport fetches and uploads whole files.
type Transport interface {
	Fetch(ctx context.Context, location string, creds Credentials) ([]byte, error)
	Upload(ctx context.Context, location string, data []byte, creds Credentials) error
}

// ForURL picks the transport serving the given location: HTTP for http and
// https URLs, File for file URLs and plain paths.
func ForURL(location string, timeout time.Duration) (Transport, error) {
	switch scheme(location) {
	case "http", "https":
		return NewHTTP(timeout), nil
	case "file", "":
		return File{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", location)
	}
}

// Join the file name onto a remote location. A location ending in a slash is a
// directory and gets the name appended; anything else already names a file.
func Join(location, name string) string {
	if !strings.HasSuffix(location, "/") {
		return location
	}

	switch scheme(location) {
	case "http", "https", "file":
		return location + url.PathEscape(name)
	default:
		return filepath.Join(location, name)
	}
}

func scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}

	// a windows drive letter looks like a one letter scheme
	if len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
