package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s",
		e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// HTTP fetches files with GET and uploads them with PUT, using basic auth when
// credentials are given.
type HTTP struct {
	Client *http.Client
}

// NewHTTP returns an HTTP transport whose requests time out after the given
// duration, or DefaultTimeout if it's zero.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTP) Fetch(ctx context.Context, location string, creds Credentials) ([]byte, error) {
	resp, err := t.do(ctx, http.MethodGet, location, nil, creds)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%s", location)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{http.MethodGet, location, resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", location)
	}
	if len(data) > MaxSize {
		return nil, errors.Errorf("%s is larger than %d bytes", location, MaxSize)
	}
	return data, nil
}

func (t *HTTP) Upload(ctx context.Context, location string, data []byte, creds Credentials) error {
	resp, err := t.do(ctx, http.MethodPut, location, data, creds)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{http.MethodPut, location, resp.StatusCode}
	}
	return nil
}

func (t *HTTP) do(ctx context.Context, method, location string, body []byte, creds Credentials) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, location, r)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build request for %s", location)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if !creds.empty() {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, location)
	}
	return resp, nil
}
