package upm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/transport"
)

// SyncResult says which way a sync moved the database.
type SyncResult int

const (
	// Both copies had the same revision.
	SyncUnchanged SyncResult = iota
	// The local file was newer, or the remote didn't exist, and was uploaded.
	SyncUploaded
	// The remote copy was newer and replaced the local file.
	SyncDownloaded
)

func (r SyncResult) String() string {
	switch r {
	case SyncUnchanged:
		return "unchanged"
	case SyncUploaded:
		return "uploaded"
	case SyncDownloaded:
		return "downloaded"
	default:
		return fmt.Sprintf("SyncResult(%d)", int(r))
	}
}

// Sync brings the database file and its remote copy up to date with each
// other, whichever has the higher revision winning. It works on the saved
// file, so unsaved changes should be saved first or they may be replaced.
//
// The remote copy lives at the database's remote location, authenticated
// with the credentials of the account named by its auth entry. When t is nil
// a transport is picked from the location. If the remote copy doesn't open
// with the session's passphrase, prompt is asked for the right one.
func (s *Session) Sync(ctx context.Context, t transport.Transport, prompt PromptFunc) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return SyncUnchanged, ErrClosed
	}
	path := s.db.path
	if path == "" {
		return SyncUnchanged, &Error{Op: "sync", Kind: ErrNoPath, Err: ErrNoPath}
	}

	opts := s.db.options
	if opts.RemoteLocation == "" {
		return SyncUnchanged, &Error{Op: "sync", Path: path, Kind: ErrNoRemote, Err: ErrNoRemote}
	}

	var creds transport.Credentials
	if opts.AuthEntry != "" {
		a, ok := s.db.accounts[opts.AuthEntry]
		if !ok {
			return SyncUnchanged, &Error{Op: "sync", Path: path, Kind: ErrUnknownAuthEntry,
				Err: errors.Errorf("no account named %q", opts.AuthEntry)}
		}
		creds = transport.Credentials{Username: a.UserID, Password: a.Password}
	}

	location := transport.Join(opts.RemoteLocation, filepath.Base(path))
	if t == nil {
		var err error
		if t, err = transport.ForURL(location, 0); err != nil {
			return SyncUnchanged, &Error{Op: "sync", Path: location, Kind: ErrFileAccess, Err: err}
		}
	}

	var result SyncResult
	err := s.whilePaused(func() error {
		var err error
		result, err = s.sync(ctx, t, prompt, path, location, creds)
		return err
	})
	if err != nil {
		return SyncUnchanged, err
	}

	log().Info("synced database", "path", path, "remote", location, "result", result)
	return result, nil
}

func (s *Session) sync(
	ctx context.Context,
	t transport.Transport,
	prompt PromptFunc,
	path, location string,
	creds transport.Credentials,
) (SyncResult, error) {
	remoteData, err := t.Fetch(ctx, location, creds)
	if errors.Is(err, transport.ErrNotFound) {
		return SyncUploaded, s.upload(ctx, t, path, location, creds)
	} else if err != nil {
		return SyncUnchanged, &Error{Op: "sync", Path: location, Kind: ErrFileAccess, Err: err}
	}

	passphrase, err := s.passphrase()
	if err != nil {
		return SyncUnchanged, err
	}
	defer func() { memguard.WipeBytes(passphrase) }()

	reason := "The passphrase doesn't open the remote copy at " + location
	remote, passphrase, err := s.retry(passphrase, prompt, "sync", reason, func(p []byte) (*Database, error) {
		return decode("sync", location, remoteData, p, s.opts)
	})
	if err != nil {
		return SyncUnchanged, err
	}

	local := s.db.revision
	log().Debug("comparing revisions", "local", local, "remote", remote.revision)

	switch {
	case local > remote.revision:
		return SyncUploaded, s.upload(ctx, t, path, location, creds)

	case local < remote.revision:
		if err := writeFileAtomic(path, remoteData, 0600); err != nil {
			return SyncUnchanged, &Error{Op: "sync", Path: path, Kind: ErrFileAccess, Err: err}
		}
		remote.path = path
		s.db = remote
		s.setPassphrase(passphrase)
		s.changed.Store(false)
		return SyncDownloaded, nil

	default:
		return SyncUnchanged, nil
	}
}

func (s *Session) upload(
	ctx context.Context,
	t transport.Transport,
	path, location string,
	creds transport.Credentials,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Op: "sync", Path: path, Kind: ErrFileAccess, Err: err}
	}
	if err := t.Upload(ctx, location, data, creds); err != nil {
		return &Error{Op: "sync", Path: location, Kind: ErrFileAccess, Err: err}
	}
	return nil
}
