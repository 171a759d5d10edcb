package upm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"

	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/watch"
)

// PromptFunc asks the user for a passphrase. The reason says what it's for.
// Returning an error, typically ErrPromptCanceled, gives up on the operation.
type PromptFunc func(reason string) ([]byte, error)

// Session is an open database along with its passphrase, kept encrypted in
// memory, and an optional watcher noticing changes to its file. Its methods
// are safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	db   *Database
	pass *memguard.Enclave
	opts []LoadOption

	monitor *watch.Monitor
	changed atomic.Bool
	closed  bool
}

// NewSession opens a session on the database. The passphrase is copied, so the
// caller is free to wipe it.
func NewSession(db *Database, passphrase []byte, opts ...LoadOption) *Session {
	s := &Session{db: db, opts: opts}
	s.setPassphrase(passphrase)
	return s
}

// An enclave can't hold an empty value, so an empty passphrase is nil.
func (s *Session) setPassphrase(passphrase []byte) {
	if len(passphrase) == 0 {
		s.pass = nil
		return
	}
	buf := make([]byte, len(passphrase))
	copy(buf, passphrase)
	s.pass = memguard.NewEnclave(buf)
}

// A copy of the passphrase, which the caller must wipe.
func (s *Session) passphrase() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.pass == nil {
		return []byte{}, nil
	}

	lb, err := s.pass.Open()
	if err != nil {
		return nil, errors.Wrap(err, "cannot open passphrase enclave")
	}
	defer lb.Destroy()

	passphrase := make([]byte, lb.Size())
	copy(passphrase, lb.Bytes())
	return passphrase, nil
}

// DB returns the open database. A reload replaces it, so don't hold on to it.
func (s *Session) DB() *Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Watch starts checking the database file for changes every interval, until
// ctx is done or the session is closed.
func (s *Session) Watch(ctx context.Context, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.db.path == "" {
		return &Error{Op: "watch", Kind: ErrNoPath, Err: ErrNoPath}
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}

	path := s.db.path
	m, err := watch.New(path, interval, func() {
		log().Debug("database file changed", "path", path)
		s.changed.Store(true)
	})
	if err != nil {
		return errors.Wrap(err, "cannot watch database file")
	}
	s.monitor = m
	s.monitor.Start(ctx)
	return nil
}

// NeedsReload reports whether the file changed since it was last loaded or
// saved by this session.
func (s *Session) NeedsReload() bool {
	return s.changed.Load()
}

// Reload replaces the database with the contents of its file. When the cached
// passphrase doesn't open the file, prompt is asked for another until one
// works or it gives up. The session only changes once the reload succeeds.
func (s *Session) Reload(prompt PromptFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.path == "" {
		return &Error{Op: "reload", Kind: ErrNoPath, Err: ErrNoPath}
	}

	passphrase, err := s.passphrase()
	if err != nil {
		return err
	}
	defer func() { memguard.WipeBytes(passphrase) }()

	path := s.db.path
	reason := "The passphrase doesn't open " + path + " any more"
	db, passphrase, err := s.retry(passphrase, prompt, "reload", reason, func(p []byte) (*Database, error) {
		return Load(path, p, s.opts...)
	})
	if err != nil {
		return err
	}

	s.db = db
	s.setPassphrase(passphrase)
	s.changed.Store(false)
	return nil
}

// Run open with the passphrase, asking prompt for another one as long as the
// failure could be a wrong passphrase. Returns the passphrase that worked,
// having wiped the ones that didn't.
func (s *Session) retry(
	passphrase []byte,
	prompt PromptFunc,
	op, reason string,
	open func([]byte) (*Database, error),
) (*Database, []byte, error) {
	for {
		db, err := open(passphrase)
		if err == nil {
			return db, passphrase, nil
		}
		if prompt == nil || !errors.Is(err, ErrCorruptOrWrongPassword) {
			return nil, passphrase, err
		}

		log().Debug("passphrase rejected, prompting", "op", op)
		next, perr := prompt(reason)
		if perr != nil {
			return nil, passphrase, &Error{Op: op, Path: s.db.path, Kind: ErrPromptCanceled, Err: perr}
		}
		memguard.WipeBytes(passphrase)
		passphrase = next
	}
}

// Save writes the database to its file under the session's passphrase.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	passphrase, err := s.passphrase()
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(passphrase)

	return s.whilePaused(func() error {
		return Save(s.db, passphrase)
	})
}

// ChangePassword saves the database under a new passphrase, which the session
// uses from then on.
func (s *Session) ChangePassword(newPassphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	passphrase, err := s.passphrase()
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(passphrase)

	err = s.whilePaused(func() error {
		return ChangePassword(s.db, passphrase, newPassphrase, s.opts...)
	})
	if err != nil {
		return err
	}

	s.setPassphrase(newPassphrase)
	return nil
}

// Import accounts into the database without saving.
func (s *Session) Import(accounts []database.Account, overwrite bool) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ImportResult{}, ErrClosed
	}
	return s.db.Import(accounts, overwrite)
}

// Run fn, which rewrites the database file, without the watcher taking it for
// somebody else's change.
func (s *Session) whilePaused(fn func() error) error {
	if s.monitor == nil {
		return fn()
	}

	s.monitor.Pause()
	defer s.monitor.Resume()
	return fn()
}

// Close stops watching and forgets the passphrase.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
	s.pass = nil
	s.closed = true
}
