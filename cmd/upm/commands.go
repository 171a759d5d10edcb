package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"

	upm "github.com/swargo/upm-swing"
	"github.com/swargo/upm-swing/accountcsv"
	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/transport"
)

// Returned for bad command line arguments.
type usageError string

func (e usageError) Error() string {
	return string(e)
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"new":     cmdNew,
	"list":    cmdList,
	"show":    cmdShow,
	"add":     cmdAdd,
	"delete":  cmdDelete,
	"import":  cmdImport,
	"export":  cmdExport,
	"passwd":  cmdPasswd,
	"options": cmdOptions,
	"sync":    cmdSync,
	"info":    cmdInfo,
	"dump":    cmdDump,
	"watch":   cmdWatch,
}

// Parse a command's flags, requiring exactly the given number of positional
// arguments.
func parseArgs(fs *flag.FlagSet, args []string, positional int) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if fs.NArg() != positional {
		return usageError(fmt.Sprintf("expected %d argument(s), got %d", positional, fs.NArg()))
	}
	return nil
}

// Prompt for a new passphrase twice, failing if the two don't match.
func (a *app) promptNew(label string) ([]byte, error) {
	first, err := a.prompt(label)
	if err != nil {
		return nil, err
	}
	second, err := a.prompt("Confirm " + strings.ToLower(label))
	if err != nil {
		memguard.WipeBytes(first)
		return nil, err
	}
	defer memguard.WipeBytes(second)

	if !bytes.Equal(first, second) {
		memguard.WipeBytes(first)
		return nil, errors.New("passphrases don't match")
	}
	return first, nil
}

// Open the database, asking for its passphrase.
func (a *app) open() (*upm.Session, error) {
	passphrase, err := a.prompt("Passphrase")
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(passphrase)

	charset := upm.WithLegacyCharset(a.cfg.Charset())
	db, err := upm.Load(a.path, passphrase, charset)
	if err != nil {
		return nil, err
	}
	return upm.NewSession(db, passphrase, charset), nil
}

func cmdNew(ctx context.Context, a *app, args []string) error {
	if err := parseArgs(flag.NewFlagSet("new", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	if _, err := os.Stat(a.path); err == nil {
		return errors.Errorf("%s already exists", a.path)
	}

	db, err := upm.Create()
	if err != nil {
		return err
	}

	passphrase, err := a.promptNew("New passphrase")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(passphrase)

	if err := upm.SaveAs(db, a.path, passphrase); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s\n", a.path)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	if err := parseArgs(flag.NewFlagSet("list", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, name := range s.DB().Names() {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	account, ok := s.DB().Account(fs.Arg(0))
	if !ok {
		return errors.Errorf("no account named %q", fs.Arg(0))
	}

	fmt.Fprintf(a.out, "Name:     %s\n", account.Name)
	fmt.Fprintf(a.out, "User ID:  %s\n", account.UserID)
	fmt.Fprintf(a.out, "Password: %s\n", account.Password)
	fmt.Fprintf(a.out, "URL:      %s\n", account.URL)
	fmt.Fprintf(a.out, "Notes:    %s\n", account.Notes)
	return nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var (
		user  = fs.String("user", "", "the account's user id")
		url   = fs.String("url", "", "the account's URL")
		notes = fs.String("notes", "", "free-form notes")
	)
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	password, err := a.prompt("Password for " + fs.Arg(0))
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(password)

	account := database.Account{
		Name:     fs.Arg(0),
		UserID:   *user,
		Password: string(password),
		URL:      *url,
		Notes:    *notes,
	}
	_, existed := s.DB().Account(account.Name)
	if err := s.DB().Put(account); err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}

	verb := "added"
	if existed {
		verb = "replaced"
	}
	fmt.Fprintf(a.out, "%s %s\n", verb, account.Name)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.DB().Delete(fs.Arg(0)) {
		return errors.Errorf("no account named %q", fs.Arg(0))
	}
	if err := s.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", fs.Arg(0))
	return nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	overwrite := fs.Bool("overwrite", false, "replace existing accounts with the same name")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	accounts, err := accountcsv.Unmarshal(f)
	if err != nil {
		return errors.Wrapf(err, "cannot import %s", fs.Arg(0))
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.Import(accounts, *overwrite)
	if err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "added %d, replaced %d, skipped %d\n",
		len(result.Added), len(result.Replaced), len(result.Skipped))
	for _, name := range result.Skipped {
		fmt.Fprintf(a.out, "skipped %s (already exists)\n", name)
	}
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.OpenFile(fs.Arg(0), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	accounts := s.DB().Accounts()
	if err := accountcsv.Marshal(f, accounts); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintf(a.out, "exported %d accounts to %s\n", len(accounts), fs.Arg(0))
	return nil
}

func cmdPasswd(ctx context.Context, a *app, args []string) error {
	if err := parseArgs(flag.NewFlagSet("passwd", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	passphrase, err := a.promptNew("New passphrase")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(passphrase)

	if err := s.ChangePassword(passphrase); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "passphrase changed")
	return nil
}

func cmdOptions(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("options", flag.ContinueOnError)
	var (
		remote = fs.String("remote", "", "the remote location to sync with")
		auth   = fs.String("auth", "", "the account whose credentials authenticate with the remote")
	)
	if err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	opts := s.DB().Options()
	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "remote":
			opts.RemoteLocation = *remote
		case "auth":
			opts.AuthEntry = *auth
		}
		changed = true
	})

	if changed {
		if opts.AuthEntry != "" {
			if _, ok := s.DB().Account(opts.AuthEntry); !ok {
				return errors.Wrapf(upm.ErrUnknownAuthEntry, "%q", opts.AuthEntry)
			}
		}
		s.DB().SetOptions(opts)
		if err := s.Save(); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Remote location: %s\n", opts.RemoteLocation)
	fmt.Fprintf(a.out, "Auth entry:      %s\n", opts.AuthEntry)
	return nil
}

func cmdSync(ctx context.Context, a *app, args []string) error {
	if err := parseArgs(flag.NewFlagSet("sync", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	remote := s.DB().Options().RemoteLocation
	if remote == "" {
		return upm.ErrNoRemote
	}
	t, err := transport.ForURL(remote, a.cfg.Timeout())
	if err != nil {
		return err
	}

	result, err := s.Sync(ctx, t, a.prompt)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sync %s (revision %d)\n", result, s.DB().Revision())
	return nil
}

func cmdInfo(ctx context.Context, a *app, args []string) error {
	if err := parseArgs(flag.NewFlagSet("info", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	info, err := os.Stat(a.path)
	if err != nil {
		return errors.WithStack(err)
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	db := s.DB()
	salt := db.Salt()
	fmt.Fprintf(a.out, "Path:     %s\n", db.Path())
	fmt.Fprintf(a.out, "Format:   %s\n", db.Version())
	fmt.Fprintf(a.out, "Revision: %d\n", db.Revision())
	fmt.Fprintf(a.out, "Accounts: %d\n", db.Len())
	fmt.Fprintf(a.out, "Salt:     %s\n", hex.EncodeToString(salt[:]))
	fmt.Fprintf(a.out, "Modified: %s\n", info.ModTime().UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(a.out, "Remote:   %s\n", db.Options().RemoteLocation)
	return nil
}

// Keep the database open and reload it whenever its file changes, until
// interrupted.
func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	once := fs.Bool("once", false, "exit after the first reload")
	if err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Watch(ctx, a.cfg.Interval()); err != nil {
		return err
	}
	a.logger.Info("watching database", "path", a.path, "interval", a.cfg.Interval())

	ticker := time.NewTicker(a.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.NeedsReload() {
			continue
		}
		if err := s.Reload(a.prompt); err != nil {
			return err
		}

		db := s.DB()
		fmt.Fprintf(a.out, "reloaded revision %d (%d accounts)\n", db.Revision(), db.Len())
		if *once {
			return nil
		}
	}
}
