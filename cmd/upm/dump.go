package main

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	upm "github.com/swargo/upm-swing"
	"github.com/swargo/upm-swing/util"
)

type dumpAccount struct {
	Name     string `codec:"name"`
	UserID   string `codec:"user_id"`
	Password string `codec:"password"`
	URL      string `codec:"url"`
	Notes    string `codec:"notes"`
}

// The decrypted database as written by the dump command.
type dumpDatabase struct {
	Path           string         `codec:"path"`
	Format         string         `codec:"format"`
	Revision       int            `codec:"revision"`
	Modified       util.Timestamp `codec:"modified"`
	RemoteLocation string         `codec:"remote_location"`
	AuthEntry      string         `codec:"auth_entry"`
	Accounts       []dumpAccount  `codec:"accounts"`
}

func newDump(db *upm.Database, modified util.Timestamp) *dumpDatabase {
	d := &dumpDatabase{
		Path:           db.Path(),
		Format:         db.Version().String(),
		Revision:       db.Revision(),
		Modified:       modified,
		RemoteLocation: db.Options().RemoteLocation,
		AuthEntry:      db.Options().AuthEntry,
		Accounts:       []dumpAccount{},
	}
	for _, a := range db.Accounts() {
		d.Accounts = append(d.Accounts, dumpAccount(a))
	}
	return d
}

func cmdDump(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.String("format", "json", "json or msgpack")
	if err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	var h codec.Handle
	switch *format {
	case "json":
		jh := &codec.JsonHandle{}
		jh.Indent = 2
		h = jh
	case "msgpack":
		h = &codec.MsgpackHandle{}
	default:
		return usageError("unknown format " + *format)
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

	d := newDump(s.DB(), util.Timestamp{Time: info.ModTime()})
	if err := codec.NewEncoder(a.out, h).Encode(d); err != nil {
		return errors.Wrap(err, "cannot encode database")
	}
	if *format == "json" {
		_, err = a.out.Write([]byte("\n"))
	}
	return errors.WithStack(err)
}
