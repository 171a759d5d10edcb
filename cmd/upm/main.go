// Command upm manages an encrypted credential database from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/howeyc/gopass"
	"github.com/pkg/errors"

	upm "github.com/swargo/upm-swing"
	"github.com/swargo/upm-swing/config"
	"github.com/swargo/upm-swing/logging"
)

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, "Upm is a command line tool to manage an encrypted credential database.\n\n")
	fmt.Fprint(w, "Usage:\n\n\tupm [-config FILE] [-db FILE] COMMAND [ARGS...]\n\n")
	fmt.Fprint(w, `The commands are:

new                     create a new, empty database
list                    list the names of all accounts
show NAME               print an account
add [-user USER] [-url URL] [-notes NOTES] NAME
                        add or replace an account, prompting for its password
delete NAME             remove an account
import [-overwrite] FILE
                        add the accounts in a CSV file. Existing accounts are
                        only replaced with -overwrite.
export FILE             write every account to a CSV file, unencrypted
passwd                  change the master passphrase
options [-remote URL] [-auth NAME]
                        print or change the remote sync options
sync                    synchronise with the remote copy of the database
info                    print details about the database file
dump [-format json|msgpack]
                        print the decrypted database
watch [-once]           reload the database whenever its file changes

The global flags are:`)
	fmt.Fprint(w, "\n\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, terminalPrompt)
	stop()

	// wipe any protected memory before exiting
	memguard.Purge()
	os.Exit(code)
}

// Reads a passphrase without echoing it.
func terminalPrompt(label string) ([]byte, error) {
	passphrase, err := gopass.GetPasswdPrompt(label+": ", true, os.Stdin, os.Stderr)
	if errors.Is(err, gopass.ErrInterrupted) {
		return nil, upm.ErrPromptCanceled
	}
	return passphrase, err
}

// Runs the command line and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, prompt upm.PromptFunc) int {
	fs := flag.NewFlagSet("upm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath = fs.String("config", "", "the config file (default: the user config directory)")
		dbPath     = fs.String("db", "", "the database file, overriding the config")
	)

	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "upm:", err)
		}
		usage(stderr, fs)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "upm:", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "upm:", err)
		return 1
	}
	upm.SetLogger(logger)

	a := &app{
		cfg:    cfg,
		path:   cfg.Database,
		out:    stdout,
		prompt: prompt,
		logger: logger,
	}
	if *dbPath != "" {
		a.path = *dbPath
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "upm: unknown command %q\n\n", name)
		usage(stderr, fs)
		return 2
	}

	if a.path == "" {
		fmt.Fprintln(stderr, "upm: no database given; use -db or set database in the config")
		return 2
	}

	if err := cmd(ctx, a, cmdArgs); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "upm %s: %s\n", name, usageErr)
			return 2
		}
		logger.Debug("command failed", "command", name, "err", err)
		// errors from the upm package already carry the prefix
		msg := err.Error()
		if !strings.HasPrefix(msg, "upm: ") {
			msg = "upm: " + msg
		}
		fmt.Fprintln(stderr, msg)
		return 1
	}
	return 0
}

// The explicit config file must exist; the default one is optional.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	path, err := config.DefaultPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return config.Load(path)
		}
	}
	return config.Load("")
}

// What every command runs with.
type app struct {
	cfg    *config.Config
	path   string
	out    io.Writer
	prompt upm.PromptFunc
	logger *slog.Logger
}
