package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugorji/go/codec"

	upm "github.com/swargo/upm-swing"
	"github.com/swargo/upm-swing/config"
)

// Runs the tool against a database in a temporary directory, answering
// prompts from a script.
type harness struct {
	t       *testing.T
	dir     string
	db      string
	config  string
	answers []string
}

func newHarness(t *testing.T) *harness {
	for _, name := range []string{config.EnvDatabase, config.EnvLegacyCharset, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	h := &harness{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "passwords.upm"),
		config: filepath.Join(dir, "config.json"),
	}
	require.NoError(t, os.WriteFile(h.config, []byte(`{"log_level": "error"}`), 0600))
	return h
}

func (h *harness) prompt(string) ([]byte, error) {
	if len(h.answers) == 0 {
		return nil, upm.ErrPromptCanceled
	}
	answer := h.answers[0]
	h.answers = h.answers[1:]
	return []byte(answer), nil
}

// Run a command with the given prompt answers, returning its exit status and
// output.
func (h *harness) run(answers []string, args ...string) (int, string, string) {
	h.answers = answers
	var stdout, stderr bytes.Buffer
	args = append([]string{"-config", h.config, "-db", h.db}, args...)
	code := run(context.Background(), args, &stdout, &stderr, h.prompt)
	return code, stdout.String(), stderr.String()
}

func (h *harness) mustRun(answers []string, args ...string) string {
	code, stdout, stderr := h.run(answers, args...)
	require.Equal(h.t, 0, code, "%v: %s", args, stderr)
	return stdout
}

var pass = []string{"master"}

func TestNewListAddShow(t *testing.T) {
	h := newHarness(t)

	h.mustRun([]string{"master", "master"}, "new")
	assert.Equal(t, "", h.mustRun(pass, "list"))

	out := h.mustRun([]string{"master", "hunter2"}, "add", "-user", "jane", "-url", "https://example.com", "example")
	assert.Equal(t, "added example\n", out)

	out = h.mustRun([]string{"master", "hunter3"}, "add", "example")
	assert.Equal(t, "replaced example\n", out)

	h.mustRun([]string{"master", "x"}, "add", "another")
	assert.Equal(t, "another\nexample\n", h.mustRun(pass, "list"))

	out = h.mustRun(pass, "show", "example")
	assert.Contains(t, out, "Password: hunter3")
	assert.NotContains(t, out, "jane")

	db, err := upm.Load(h.db, []byte("master"))
	require.NoError(t, err)
	assert.Equal(t, 4, db.Revision())
}

func TestNewMismatchedPassphrases(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run([]string{"one", "two"}, "new")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "don't match")

	_, err := os.Stat(h.db)
	assert.True(t, os.IsNotExist(err))
}

func TestNewRefusesToOverwrite(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	code, _, stderr := h.run([]string{"other", "other"}, "new")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")
}

func TestWrongPassphrase(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	code, _, stderr := h.run([]string{"nope"}, "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "wrong passphrase or corrupt database")
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")
	h.mustRun([]string{"master", "pw"}, "add", "gone")

	assert.Equal(t, "deleted gone\n", h.mustRun(pass, "delete", "gone"))

	code, _, stderr := h.run(pass, "delete", "gone")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `no account named "gone"`)
}

func TestImportAndExport(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")
	h.mustRun([]string{"master", "old"}, "add", "site")

	csvPath := filepath.Join(h.dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("site,u,new,,\nfresh,u,p,http://x,notes\n"), 0600))

	out := h.mustRun(pass, "import", csvPath)
	assert.Contains(t, out, "added 1, replaced 0, skipped 1")

	out = h.mustRun(pass, "import", "-overwrite", csvPath)
	assert.Contains(t, out, "added 0, replaced 2, skipped 0")

	exported := filepath.Join(h.dir, "out.csv")
	h.mustRun(pass, "export", exported)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, "fresh,u,p,http://x,notes\nsite,u,new,,\n", string(data))
}

func TestImportBadRowShape(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	csvPath := filepath.Join(h.dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b,c,d,e\na,b,c,d\n"), 0600))

	code, _, stderr := h.run(pass, "import", csvPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "row 2 has 4 columns")
}

func TestPasswd(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	h.mustRun([]string{"master", "changed", "changed"}, "passwd")

	_, err := upm.Load(h.db, []byte("changed"))
	assert.NoError(t, err)
}

func TestOptions(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	code, _, stderr := h.run(pass, "options", "-auth", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "auth entry")

	h.mustRun([]string{"master", "pw"}, "add", "-user", "sync", "remote")
	out := h.mustRun(pass, "options", "-remote", h.dir+"/remote/", "-auth", "remote")
	assert.Contains(t, out, "Auth entry:      remote")

	out = h.mustRun(pass, "options")
	assert.Contains(t, out, "Remote location: "+h.dir+"/remote/")
}

func TestSync(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	code, _, stderr := h.run(pass, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no remote location")

	remote := filepath.Join(h.dir, "remote")
	require.NoError(t, os.Mkdir(remote, 0700))
	h.mustRun(pass, "options", "-remote", remote+"/")

	out := h.mustRun(pass, "sync")
	assert.Contains(t, out, "sync uploaded")

	out = h.mustRun(pass, "sync")
	assert.Contains(t, out, "sync unchanged")

	_, err := upm.Load(filepath.Join(remote, "passwords.upm"), []byte("master"))
	assert.NoError(t, err)
}

func TestInfo(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")

	out := h.mustRun(pass, "info")
	assert.Contains(t, out, "Format:   3")
	assert.Contains(t, out, "Revision: 1")
	assert.Contains(t, out, "Accounts: 0")
}

func TestDump(t *testing.T) {
	h := newHarness(t)
	h.mustRun([]string{"master", "master"}, "new")
	h.mustRun([]string{"master", "pw"}, "add", "-notes", "some notes", "site")

	out := h.mustRun(pass, "dump")

	var (
		d  dumpDatabase
		jh codec.JsonHandle
	)
	require.NoError(t, codec.NewDecoderBytes([]byte(out), &jh).Decode(&d))
	assert.Equal(t, "3", d.Format)
	assert.Equal(t, 2, d.Revision)
	assert.False(t, d.Modified.IsZero())
	require.Len(t, d.Accounts, 1)
	assert.Equal(t, dumpAccount{Name: "site", Password: "pw", Notes: "some notes"}, d.Accounts[0])

	out = h.mustRun(pass, "dump", "-format", "msgpack")
	var mh codec.MsgpackHandle
	var fromMsgpack dumpDatabase
	require.NoError(t, codec.NewDecoderBytes([]byte(out), &mh).Decode(&fromMsgpack))
	assert.Equal(t, d.Accounts, fromMsgpack.Accounts)
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(nil, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, stderr = h.run(nil, "show")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "expected 1 argument(s), got 0")

	code, _, stderr = h.run(nil, "dump", "-format", "xml")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown format xml")

	var stdout, errOut bytes.Buffer
	code = run(context.Background(), []string{"-config", h.config}, &stdout, &errOut, h.prompt)
	assert.Equal(t, 2, code)
	assert.True(t, strings.HasPrefix(errOut.String(), "Upm is a command line tool"))
}

func TestMissingDatabasePath(t *testing.T) {
	h := newHarness(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", h.config, "list"}, &stdout, &stderr, h.prompt)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "no database given")
}

func TestWatchReloadsOnChange(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config,
		[]byte(`{"log_level": "error", "watch_interval": "10ms"}`), 0600))
	h.mustRun([]string{"master", "master"}, "new")

	type result struct {
		code           int
		stdout, stderr string
	}
	done := make(chan result, 1)
	go func() {
		code, stdout, stderr := h.run(pass, "watch", "-once")
		done <- result{code, stdout, stderr}
	}()

	// keep changing the file until the watcher has picked up a change, since
	// it only starts once the passphrase has been read
	db, err := upm.Load(h.db, []byte("master"))
	require.NoError(t, err)

	timeout := time.After(10 * time.Second)
	for {
		require.NoError(t, upm.Save(db, []byte("master")))

		select {
		case r := <-done:
			require.Equal(t, 0, r.code, r.stderr)
			assert.Contains(t, r.stdout, "reloaded revision")
			return
		case <-timeout:
			t.Fatal("watch never reloaded")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
