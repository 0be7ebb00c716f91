package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aptible/cronman/crontab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCrontab writes a crontab(1) stand-in that keeps the table in a file
// next to it and records the arguments of its last call.
func fakeCrontab(t *testing.T) (string, string) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "spool")
	script := filepath.Join(dir, "crontab")

	content := fmt.Sprintf(`#!/bin/sh
echo "$@" > %[1]s.args
if [ "$1" = "-u" ]; then
	user="$2"
	shift 2
else
	user="tester"
fi
if [ "$1" = "-l" ]; then
	if [ ! -f %[1]s ]; then
		echo "no crontab for $user" >&2
		exit 1
	fi
	cat %[1]s
	exit 0
fi
cp "$1" %[1]s
`, spool)

	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))

	return script, spool
}

func TestUserTargetRoundTrip(t *testing.T) {
	script, spool := fakeCrontab(t)

	s, err := Open("user", WithLogger(newTestLogger()), WithCrontabCommand(script))
	require.NoError(t, err)

	c, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, c.Jobs())

	job, err := crontab.NewJob(crontab.MustParseSchedule("0 7 * * 1-5"), "/usr/bin/alarm", nil, true)
	require.NoError(t, err)
	require.NoError(t, c.AddJob(job))
	require.NoError(t, s.Save(c))

	assert.Equal(t, "0 7 * * 1-5 /usr/bin/alarm\n", readFile(t, spool))

	jobs, err := s.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	c, err = s.Reload()
	require.NoError(t, err)
	assert.Equal(t, "0 7 * * 1-5 /usr/bin/alarm\n", c.Serialize())
	assert.Equal(t, "-l\n", readFile(t, spool+".args"))
}

func TestUserTargetOtherUser(t *testing.T) {
	script, spool := fakeCrontab(t)
	require.NoError(t, os.WriteFile(spool, []byte("0 0 * * * /usr/bin/true\n"), 0o600))

	s, err := Open("user:alice", WithLogger(newTestLogger()), WithCrontabCommand(script))
	require.NoError(t, err)

	jobs, err := s.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "-u alice -l\n", readFile(t, spool+".args"))
}

func TestUserTargetAccessDenied(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "crontab")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"must be privileged to use -u\" >&2\nexit 1\n"), 0o755))

	_, err := Open("user:root", WithLogger(newTestLogger()), WithCrontabCommand(script))

	var accessErr *AccessError
	if assert.True(t, errors.As(err, &accessErr)) {
		assert.Equal(t, "user:root", accessErr.Target)
		assert.Contains(t, err.Error(), "must be privileged")
	}
}

func TestUserTargetSaveFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "crontab")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
if [ "$1" = "-l" ]; then
	echo "0 0 * * * /usr/bin/true"
	exit 0
fi
echo "errors in crontab file, can't install" >&2
exit 1
`), 0o755))

	s, err := Open("user", WithLogger(newTestLogger()), WithCrontabCommand(script))
	require.NoError(t, err)

	c, err := s.Load()
	require.NoError(t, err)

	err = s.Save(c)

	var writeErr *WriteError
	if assert.True(t, errors.As(err, &writeErr)) {
		assert.Contains(t, err.Error(), "can't install")
	}
	assert.Equal(t, Failed, s.State())
}
