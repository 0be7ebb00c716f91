package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

const DefaultCrontabCommand = "crontab"

// userBackend goes through crontab(1), which owns the spool directory and
// installs new content atomically.
type userBackend struct {
	user    string
	command string
	logger  *logrus.Entry
}

func (b *userBackend) args(extra ...string) []string {
	args := []string{}
	if b.user != "" {
		args = append(args, "-u", b.user)
	}
	return append(args, extra...)
}

func (b *userBackend) run(args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.Command(b.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debugf("running %s %s", b.command, strings.Join(args, " "))

	err := cmd.Run()

	for _, line := range strings.Split(strings.TrimSpace(stderr.String()), "\n") {
		if line != "" {
			b.logger.WithField("channel", "stderr").Debug(line)
		}
	}

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, &commandError{msg: msg, err: err}
	}

	return stdout.Bytes(), nil
}

type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%v: %s", e.err, e.msg)
}

func (e *commandError) Unwrap() error {
	return e.err
}

func (b *userBackend) check() error {
	_, err := b.read()
	return err
}

func (b *userBackend) read() ([]byte, error) {
	content, err := b.run(b.args("-l")...)
	if err != nil {
		var cmdErr *commandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.msg, "no crontab for") {
			b.logger.Debug("user has no crontab yet, starting empty")
			return nil, nil
		}
		return nil, err
	}
	return content, nil
}

func (b *userBackend) write(content []byte) error {
	tmp, err := os.CreateTemp("", "cronman-*.crontab")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	_, err = b.run(b.args(tmpName)...)
	return err
}
