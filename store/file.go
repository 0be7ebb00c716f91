package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const defaultFileMode os.FileMode = 0o644

// Swapped out by tests to simulate a failing rename.
var rename = os.Rename

type fileBackend struct {
	path   string
	logger *logrus.Entry
}

func newFileBackend(path string, logger *logrus.Entry) *fileBackend {
	// Replace the file a symlink points to, not the link.
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return &fileBackend{path: path, logger: logger}
}

func (b *fileBackend) check() error {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		dir := filepath.Dir(b.path)
		if _, statErr := os.Stat(dir); statErr != nil {
			return statErr
		}
		return nil
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func (b *fileBackend) read() ([]byte, error) {
	content, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Debug("crontab file does not exist yet, starting empty")
		return nil, nil
	}
	return content, err
}

// write replaces the file through a temporary file in the same directory
// and a rename, so readers see either the old or the new crontab.
func (b *fileBackend) write(content []byte) error {
	dir := filepath.Dir(b.path)

	mode := defaultFileMode
	if info, err := os.Stat(b.path); err == nil {
		mode = info.Mode().Perm()

		// The rename below only needs a writable directory; refuse to
		// replace a file we could not have written in place.
		f, err := os.OpenFile(b.path, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		f.Close()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warnf("failed to remove temporary file %s: %v", tmpName, err)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	committed = true

	b.logger.Debugf("wrote %d bytes to %s", len(content), b.path)

	return nil
}
