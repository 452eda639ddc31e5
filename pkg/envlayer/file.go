package envlayer

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
)

// ReadFileWithRetry reads a file, retrying MaxFileOperationRetryCount times
// with linear backoff (sleep i+1 seconds between attempts), matching the
// handshake-file read contract in spec §4.5.4.
func ReadFileWithRetry(path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < constants.MaxFileOperationRetryCount; attempt++ {
		b, err := os.ReadFile(path)
		if err == nil {
			return b, nil
		}
		lastErr = err
		if os.IsNotExist(err) {
			return nil, err
		}
		logrus.WithError(err).WithField("path", path).Debug("retrying file read")
		Sleep(time.Duration(attempt+1) * time.Second)
	}
	return nil, errors.Wrapf(lastErr, "failed to read %q after %d attempts", path, constants.MaxFileOperationRetryCount)
}

// WriteFileAtomicWithRetry writes data to path via a temp file in the same
// directory followed by rename, retrying on failure with linear backoff.
// If path exists as a directory it is removed first and rewritten, per
// spec §4.5.4 ("tolerant of the target path being a directory").
func WriteFileAtomicWithRetry(path string, data []byte, perm os.FileMode) error {
	var lastErr error
	for attempt := 0; attempt < constants.MaxFileOperationRetryCount; attempt++ {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				lastErr = rmErr
				Sleep(time.Duration(attempt+1) * time.Second)
				continue
			}
		}

		if err := writeAtomic(path, data, perm); err != nil {
			lastErr = err
			logrus.WithError(err).WithField("path", path).Debug("retrying file write")
			Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}
		return nil
	}
	return errors.Wrapf(lastErr, "failed to write %q after %d attempts", path, constants.MaxFileOperationRetryCount)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename temp file into place")
	}
	return nil
}

// FileExists reports whether path exists (any type).
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DeleteMatching removes files in dir matching the given glob pattern (e.g.
// "*.list"), used for the Engine's temp-folder housekeeping (spec §4.8 step 2).
func DeleteMatching(dir, pattern string) error {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return errors.Wrapf(err, "glob %q in %q", pattern, dir)
	}
	var firstErr error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
