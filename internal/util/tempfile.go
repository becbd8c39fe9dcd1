package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempDir wraps a created temporary directory with an explicit Cleanup,
// mirroring the scoped-resource pattern used for split/encode/fpf
// subdirectories under the run's persistent-state root.
type TempDir struct {
	path string
}

// Path returns the directory's filesystem path.
func (t *TempDir) Path() string { return t.path }

// Cleanup removes the directory and everything under it.
func (t *TempDir) Cleanup() error { return os.RemoveAll(t.path) }

// CreateTempDir creates a uniquely-named directory under baseDir with the
// given prefix.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	suffix, err := generateRandomString(8)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(baseDir, prefix+"_"+suffix)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &TempDir{path: path}, nil
}

// TempFile wraps a created temporary file with an explicit Cleanup.
type TempFile struct {
	path string
}

// Path returns the file's filesystem path.
func (f *TempFile) Path() string { return f.path }

// Cleanup removes the file.
func (f *TempFile) Cleanup() error { return os.Remove(f.path) }

// CreateTempFile creates and opens (then closes) a uniquely-named file
// under baseDir with the given prefix and extension.
func CreateTempFile(baseDir, prefix, ext string) (*TempFile, error) {
	path, err := CreateTempFilePath(baseDir, prefix, ext)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &TempFile{path: path}, nil
}

// CreateTempFilePath returns a unique path under baseDir without creating
// the file, used where a child process (not this process) will write it,
// e.g. an encoder's first-pass stats file.
func CreateTempFilePath(baseDir, prefix, ext string) (string, error) {
	suffix, err := generateRandomString(8)
	if err != nil {
		return "", err
	}
	name := prefix + "_" + suffix
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(baseDir, name), nil
}

// EnsureDirectoryWritable verifies path exists, is a directory, and accepts
// a probe file write.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	probe := filepath.Join(path, ".splitreel-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return nil
}

// CleanupStaleTempFiles removes files under dir whose name starts with
// prefix and whose age exceeds maxAge, returning the count removed.
func CleanupStaleTempFiles(dir, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) || maxAge == 0 {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				count++
			}
		}
	}
	return count, nil
}

// GetAvailableSpace returns free bytes on the filesystem holding path, or 0
// if it cannot be determined.
func GetAvailableSpace(path string) uint64 {
	return availableSpace(path)
}

// CheckDiskSpace logs a warning (via the supplied logger, if non-nil) when
// free space on path's filesystem looks low. Returns the free byte count.
func CheckDiskSpace(path string, logf func(format string, args ...any)) uint64 {
	const lowSpaceThreshold = 5 * GiB
	free := GetAvailableSpace(path)
	if free > 0 && free < lowSpaceThreshold && logf != nil {
		logf("low disk space on %s: %s free", path, FormatBytes(free))
	}
	return free
}

func generateRandomString(n int) (string, error) {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return hex.EncodeToString(buf)[:n], nil
}
