// Package safe guards the agent's reads of externally-controlled input:
// files written by spawned helper tools and user-provided metadata, and
// numeric values crossing from kernel-reported unsigned types.
package safe

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize bounds a read when the caller doesn't set its own
// limit. Helper output files (collapsed text, speedscope JSON) are
// normally a few hundred KiB; anything past this is a runaway helper.
const DefaultMaxFileSize = 1 << 20

// ReadOptions configures ReadFile.
type ReadOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means
	// DefaultMaxFileSize.
	MaxSize int64

	// AllowSymlinks permits reading through a symlink. Off by default:
	// helper output paths are predictable (PID + timestamp under the
	// agent's temp dir), so a symlink planted there is an attack, not a
	// configuration.
	AllowSymlinks bool
}

// ReadFile reads a file whose path is predictable but whose contents
// come from outside the agent. It refuses symlinks unless allowed,
// refuses non-regular files, and bounds the size before reading.
func ReadFile(path string, opts *ReadOptions) ([]byte, error) {
	if opts == nil {
		opts = &ReadOptions{}
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.AllowSymlinks {
			return nil, fmt.Errorf("refusing to read %q: path is a symlink", path)
		}
		if info, err = os.Stat(cleanPath); err != nil {
			return nil, err
		}
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("refusing to read %q: not a regular file", path)
	}

	if info.Size() > maxSize {
		return nil, fmt.Errorf("refusing to read %q: %d bytes exceeds the %d byte limit", path, info.Size(), maxSize)
	}

	return os.ReadFile(cleanPath)
}
