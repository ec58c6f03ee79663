package perf

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/runner"
)

// waitForFile polls until path exists, the stop signal fires, or timeout
// elapses, checking every 100ms.
func waitForFile(path string, timeout time.Duration, stop *runner.StopSignal) error {
	return pollUntil(timeout, stop, func() bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// waitForFileByPrefix polls a directory for the first file whose name
// starts with prefix's base name, returning its full path. Callers pass
// the dot-suffixed base path ("out.") to find the file perf's
// --switch-output protocol names after it (e.g. "out.2024...").
func waitForFileByPrefix(prefix string, timeout time.Duration, stop *runner.StopSignal) (string, error) {
	dir := filepath.Dir(prefix)
	base := filepath.Base(prefix)
	var found string
	err := pollUntil(timeout, stop, func() bool {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), base) {
				found = filepath.Join(dir, e.Name())
				return true
			}
		}
		return false
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

func pollUntil(timeout time.Duration, stop *runner.StopSignal, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return nil
		}
		if stop != nil && stop.IsSet() {
			return errkind.Stopped
		}
		if time.Now().After(deadline) {
			return errkind.Timeout
		}
		<-ticker.C
	}
}

// removeFilesByPrefix deletes every file in prefix's directory whose
// name starts with prefix's base name, used to clear stale rotation
// output before requesting a new one.
func removeFilesByPrefix(prefix string) {
	dir := filepath.Dir(prefix)
	base := filepath.Base(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), base) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

func removePath(path string) {
	_ = os.Remove(path)
}
