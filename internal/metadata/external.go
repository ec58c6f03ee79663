package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/safe"
)

// ExternalMetadata is re-read at the start of every cycle from a
// user-provided JSON file: {"static": {...}, "application": {"<pid>":
// {...}}}. PID keys are strings in the file but parsed into ints here.
type ExternalMetadata struct {
	Static      ProfileMetadata
	Application map[int]ProfileMetadata
}

type externalMetadataFile struct {
	Static      ProfileMetadata            `json:"static"`
	Application map[string]ProfileMetadata `json:"application"`
}

// ReadExternal reads and parses the external metadata file at path. A
// zero-value path means no external metadata was configured, and an
// empty ExternalMetadata is returned without error. If the file exists
// but its mtime is older than constants.ExternalMetadataStaleness, it
// returns errkind.ExternalMetadataStale rather than silently using
// outdated data for every cycle until the agent is restarted.
func ReadExternal(path string) (ExternalMetadata, error) {
	if path == "" {
		return ExternalMetadata{Static: ProfileMetadata{}, Application: map[int]ProfileMetadata{}}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return ExternalMetadata{}, fmt.Errorf("stat external metadata file: %w", err)
	}
	if time.Since(info.ModTime()) > constants.ExternalMetadataStaleness {
		return ExternalMetadata{}, fmt.Errorf("external metadata file %s last modified %s ago: %w",
			path, time.Since(info.ModTime()).Round(time.Second), errkind.ExternalMetadataStale)
	}

	// A user-provided path, so the symlink and size guards apply.
	raw, err := safe.ReadFile(path, &safe.ReadOptions{MaxSize: 8 << 20})
	if err != nil {
		return ExternalMetadata{}, fmt.Errorf("read external metadata file: %w", err)
	}

	var parsed externalMetadataFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Malformed external metadata shouldn't abort a cycle; treat it
		// the same as "no external metadata" and let the caller log it.
		return ExternalMetadata{Static: ProfileMetadata{}, Application: map[int]ProfileMetadata{}},
			fmt.Errorf("parse external metadata file: %w", err)
	}

	application := make(map[int]ProfileMetadata, len(parsed.Application))
	for pidStr, m := range parsed.Application {
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			continue
		}
		application[pid] = m
	}
	if parsed.Static == nil {
		parsed.Static = ProfileMetadata{}
	}
	return ExternalMetadata{Static: parsed.Static, Application: application}, nil
}
