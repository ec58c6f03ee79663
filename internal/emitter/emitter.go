// Package emitter writes each cycle's merged, enriched profile to disk
// and optionally hands it to the upload collaborator.
package emitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/metadata"
	"github.com/intel/gprofiler-go/internal/metrics"
	"github.com/intel/gprofiler-go/internal/stack"
	"github.com/intel/gprofiler-go/internal/upload"
)

// CollapsedFileName is the name the per-cycle collapsed file is always
// written under, so downstream consumers can watch one fixed path rather
// than discover a new filename every cycle.
const CollapsedFileName = "last_profile.col"

// Record is everything one cycle contributes: the merged stack table
// plus every metadata and metrics flavor attached to it.
type Record struct {
	Cycle               int
	Timestamp           time.Time
	StaticMetadata      metadata.ProfileMetadata
	ApplicationMetadata map[int]metadata.ProfileMetadata
	Metrics             metrics.Metrics
	Stacks              stack.ProcessToStackSampleCounters
}

// Emitter is what the orchestrator calls once per cycle with the merged,
// enriched record. An interface so Session can be tested against a fake.
type Emitter interface {
	Emit(ctx context.Context, record Record) error
}

// Config configures a FileEmitter.
type Config struct {
	OutputDir       string
	WriteFlamegraph bool
	WritePprof      bool
	Uploader        upload.Client // nil disables upload
}

// FileEmitter writes the collapsed file atomically (temp file + rename)
// and optionally a flamegraph HTML, a .pprof sibling, and an upload.
type FileEmitter struct {
	cfg    Config
	logger zerolog.Logger
}

// New constructs a FileEmitter.
func New(cfg Config, logger zerolog.Logger) *FileEmitter {
	return &FileEmitter{cfg: cfg, logger: logger.With().Str("component", "emitter").Logger()}
}

// Emit writes record's collapsed file, always, even if Stacks is empty,
// so an empty file can distinguish "agent alive but idle" from "agent
// dead". It then performs the optional steps, each of which is
// independently best-effort and logs rather than fails the cycle.
func (e *FileEmitter) Emit(ctx context.Context, record Record) error {
	path := filepath.Join(e.cfg.OutputDir, CollapsedFileName)
	if err := writeAtomic(path, renderCollapsed(record)); err != nil {
		return fmt.Errorf("write collapsed file: %w", err)
	}

	if e.cfg.WriteFlamegraph {
		if err := writeFlamegraph(filepath.Join(e.cfg.OutputDir, "last_profile.html"), record, e.logger); err != nil {
			e.logger.Warn().Err(err).Msg("failed to write flamegraph")
		}
	}

	if e.cfg.WritePprof {
		if err := writePprof(filepath.Join(e.cfg.OutputDir, "last_profile.pprof.gz"), record, e.logger); err != nil {
			e.logger.Warn().Err(err).Msg("failed to write pprof sibling")
		}
	}

	if e.cfg.Uploader != nil {
		if err := e.cfg.Uploader.Upload(ctx, record.Timestamp, record.Metrics); err != nil {
			e.logger.Warn().Err(err).Msg("upload failed, continuing")
		}
	}

	return nil
}

// renderCollapsed formats a record as one "stack count" line per unique
// (pid, stack) pair, sorted for determinism, followed by a "# key:
// value" comment header carrying static and application metadata. Two
// PIDs sharing identical stack text emit two lines rather than one
// folded line; the lines themselves do not carry the PID. Consumers tolerate the header at either end; putting
// it last keeps the sample lines at a predictable offset from the
// file's start.
func renderCollapsed(record Record) []byte {
	var b strings.Builder

	type pidStack struct {
		pid   int
		stack stack.Stack
		count int
	}
	var lines []pidStack
	for pid, counters := range record.Stacks {
		for s, n := range counters {
			lines = append(lines, pidStack{pid: pid, stack: s, count: n})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].pid != lines[j].pid {
			return lines[i].pid < lines[j].pid
		}
		return lines[i].stack < lines[j].stack
	})
	for _, l := range lines {
		fmt.Fprintf(&b, "%s %d\n", l.stack, l.count)
	}

	writeHeader(&b, "static", record.StaticMetadata)
	pids := make([]int, 0, len(record.ApplicationMetadata))
	for pid := range record.ApplicationMetadata {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		for k, v := range record.ApplicationMetadata[pid] {
			fmt.Fprintf(&b, "# application.%d.%s: %s\n", pid, k, v)
		}
	}

	return []byte(b.String())
}

func writeHeader(b *strings.Builder, section string, m metadata.ProfileMetadata) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "# %s.%s: %s\n", section, k, m[k])
	}
}

// writeAtomic writes data to a temp file in path's directory and renames
// it over path, so a reader never observes a partially written collapsed
// file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ Emitter = (*FileEmitter)(nil)
