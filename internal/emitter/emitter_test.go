package emitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/logging"
	"github.com/intel/gprofiler-go/internal/metadata"
	"github.com/intel/gprofiler-go/internal/stack"
)

func TestFileEmitter_Emit_WritesCollapsedFileWithHeader(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{OutputDir: dir}, logging.New(logging.DefaultConfig()))

	record := Record{
		Cycle:          1,
		Timestamp:      time.Now(),
		StaticMetadata: metadata.ProfileMetadata{"hostname": "h1"},
		ApplicationMetadata: map[int]metadata.ProfileMetadata{
			1234: {"team": "A"},
		},
		Stacks: stack.ProcessToStackSampleCounters{
			1234: {"a;b;c": 5},
		},
	}

	require.NoError(t, e.Emit(context.Background(), record))

	data, err := os.ReadFile(filepath.Join(dir, CollapsedFileName))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "a;b;c 5")
	assert.Contains(t, content, "# static.hostname: h1")
	assert.Contains(t, content, "# application.1234.team: A")
}

func TestFileEmitter_Emit_EmptyStacksStillWritesFile(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{OutputDir: dir}, logging.New(logging.DefaultConfig()))

	require.NoError(t, e.Emit(context.Background(), Record{Stacks: stack.ProcessToStackSampleCounters{}}))

	info, err := os.Stat(filepath.Join(dir, CollapsedFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestFileEmitter_Emit_WritesPprofAndFlamegraphWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{OutputDir: dir, WriteFlamegraph: true, WritePprof: true}, logging.New(logging.DefaultConfig()))

	record := Record{
		Cycle: 2,
		Stacks: stack.ProcessToStackSampleCounters{
			1: {"main;work": 3},
		},
	}
	require.NoError(t, e.Emit(context.Background(), record))

	_, err := os.Stat(filepath.Join(dir, "last_profile.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "last_profile.pprof.gz"))
	require.NoError(t, err)
}
