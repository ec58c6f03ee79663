package perf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/runner"
)

func TestWaitForFile_SucceedsOnceCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("x"), 0o644)
	}()

	err := waitForFile(path, time.Second, nil)
	assert.NoError(t, err)
}

func TestWaitForFile_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-appears")
	err := waitForFile(path, 50*time.Millisecond, nil)
	assert.ErrorIs(t, err, errkind.Timeout)
}

func TestWaitForFile_StopSignal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-appears")
	stop := runner.NewStopSignal()
	stop.Trigger()
	err := waitForFile(path, time.Second, stop)
	assert.ErrorIs(t, err, errkind.Stopped)
}

func TestWaitForFileByPrefix_FindsRotatedFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(base+".20240101120000", []byte("x"), 0o644))

	found, err := waitForFileByPrefix(base+".", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, base+".20240101120000", found)
}

func TestRemoveFilesByPrefix_RemovesOnlyMatching(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(base+".stale1", []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(base+".stale2", []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644))

	removeFilesByPrefix(base + ".")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "unrelated", entries[0].Name())
}

func TestSupervisor_StartFailsWithoutPerfBinary(t *testing.T) {
	cfg := Config{
		PerfPath:   "gprofiler-nonexistent-perf-binary",
		Frequency:  99,
		OutputPath: filepath.Join(t.TempDir(), "out"),
		Mode:       ModeFP,
	}
	sup := New(cfg, runner.NewRegistry(), runner.NewStopSignal(), zerolog.Nop())

	err := sup.Start(context.Background())
	assert.ErrorIs(t, err, errkind.ProgramMissing)
	assert.Equal(t, Failed, sup.State())
}

func TestSupervisor_PerfCmd_SystemWide(t *testing.T) {
	cfg := Config{Frequency: 11, OutputPath: "/tmp/out", Mode: ModeDwarf}
	sup := New(cfg, runner.NewRegistry(), runner.NewStopSignal(), zerolog.Nop())
	args := sup.perfCmd()
	assert.Contains(t, args, "-a")
	assert.Contains(t, args, "257")
}

func TestSupervisor_RestartIfNotRunning_AttemptsRestartOfDeadSampler(t *testing.T) {
	cfg := Config{
		PerfPath:   "gprofiler-nonexistent-perf-binary",
		Frequency:  11,
		OutputPath: filepath.Join(t.TempDir(), "out"),
		Mode:       ModeFP,
	}
	sup := New(cfg, runner.NewRegistry(), runner.NewStopSignal(), zerolog.Nop())

	// Never started, so it is "not running"; the restart path runs and
	// surfaces the missing binary.
	err := sup.RestartIfNotRunning(context.Background())
	assert.ErrorIs(t, err, errkind.ProgramMissing)
}

func TestSupervisor_RestartIfRSSExceeded_NoopWithoutChild(t *testing.T) {
	cfg := Config{
		Frequency:  11,
		OutputPath: filepath.Join(t.TempDir(), "out"),
		Mode:       ModeFP,
	}
	sup := New(cfg, runner.NewRegistry(), runner.NewStopSignal(), zerolog.Nop())

	assert.NoError(t, sup.RestartIfRSSExceeded(context.Background()))
}

func TestSupervisor_PerfCmd_PerPID(t *testing.T) {
	cfg := Config{Frequency: 11, OutputPath: "/tmp/out", Mode: ModeFP, PIDs: []int{1, 2, 3}}
	sup := New(cfg, runner.NewRegistry(), runner.NewStopSignal(), zerolog.Nop())
	args := sup.perfCmd()
	assert.Contains(t, args, "--pid")
	assert.Contains(t, args, "1,2,3")
	assert.Contains(t, args, "129")
}
