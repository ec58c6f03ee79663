package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/errkind"
)

func TestSpawn_ReapCapturesOutput(t *testing.T) {
	reg := NewRegistry()
	p, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "echo hello; echo world >&2"}, nil)
	require.NoError(t, err)

	code, stdout, stderr, err := p.Reap()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", stdout)
	assert.Equal(t, "world\n", stderr)
}

func TestSpawn_RegistryTracksAndUntracksOnExit(t *testing.T) {
	reg := NewRegistry()
	p, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "exit 0"}, nil)
	require.NoError(t, err)
	_, _, _, _ = p.Reap()

	assert.Eventually(t, func() bool {
		return len(reg.All()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWaitWithTimeout_Timeout(t *testing.T) {
	reg := NewRegistry()
	p, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	err = p.WaitWithTimeout(50*time.Millisecond, nil)
	assert.ErrorIs(t, err, errkind.Timeout)
}

func TestWaitWithTimeout_StopSignal(t *testing.T) {
	reg := NewRegistry()
	p, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	stop := NewStopSignal()
	go func() {
		time.Sleep(20 * time.Millisecond)
		stop.Trigger()
	}()

	err = p.WaitWithTimeout(5*time.Second, stop)
	assert.ErrorIs(t, err, errkind.Stopped)
}

func TestKillAndReap_ExitCodeOnSignal(t *testing.T) {
	reg := NewRegistry()
	p, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "sleep 30"}, nil)
	require.NoError(t, err)

	code, _, _, err := p.KillAndReap()
	require.NoError(t, err)
	assert.NotEqual(t, 0, code)
}

func TestRegistry_KillAllKillsEverything(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 3; i++ {
		_, err := Spawn(context.Background(), reg, "/bin/sh", []string{"-c", "sleep 30"}, nil)
		require.NoError(t, err)
	}
	require.Len(t, reg.All(), 3)

	reg.KillAll()
	assert.Eventually(t, func() bool {
		return len(reg.All()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStopSignal_Idempotent(t *testing.T) {
	s := NewStopSignal()
	assert.False(t, s.IsSet())
	s.Trigger()
	s.Trigger()
	assert.True(t, s.IsSet())
}
