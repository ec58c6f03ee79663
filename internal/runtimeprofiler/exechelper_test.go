package runtimeprofiler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPerPID_IsolatesPerPIDFailures(t *testing.T) {
	exec := func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		if pid == 100 {
			return nil, false, errors.New("helper crashed")
		}
		return []byte("main;work 3\n"), false, nil
	}

	out := SnapshotPerPID(context.Background(), []int{100, 101}, time.Second, exec, zerolog.Nop())

	assert.NotContains(t, out, 100)
	require.Contains(t, out, 101)
	assert.Equal(t, 3, out[101].Counters["main;work"])
}

func TestSnapshotPerPID_SpeedscopeOutputConverted(t *testing.T) {
	exec := func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		return []byte(sampleSpeedscopeDoc), true, nil
	}

	out := SnapshotPerPID(context.Background(), []int{7}, time.Second, exec, zerolog.Nop())

	require.Contains(t, out, 7)
	assert.Equal(t, 2, out[7].Counters["main;Main;DoWork"])
}

func TestSnapshotPerPID_EmptyOutputOmitsPID(t *testing.T) {
	exec := func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		return []byte(""), false, nil
	}

	out := SnapshotPerPID(context.Background(), []int{5}, time.Second, exec, zerolog.Nop())
	assert.Empty(t, out)
}
