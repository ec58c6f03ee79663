package mutex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/errkind"
)

func TestAcquire_SecondInstanceFailsFast(t *testing.T) {
	first, err := acquire("\x00gprofiler_lock_test")
	if err == errkind.UnsupportedEnvironment {
		t.Skip("abstract-namespace unix sockets unsupported on this platform")
	}
	require.NoError(t, err)
	defer first.Close()

	_, err = acquire("\x00gprofiler_lock_test")
	assert.ErrorIs(t, err, errkind.MutexHeld)
}

func TestAcquire_ReleasedAfterClose(t *testing.T) {
	first, err := acquire("\x00gprofiler_lock_test_release")
	if err == errkind.UnsupportedEnvironment {
		t.Skip("abstract-namespace unix sockets unsupported on this platform")
	}
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := acquire("\x00gprofiler_lock_test_release")
	require.NoError(t, err)
	defer second.Close()
}
