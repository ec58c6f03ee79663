package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/container"
	"github.com/intel/gprofiler-go/internal/emitter"
	"github.com/intel/gprofiler-go/internal/logging"
	"github.com/intel/gprofiler-go/internal/metadata"
	"github.com/intel/gprofiler-go/internal/metrics"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/runtimeprofiler"
	"github.com/intel/gprofiler-go/internal/stack"
)

type fakeResolver struct{ name string }

func (f fakeResolver) ContainerName(int) string { return f.name }

var _ container.Resolver = fakeResolver{}

type fakeEmitter struct {
	records []emitter.Record
}

func (f *fakeEmitter) Emit(_ context.Context, r emitter.Record) error {
	f.records = append(f.records, r)
	return nil
}

var _ emitter.Emitter = (*fakeEmitter)(nil)

func TestMergeAll_SplicesManagedStacksIntoSystemCounters(t *testing.T) {
	sys := stack.ProcessToStackSampleCounters{
		1234: {"main;_PyEval_EvalFrameDefault": 10},
	}
	runtimeData := map[string]map[int]runtimeprofiler.ProfileData{
		"python": {
			1234: {Counters: stack.StackSampleCounters{"foo;bar": 10}},
		},
	}

	merged := mergeAll(sys, runtimeData)

	require.Contains(t, merged, 1234)
	for s := range merged[1234] {
		assert.Contains(t, string(s), "foo")
	}
}

func TestMergeAll_NilSystemCountersStillMerges(t *testing.T) {
	runtimeData := map[string]map[int]runtimeprofiler.ProfileData{
		"ruby": {42: {Counters: stack.StackSampleCounters{"a;b": 3}}},
	}
	merged := mergeAll(nil, runtimeData)
	assert.Contains(t, merged, 42)
}

func TestMergeAll_EmptyRuntimeDataReturnsSystemCountersUnchanged(t *testing.T) {
	sys := stack.ProcessToStackSampleCounters{1: {"a;b": 1}}
	merged := mergeAll(sys, nil)
	assert.Equal(t, sys, merged)
}

func TestSession_BuildRecord_AttachesStaticAndApplicationMetadata(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	s := New(
		Config{},
		runner.NewStopSignal(),
		nil,
		nil,
		fakeResolver{name: "abc123"},
		metadata.ProfileMetadata{"hostname": "h1"},
		nil,
		(*metrics.HWMonitor)(nil),
		&fakeEmitter{},
		logger,
	)

	merged := stack.ProcessToStackSampleCounters{99: {"a;b": 1}}
	record := s.buildRecord(1, merged, nil, metadata.ExternalMetadata{
		Static:      metadata.ProfileMetadata{},
		Application: map[int]metadata.ProfileMetadata{99: {"team": "payments"}},
	})

	assert.Equal(t, "h1", record.StaticMetadata["hostname"])
	require.Contains(t, record.ApplicationMetadata, 99)
	assert.Equal(t, "payments", record.ApplicationMetadata[99]["team"])
}
