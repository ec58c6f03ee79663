package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCollapsed_SkipsMalformedLines(t *testing.T) {
	text := "main;foo;bar 5\nno-semicolon-or-count\nmain;baz notanumber\nmain;qux 3\n"
	result := ParseCollapsed(text, 42)
	require.Contains(t, result, 42)
	counters := result[42]
	assert.Equal(t, 5, int(counters["main;foo;bar"]))
	assert.Equal(t, 3, int(counters["main;qux"]))
	assert.Len(t, counters, 2)
}

func TestDetectPerPID(t *testing.T) {
	assert.True(t, DetectPerPID("123/456 main;foo 1\n"))
	assert.False(t, DetectPerPID("main;foo 1\n"))
	assert.False(t, DetectPerPID(""))
}

func TestParsePerPID(t *testing.T) {
	text := "100/100 main;foo 2\n200/201 main;bar 4\n100/100 main;foo 1\n"
	result := ParsePerPID(text)
	require.Contains(t, result, 100)
	require.Contains(t, result, 200)
	assert.Equal(t, 3, result[100]["main;foo"])
	assert.Equal(t, 4, result[200]["main;bar"])
}

func TestStackSampleCounters_AddIgnoresNonPositive(t *testing.T) {
	c := make(StackSampleCounters)
	c.Add("a;b", 0)
	c.Add("a;b", -1)
	assert.Empty(t, c)
	c.Add("a;b", 2)
	assert.Equal(t, 2, c["a;b"])
}

func TestProcessToStackSampleCounters_SetDropsEmpty(t *testing.T) {
	p := make(ProcessToStackSampleCounters)
	p.Set(1, StackSampleCounters{})
	assert.NotContains(t, p, 1)
	p.Set(1, StackSampleCounters{"a;b": 1})
	p.Set(1, StackSampleCounters{"a;b": 2, "c;d": 1})
	assert.Equal(t, 3, p[1]["a;b"])
	assert.Equal(t, 1, p[1]["c;d"])
}

func TestReconcileFPDWARF_PrefersDWARFWhenFPShort(t *testing.T) {
	fp := ProcessToStackSampleCounters{
		1: {"a;b[k]": 10},
	}
	dwarf := ProcessToStackSampleCounters{
		1: {"main;a;b;c;d": 10},
	}
	merged := ReconcileFPDWARF(fp, dwarf)
	require.Contains(t, merged, 1)
	assert.Equal(t, 10, merged[1]["main;a;b;c;d"])
	assert.NotContains(t, merged[1], Stack("a;b[k]"))
}

func TestReconcileFPDWARF_PrefersFPWhenReliable(t *testing.T) {
	fp := ProcessToStackSampleCounters{
		1: {"main;a;b;c;d": 10},
	}
	dwarf := ProcessToStackSampleCounters{
		1: {"main;a;b;c;e": 10},
	}
	merged := ReconcileFPDWARF(fp, dwarf)
	assert.Equal(t, 10, merged[1]["main;a;b;c;d"])
	assert.NotContains(t, merged[1], Stack("main;a;b;c;e"))
}

func TestReconcileFPDWARF_PassesThroughUnsharedPIDs(t *testing.T) {
	fp := ProcessToStackSampleCounters{1: {"a;b;c;d": 5}}
	dwarf := ProcessToStackSampleCounters{2: {"a;b;c;d": 5}}
	merged := ReconcileFPDWARF(fp, dwarf)
	assert.Contains(t, merged, 1)
	assert.Contains(t, merged, 2)
}

func TestSpliceManaged_ReplacesAnchorFrame(t *testing.T) {
	native := ProcessToStackSampleCounters{
		7: {"a;b;PyEval_EvalFrameDefault": 3},
	}
	managed := map[int]StackSampleCounters{
		7: {"main;work": 3},
	}
	out := SpliceManaged(native, managed, AnchorFrames["python"])
	require.Contains(t, out, 7)
	assert.Equal(t, StackSampleCounters{"a;b;main;work": 3}, out[7])
}

func TestSpliceManaged_SplicesAtInnermostAnchor(t *testing.T) {
	native := ProcessToStackSampleCounters{
		7: {"_start;PyEval_EvalFrameDefault;native_ext;PyEval_EvalFrameDefault": 4},
	}
	managed := map[int]StackSampleCounters{
		7: {"inner": 4},
	}
	out := SpliceManaged(native, managed, AnchorFrames["python"])
	assert.Equal(t, 4, out[7]["_start;PyEval_EvalFrameDefault;native_ext;inner"])
}

func TestSpliceManaged_AppendsVerbatimWhenNoAnchor(t *testing.T) {
	native := ProcessToStackSampleCounters{
		7: {"_start;main;some_native_fn": 5},
	}
	managed := map[int]StackSampleCounters{
		7: {"handler;dispatch": 3},
	}
	out := SpliceManaged(native, managed, AnchorFrames["python"])
	assert.Equal(t, 5, out[7]["_start;main;some_native_fn"])
	assert.Equal(t, 3, out[7]["handler;dispatch"])
}

func TestSpliceManaged_PreservesTotalWithMultipleManagedStacks(t *testing.T) {
	native := ProcessToStackSampleCounters{
		7: {
			"_start;main;PyEval_EvalFrameDefault":   10,
			"_start;worker;PyEval_EvalFrameDefault": 8,
			"some_native_fn;main;_start":            4,
		},
	}
	managed := map[int]StackSampleCounters{
		7: {"a;b": 3, "c;d": 3, "e;f": 2},
	}
	out := SpliceManaged(native, managed, AnchorFrames["python"])
	require.Contains(t, out, 7)

	total := 0
	for _, n := range out[7] {
		total += n
	}
	assert.Equal(t, 22, total, "splice must preserve the sum of counts for PID 7")

	// the un-anchored stack passes through untouched.
	assert.Equal(t, 4, out[7]["some_native_fn;main;_start"])

	// every emitted stack's count is positive, per invariant (1).
	for s, n := range out[7] {
		assert.Greaterf(t, n, 0, "stack %q must have a positive count", s)
	}
}

func TestApportion_SumsToTotal(t *testing.T) {
	managed := StackSampleCounters{"a;b": 3, "c;d": 3, "e;f": 2}
	for _, total := range []int{1, 7, 8, 16, 23} {
		weights := apportion(total, managed)
		sum := 0
		for _, w := range weights {
			sum += w
		}
		assert.Equalf(t, total, sum, "apportion(%d, ...) must sum to %d", total, total)
	}
}

func TestNormalize_DropsNUL(t *testing.T) {
	frames := []string{"good", "bad\x00frame", "also_good"}
	out := Normalize(frames)
	assert.Equal(t, []string{"good", "also_good"}, out)
}

func TestNormalize_RewritesSemicolons(t *testing.T) {
	out := Normalize([]string{"operator;weird", "plain"})
	assert.Equal(t, []string{"operator:weird", "plain"}, out)
}
