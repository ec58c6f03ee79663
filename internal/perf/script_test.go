package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intel/gprofiler-go/internal/stack"
)

const sampleScriptOutput = `myapp  1234/1234 [002] 100.123456:     250000 cpu-clock:
	ffffffffa0d0f824 finish_task_switch+0x4 ([kernel.kallsyms])
	    55e9a06a8a7a do_work+0x1a (/usr/bin/myapp)
	    55e9a06a8123 main+0x26 (/usr/bin/myapp)

myapp  1234/1234 [002] 100.223456:     250000 cpu-clock:
	ffffffffa0d0f824 finish_task_switch+0x4 ([kernel.kallsyms])
	    55e9a06a8a7a do_work+0x1a (/usr/bin/myapp)
	    55e9a06a8123 main+0x26 (/usr/bin/myapp)

other  99/100 [001] 100.323456:     250000 cpu-clock:
	    7f5f78a3a123 idle_loop+0x3 (/usr/bin/other)

`

func TestCollapseScriptOutput_AggregatesIdenticalStacks(t *testing.T) {
	text := collapseScriptOutput(sampleScriptOutput)

	parsed := stack.ParsePerPID(text)
	assert.Contains(t, parsed, 1234)
	assert.Equal(t, 2, parsed[1234]["main;do_work;finish_task_switch_[k]"])
}

func TestCollapseScriptOutput_DropsSingleFrameStacks(t *testing.T) {
	// PID 99's lone frame has no ';', so the collapsed parser skips it,
	// same as any other too-short sample.
	text := collapseScriptOutput(sampleScriptOutput)

	parsed := stack.ParsePerPID(text)
	assert.NotContains(t, parsed, 99)
}

func TestCollapseScriptOutput_EmptyInput(t *testing.T) {
	assert.Equal(t, "", collapseScriptOutput(""))
	assert.Equal(t, "", collapseScriptOutput("\n\n"))
}

func TestParseFrameLine_CppSymbolWithSpaces(t *testing.T) {
	f, ok := parseFrameLine("\t    55e9a06a8a7a std::vector<int, std::allocator<int> >::push_back+0x1a (/usr/lib/libfoo.so)")
	assert.True(t, ok)
	assert.Equal(t, "std::vector<int, std::allocator<int> >::push_back", f)
}

func TestParseFrameLine_KernelModuleTagged(t *testing.T) {
	f, ok := parseFrameLine("\tffffffffc0123456 ext4_readdir+0x10 (/lib/modules/6.1.0/kernel/fs/ext4/ext4.ko)")
	assert.True(t, ok)
	assert.Equal(t, "ext4_readdir_[k]", f)
}
