package metadata

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/intel/gprofiler-go/internal/sys/proc"
)

// CollectApplication gathers per-PID facts re-collected every cycle: the
// running binary's path, command line, and container name when one is
// available. A PID that has already exited between discovery and
// collection yields a nil map rather than an error, since that's a
// routine race under continuous sampling, not a failure worth logging.
func CollectApplication(pid int, containerName string) ProfileMetadata {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	m := ProfileMetadata{}
	if exe, err := p.Exe(); err == nil {
		m["exe"] = exe
	} else if binPath, err := proc.BinaryPath(pid); err == nil {
		m["exe"] = binPath
	}
	if cmdline, err := proc.Cmdline(pid); err == nil && len(cmdline) > 0 {
		m["cmdline"] = fmt.Sprintf("%v", cmdline)
	}
	if name, err := p.Name(); err == nil {
		m["comm"] = name
	}
	if containerName != "" {
		m["container_name"] = containerName
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
