// Package container looks up the container a PID belongs to, by reading
// its cgroup path and extracting the container ID Docker/containerd
// embed in it. Profiles are annotated with this name so a user can tell
// which container a hot stack came from.
package container

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Resolver looks up a container name for a PID. An interface so the
// orchestrator can be tested against a fake without touching /proc.
type Resolver interface {
	ContainerName(pid int) string
}

// cgroupIDPattern matches a 64-character hex container ID anywhere in a
// cgroup path component, which is how both the cgroup v1 Docker driver
// and cgroup v2 unified hierarchy name a container's scope.
var cgroupIDPattern = regexp.MustCompile(`[0-9a-f]{64}`)

// CgroupResolver resolves container names from /proc/<pid>/cgroup.
type CgroupResolver struct{}

// NewCgroupResolver returns a Resolver backed by /proc.
func NewCgroupResolver() *CgroupResolver {
	return &CgroupResolver{}
}

// ContainerName returns the short (12-character) container ID for pid,
// or "" if pid isn't inside a recognizable container cgroup - including
// when /proc/<pid>/cgroup can't be read because the process has already
// exited.
func (r *CgroupResolver) ContainerName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cgroup", pid))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if id := cgroupIDPattern.FindString(line); id != "" {
			return id[:12]
		}
	}
	return ""
}
