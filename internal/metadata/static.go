package metadata

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/intel/gprofiler-go/pkg/version"
)

// CollectStatic gathers host, OS, kernel, and CPU facts once at agent
// start. Individual gopsutil calls are allowed to fail independently -
// a host without a readable /proc/cpuinfo still gets hostname and OS
// facts rather than an empty map.
func CollectStatic() ProfileMetadata {
	m := ProfileMetadata{
		"agent_version": version.Version,
		"go_version":    runtime.Version(),
		"arch":          runtime.GOARCH,
	}

	if info, err := host.Info(); err == nil {
		m["hostname"] = info.Hostname
		m["os"] = info.OS
		m["platform"] = info.Platform
		m["platform_version"] = info.PlatformVersion
		m["kernel_version"] = info.KernelVersion
		m["kernel_arch"] = info.KernelArch
		m["host_id"] = info.HostID
		m["uptime_seconds"] = fmt.Sprintf("%d", info.Uptime)
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		m["cpu_model"] = cpuInfo[0].ModelName
		m["cpu_cores"] = fmt.Sprintf("%d", len(cpuInfo))
		m["cpu_mhz"] = fmt.Sprintf("%.0f", cpuInfo[0].Mhz)
	}

	return m
}
