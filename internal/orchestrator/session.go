// Package orchestrator drives the continuous profiling cycle: it asks
// the perf supervisor(s) to rotate, runs every enabled runtime profiler's
// snapshot concurrently, merges the results, enriches each PID with
// identity and metadata, and hands the record to the emitter.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/container"
	"github.com/intel/gprofiler-go/internal/emitter"
	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/metadata"
	"github.com/intel/gprofiler-go/internal/metrics"
	"github.com/intel/gprofiler-go/internal/perf"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/runtimeprofiler"
	"github.com/intel/gprofiler-go/internal/stack"
)

// Config configures one Session.
type Config struct {
	Duration             time.Duration
	ExternalMetadataPath string
}

// Session owns one agent's whole-lifetime cycle loop. Every
// collaborator it drives is passed in at construction rather than
// looked up through a shared mutable state object, so there is no
// back-reference cycle between profilers and the session.
type Session struct {
	cfg      Config
	stop     *runner.StopSignal
	logger   zerolog.Logger
	perfs    []*perf.Supervisor
	runtimes []runtimeprofiler.Profiler
	resolver container.Resolver
	static   metadata.ProfileMetadata
	sysMon   *metrics.SystemMonitor
	hwMon    *metrics.HWMonitor
	emit     emitter.Emitter
}

// New constructs a Session. perfs may be empty (no system sampler),
// runtimes may be empty (no managed-runtime profilers), resolver may be
// nil (container names degrade to ""), sysMon/hwMon may be nil (metrics
// fields stay unset).
func New(
	cfg Config,
	stop *runner.StopSignal,
	perfs []*perf.Supervisor,
	runtimes []runtimeprofiler.Profiler,
	resolver container.Resolver,
	static metadata.ProfileMetadata,
	sysMon *metrics.SystemMonitor,
	hwMon *metrics.HWMonitor,
	emit emitter.Emitter,
	logger zerolog.Logger,
) *Session {
	return &Session{
		cfg:      cfg,
		stop:     stop,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		perfs:    perfs,
		runtimes: runtimes,
		resolver: resolver,
		static:   static,
		sysMon:   sysMon,
		hwMon:    hwMon,
		emit:     emit,
	}
}

// Run drives cycles until ctx is canceled or the stop signal fires.
// Only Stopped exits the loop early; every other per-cycle error is
// logged and the cycle still emits whatever data was merged.
func (s *Session) Run(ctx context.Context) error {
	// One health-check goroutine per system sampler, ticking on the
	// cycle boundary, so a crashed or memory-leaking perf child is
	// restarted rather than silently contributing empty cycles.
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	for _, sup := range s.perfs {
		go sup.Watch(watchCtx, s.cfg.Duration)
	}

	cycle := 0
	for {
		if s.stop.IsSet() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cycleStart := time.Now()
		if err := s.runCycle(ctx, cycle); err != nil {
			if err == errkind.Stopped {
				return nil
			}
			s.logger.Error().Err(err).Int("cycle", cycle).Msg("cycle failed")
		}
		cycle++

		if !s.sleepUntilNextBoundary(ctx, cycleStart) {
			return nil
		}
	}
}

// sleepUntilNextBoundary waits until the next wall-clock cycle boundary
// (cycleStart + Duration), returning false if the stop signal fires or
// ctx is canceled during the wait.
func (s *Session) sleepUntilNextBoundary(ctx context.Context, cycleStart time.Time) bool {
	next := cycleStart.Add(s.cfg.Duration)
	wait := time.Until(next)
	if wait <= 0 {
		return !s.stop.IsSet()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !s.stop.IsSet()
	case <-ctx.Done():
		return false
	}
}

func (s *Session) runCycle(ctx context.Context, cycle int) error {
	ext, err := metadata.ReadExternal(s.cfg.ExternalMetadataPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("external metadata unavailable for this cycle, proceeding without it")
		ext = metadata.ExternalMetadata{Static: metadata.ProfileMetadata{}, Application: map[int]metadata.ProfileMetadata{}}
	}

	sysCounters := s.collectSystemSamplers(ctx)
	runtimeData := s.collectRuntimeSnapshots(ctx)

	merged := mergeAll(sysCounters, runtimeData)

	record := s.buildRecord(cycle, merged, runtimeData, ext)
	if err := s.emit.Emit(ctx, record); err != nil {
		s.logger.Error().Err(err).Msg("emit failed")
	}
	return nil
}

// collectSystemSamplers requests a rotation from every configured perf
// supervisor in parallel and reconciles FP against DWARF when both are
// present. By convention perfs[0] is FP mode and, if present, perfs[1]
// is DWARF mode.
func (s *Session) collectSystemSamplers(ctx context.Context) stack.ProcessToStackSampleCounters {
	texts := make([]string, len(s.perfs))
	var wg sync.WaitGroup
	for i, sup := range s.perfs {
		wg.Add(1)
		go func(i int, sup *perf.Supervisor) {
			defer wg.Done()
			if err := sup.SwitchOutput(); err != nil {
				s.logger.Warn().Err(err).Msg("perf rotation request failed")
				return
			}
			text, err := sup.WaitAndScript(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("perf rotation failed")
				return
			}
			texts[i] = text
		}(i, sup)
	}
	wg.Wait()

	var fp, dwarf stack.ProcessToStackSampleCounters
	if len(texts) > 0 {
		fp = s.parseSamplerText(texts[0])
	}
	if len(texts) > 1 {
		dwarf = s.parseSamplerText(texts[1])
	}
	return stack.ReconcileFPDWARF(fp, dwarf)
}

// parseSamplerText parses one system sampler's collapsed text, inferring
// the variant from the first token. Samples without pid attribution
// can't be merged with per-runtime snapshots, so a blob in the plain
// variant is dropped with a warning rather than misattributed.
func (s *Session) parseSamplerText(text string) stack.ProcessToStackSampleCounters {
	if text == "" {
		return nil
	}
	if !stack.DetectPerPID(text) {
		s.logger.Warn().Msg("system sampler text lacks pid attribution, dropping it for this cycle")
		return nil
	}
	return stack.ParsePerPID(text)
}

// collectRuntimeSnapshots runs every runtime profiler's select+snapshot
// concurrently, bounded by the cycle duration plus the snapshot grace
// period; an individual profiler's failure is logged and simply
// contributes no data.
func (s *Session) collectRuntimeSnapshots(ctx context.Context) map[string]map[int]runtimeprofiler.ProfileData {
	out := make(map[string]map[int]runtimeprofiler.ProfileData, len(s.runtimes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	snapshotCtx, cancel := context.WithTimeout(ctx, s.cfg.Duration+constants.SnapshotExtraTimeout)
	defer cancel()

	for _, rp := range s.runtimes {
		wg.Add(1)
		go func(rp runtimeprofiler.Profiler) {
			defer wg.Done()
			pids, err := rp.SelectProcesses()
			if err != nil {
				s.logger.Warn().Err(err).Str("runtime", rp.Name()).Msg("process discovery failed")
				return
			}
			if len(pids) == 0 {
				return
			}
			data, err := rp.Snapshot(snapshotCtx, pids, s.cfg.Duration)
			if err != nil {
				s.logger.Warn().Err(err).Str("runtime", rp.Name()).Msg("snapshot failed")
				return
			}
			mu.Lock()
			out[rp.Name()] = data
			mu.Unlock()
		}(rp)
	}
	wg.Wait()
	return out
}

// mergeAll splices every runtime's managed stacks into the reconciled
// system-wide counters, one runtime at a time - managed splice occurs
// exactly once per PID per runtime, and runtimes are PID-disjoint in
// practice since a process belongs to exactly one managed runtime.
func mergeAll(sys stack.ProcessToStackSampleCounters, runtimeData map[string]map[int]runtimeprofiler.ProfileData) stack.ProcessToStackSampleCounters {
	merged := sys
	if merged == nil {
		merged = make(stack.ProcessToStackSampleCounters)
	}
	for name, data := range runtimeData {
		managed := make(map[int]stack.StackSampleCounters, len(data))
		for pid, pd := range data {
			if len(pd.Counters) == 0 {
				continue
			}
			managed[pid] = pd.Counters
		}
		if len(managed) == 0 {
			continue
		}
		anchors := runtimeprofiler.AnchorFramesFor(name)
		merged = stack.SpliceManaged(merged, managed, anchors)
	}
	return merged
}

func (s *Session) buildRecord(cycle int, merged stack.ProcessToStackSampleCounters, runtimeData map[string]map[int]runtimeprofiler.ProfileData, ext metadata.ExternalMetadata) emitter.Record {
	staticMeta := s.static.Merge(ext.Static)

	appMeta := make(map[int]metadata.ProfileMetadata, len(merged))
	for pid := range merged {
		containerName := ""
		if s.resolver != nil {
			containerName = s.resolver.ContainerName(pid)
		}
		m := metadata.CollectApplication(pid, containerName)
		if m == nil {
			m = metadata.ProfileMetadata{}
		}
		if identity := metadata.AppIdentity(pid); identity != "" {
			m["app_identity"] = identity
		}
		if extra, ok := ext.Application[pid]; ok {
			m = m.Merge(extra)
		}
		if len(m) > 0 {
			appMeta[pid] = m
		}
	}

	var sysMetrics metrics.Metrics
	if s.sysMon != nil {
		sysMetrics.CPUAvg = s.sysMon.CPUAverage()
		sysMetrics.MemAvg = s.sysMon.AverageMemory()
	}
	if s.hwMon != nil {
		if hw := s.hwMon.Average(); hw != nil {
			sysMetrics.CPUFreq = hw.CPUFreq
			sysMetrics.CPI = hw.CPI
			sysMetrics.TMAFrontend = hw.TMAFrontend
			sysMetrics.TMABackend = hw.TMABackend
			sysMetrics.TMABadSpec = hw.TMABadSpec
			sysMetrics.TMARetiring = hw.TMARetiring
		}
	}

	return emitter.Record{
		Cycle:               cycle,
		Timestamp:           time.Now(),
		StaticMetadata:      staticMeta,
		ApplicationMetadata: appMeta,
		Metrics:             sysMetrics,
		Stacks:              merged,
	}
}
