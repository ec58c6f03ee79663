package stack

import (
	"sort"
	"strings"
)

// MinUserFrames is the "too short" heuristic threshold used by
// ReconcileFPDWARF: an FP stack with fewer user frames than this is
// considered unreliable and is replaced by the DWARF stack when one
// covers the same PID.
const MinUserFrames = 3

// ReconcileFPDWARF merges frame-pointer and DWARF-unwound system profiles
// for the same cycle. When both are provided, for each PID present in
// both: FP stacks that are too short (fewer than MinUserFrames user
// frames) or kernel-only are replaced by the DWARF counters for that PID;
// otherwise FP wins. Counts are summed per distinct stack, never
// double-counted. PIDs present in only one input pass through unchanged.
func ReconcileFPDWARF(fp, dwarf ProcessToStackSampleCounters) ProcessToStackSampleCounters {
	if fp == nil && dwarf == nil {
		return make(ProcessToStackSampleCounters)
	}
	if dwarf == nil {
		return cloneCounters(fp)
	}
	if fp == nil {
		return cloneCounters(dwarf)
	}

	out := make(ProcessToStackSampleCounters)
	for pid, fpCounters := range fp {
		dwarfCounters, hasDwarf := dwarf[pid]
		if !hasDwarf {
			out.Set(pid, cloneStackCounters(fpCounters))
			continue
		}
		if fpLooksUnreliable(fpCounters) {
			out.Set(pid, cloneStackCounters(dwarfCounters))
		} else {
			out.Set(pid, cloneStackCounters(fpCounters))
		}
	}
	for pid, dwarfCounters := range dwarf {
		if _, seen := fp[pid]; seen {
			continue
		}
		out.Set(pid, cloneStackCounters(dwarfCounters))
	}
	return out
}

// fpLooksUnreliable applies the "too short or kernel-only" heuristic to
// the majority of samples in an FP counters map: if most of the weighted
// samples are short or kernel-only, the whole PID's FP data is treated as
// unreliable and DWARF is preferred.
func fpLooksUnreliable(counters StackSampleCounters) bool {
	var unreliable, total int
	for s, n := range counters {
		total += n
		frames := s.Frames()
		if isKernelOnly(frames) || countUserFrames(frames) < MinUserFrames {
			unreliable += n
		}
	}
	if total == 0 {
		return true
	}
	return unreliable*2 > total
}

func isKernelOnly(frames []string) bool {
	for _, f := range frames {
		if !strings.HasSuffix(f, TagKernel) {
			return false
		}
	}
	return len(frames) > 0
}

func countUserFrames(frames []string) int {
	n := 0
	for _, f := range frames {
		if !strings.HasSuffix(f, TagKernel) {
			n++
		}
	}
	return n
}

// SpliceManaged splices each PID's managed-runtime snapshot into the
// native counters for that PID: it finds the innermost anchor frame
// (from anchors, the runtime's well-known interpreter-loop symbols) in
// each native stack and replaces the contiguous run of anchor frames
// with the managed stack, frame order preserved. When no native stack of
// a PID contains an anchor, the managed stacks are recorded verbatim as
// their own entries, with their own counts, rather than dropped.
func SpliceManaged(native ProcessToStackSampleCounters, managed map[int]StackSampleCounters, anchors []string) ProcessToStackSampleCounters {
	out := cloneCounters(native)
	anchorSet := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		anchorSet[a] = true
	}

	for pid, managedCounters := range managed {
		nativeCounters, hasNative := out[pid]
		if !hasNative {
			out.Set(pid, cloneStackCounters(managedCounters))
			continue
		}
		spliced := make(StackSampleCounters)
		anchored := false
		for nativeStack, nativeCount := range nativeCounters {
			frames := nativeStack.Frames()
			anchorIdx := findAnchor(frames, anchorSet)
			if anchorIdx < 0 {
				spliced.Add(nativeStack, nativeCount)
				continue
			}
			anchored = true
			for managedStack, weight := range apportion(nativeCount, managedCounters) {
				merged := spliceAt(frames, anchorIdx, managedStack.Frames(), anchorSet)
				spliced.Add(Join(merged), weight)
			}
		}
		if !anchored {
			spliced.Merge(managedCounters)
		}
		out[pid] = spliced
	}
	return out
}

// apportion splits total across managed's stacks in proportion to each
// stack's share of managed's own total, using the largest-remainder
// method so the returned weights sum to exactly total. This is what
// keeps SpliceManaged from changing a PID's sample count when a managed
// snapshot holds more than one distinct stack. Ties in the remainder
// are broken by stack text so the result is deterministic for fixed
// input.
func apportion(total int, managed StackSampleCounters) map[Stack]int {
	out := make(map[Stack]int, len(managed))
	if total <= 0 || len(managed) == 0 {
		return out
	}

	managedTotal := managed.Total()
	if managedTotal <= 0 {
		return out
	}

	type share struct {
		stack     Stack
		base      int
		remainder int
	}
	shares := make([]share, 0, len(managed))
	assigned := 0
	for s, n := range managed {
		base := total * n / managedTotal
		rem := total*n - base*managedTotal
		shares = append(shares, share{stack: s, base: base, remainder: rem})
		assigned += base
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].remainder != shares[j].remainder {
			return shares[i].remainder > shares[j].remainder
		}
		return shares[i].stack < shares[j].stack
	})

	leftover := total - assigned
	for i := range shares {
		w := shares[i].base
		if leftover > 0 {
			w++
			leftover--
		}
		if w > 0 {
			out[shares[i].stack] = w
		}
	}
	return out
}

// findAnchor returns the index of the innermost (rightmost) frame
// matching the anchor set, or -1 if none is present. The innermost
// occurrence is the one to splice at when the runtime re-enters the
// interpreter through native code (Python calling C calling Python).
func findAnchor(frames []string, anchorSet map[string]bool) int {
	for i := len(frames) - 1; i >= 0; i-- {
		if anchorSet[frames[i]] {
			return i
		}
	}
	return -1
}

// spliceAt replaces the contiguous run of anchor frames ending at idx
// with managed, frame order preserved. Callers of the interpreter stay
// to the left, anything the interpreter's leaf-ward helpers left to the
// right of idx stays to the right.
func spliceAt(frames []string, idx int, managed []string, anchorSet map[string]bool) []string {
	start := idx
	for start > 0 && anchorSet[frames[start-1]] {
		start--
	}
	merged := make([]string, 0, len(frames)-(idx-start+1)+len(managed))
	merged = append(merged, frames[:start]...)
	merged = append(merged, managed...)
	merged = append(merged, frames[idx+1:]...)
	return merged
}

func cloneCounters(p ProcessToStackSampleCounters) ProcessToStackSampleCounters {
	out := make(ProcessToStackSampleCounters, len(p))
	for pid, counters := range p {
		out[pid] = cloneStackCounters(counters)
	}
	return out
}

func cloneStackCounters(c StackSampleCounters) StackSampleCounters {
	out := make(StackSampleCounters, len(c))
	for s, n := range c {
		out[s] = n
	}
	return out
}
