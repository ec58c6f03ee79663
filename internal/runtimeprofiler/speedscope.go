package runtimeprofiler

import (
	"encoding/json"
	"fmt"

	"github.com/intel/gprofiler-go/internal/stack"
)

// speedscopeFile is the subset of the speedscope JSON schema this loader
// understands: a sampled profile type with one frame table and one or
// more "sampled" profiles, each a list of weighted sample-index lists.
// Helpers that don't natively emit collapsed text (dotnet-trace) are
// asked for speedscope output instead and converted here rather than
// taught a second native format.
type speedscopeFile struct {
	Shared struct {
		Frames []struct {
			Name string `json:"name"`
		} `json:"frames"`
	} `json:"shared"`
	Profiles []struct {
		Type    string    `json:"type"`
		Unit    string    `json:"unit"`
		Samples [][]int   `json:"samples"`
		Weights []float64 `json:"weights"`
	} `json:"profiles"`
}

// ParseSpeedscope converts a speedscope "sampled" profile into collapsed
// stack counters for pid. Each sample's frame-index list is
// outermost-first in the speedscope schema, which is already this
// system's text order (callers left, sampled leaf rightmost), so frames
// are joined as-is. Weights are rounded to the nearest positive integer
// sample count; a sample whose weight rounds to zero is dropped rather
// than recorded with a zero count.
func ParseSpeedscope(data []byte, pid int) (stack.ProcessToStackSampleCounters, error) {
	var doc speedscopeFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse speedscope document: %w", err)
	}

	frameNames := make([]string, len(doc.Shared.Frames))
	for i, f := range doc.Shared.Frames {
		frameNames[i] = f.Name
	}

	counters := make(stack.StackSampleCounters)
	for _, prof := range doc.Profiles {
		for i, sampleIdx := range prof.Samples {
			frames := make([]string, 0, len(sampleIdx))
			for _, idx := range sampleIdx {
				if idx < 0 || idx >= len(frameNames) {
					continue
				}
				frames = append(frames, frameNames[idx])
			}
			if len(frames) == 0 {
				continue
			}

			weight := 1.0
			if i < len(prof.Weights) {
				weight = prof.Weights[i]
			}
			count := int(weight + 0.5)
			if count <= 0 {
				continue
			}
			counters.Add(stack.Join(stack.Normalize(frames)), count)
		}
	}

	out := make(stack.ProcessToStackSampleCounters)
	out.Set(pid, counters)
	return out, nil
}
