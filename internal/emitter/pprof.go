package emitter

import (
	"fmt"
	"os"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	cleanup "github.com/intel/gprofiler-go/internal/errors"
)

// writePprof builds a github.com/google/pprof/profile.Profile from
// record's merged stack table and writes it gzip-compressed to path,
// for interoperability with "go tool pprof".
func writePprof(path string, record Record, logger zerolog.Logger) error {
	functions := map[string]*profile.Function{}
	locations := map[string]*profile.Location{}
	var nextID uint64 = 1

	getLocation := func(name string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn, ok := functions[name]
		if !ok {
			fn = &profile.Function{ID: nextID, Name: name, SystemName: name}
			nextID++
			functions[name] = fn
		}
		loc := &profile.Location{
			ID:   nextID,
			Line: []profile.Line{{Function: fn}},
		}
		nextID++
		locations[name] = loc
		return loc
	}

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "samples", Unit: "count"},
		Period:     1,
	}

	for pid, counters := range record.Stacks {
		for s, count := range counters {
			// Sample locations are leaf-first in the pprof format, the
			// reverse of the collapsed text order.
			frames := s.Frames()
			locs := make([]*profile.Location, 0, len(frames))
			for i := len(frames) - 1; i >= 0; i-- {
				locs = append(locs, getLocation(frames[i]))
			}
			sample := &profile.Sample{
				Location: locs,
				Value:    []int64{int64(count)},
				Label:    map[string][]string{"pid": {fmt.Sprintf("%d", pid)}},
			}
			prof.Sample = append(prof.Sample, sample)
		}
	}

	for _, fn := range functions {
		prof.Function = append(prof.Function, fn)
	}
	for _, loc := range locations {
		prof.Location = append(prof.Location, loc)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pprof file: %w", err)
	}
	defer cleanup.DeferClose(logger, f, "close pprof file")

	if err := prof.Write(f); err != nil {
		return fmt.Errorf("write pprof profile: %w", err)
	}
	return nil
}
