package perf

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/intel/gprofiler-go/internal/stack"
)

// collapseScriptOutput folds "perf script -F +pid" output into per-PID
// collapsed text, one "pid/tid stack count" line per distinct stack.
// Each event block contributes one sample; frames are printed by perf
// innermost-first, so a block's frame list is reversed to put callers
// left and the sampled leaf rightmost. Kernel frames are tagged so the
// merger's kernel-only heuristic can see them.
func collapseScriptOutput(raw string) string {
	type key struct {
		pidTid string
		stack  stack.Stack
	}
	counts := make(map[key]int)

	var pidTid string
	var frames []string

	flush := func() {
		if pidTid == "" || len(frames) == 0 {
			pidTid = ""
			frames = nil
			return
		}
		reverseInPlace(frames)
		counts[key{pidTid: pidTid, stack: stack.Join(stack.Normalize(frames))}]++
		pidTid = ""
		frames = nil
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case line[0] == ' ' || line[0] == '\t':
			if f, ok := parseFrameLine(line); ok {
				frames = append(frames, f)
			}
		default:
			flush()
			pidTid = parseEventHeader(line)
		}
	}
	flush()

	lines := make([]string, 0, len(counts))
	for k, n := range counts {
		lines = append(lines, fmt.Sprintf("%s %s %d", k.pidTid, k.stack, n))
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// parseEventHeader extracts the "pid/tid" token from an event's header
// line ("comm pid/tid [cpu] time: period event:"), or "" when the line
// doesn't carry one - perf's comm field may itself contain spaces, so
// the pid/tid token is found by shape, not position.
func parseEventHeader(line string) string {
	for _, tok := range strings.Fields(line) {
		if isPidTid(tok) {
			return tok
		}
	}
	return ""
}

func isPidTid(tok string) bool {
	slash := strings.IndexByte(tok, '/')
	if slash <= 0 || slash == len(tok)-1 {
		return false
	}
	return allDigits(tok[:slash]) && allDigits(tok[slash+1:])
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseFrameLine extracts the symbol from an indented frame line
// ("<addr> <symbol>+0x<off> (<dso>)"). The +0x offset is dropped; C++
// symbols may contain spaces, so the symbol spans from after the
// address to the final " (" that opens the DSO annotation. Frames
// resolved inside the kernel or a kernel module get the kernel tag.
func parseFrameLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return "", false
	}
	rest := line[sp+1:]

	dso := ""
	if open := strings.LastIndex(rest, " ("); open >= 0 && strings.HasSuffix(rest, ")") {
		dso = rest[open+2 : len(rest)-1]
		rest = rest[:open]
	}

	sym := rest
	if plus := strings.LastIndex(sym, "+0x"); plus > 0 {
		sym = sym[:plus]
	}
	if sym == "" {
		return "", false
	}

	if strings.Contains(dso, "kernel.kallsyms") || strings.HasSuffix(dso, ".ko") {
		sym += "_" + stack.TagKernel
	}
	return sym, true
}

func reverseInPlace(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
