package session

import (
	"fmt"
	"strings"

	"github.com/MonsterRookie/ashalytics/internal/analysis"
)

// Session memory is the cumulative text block re-sent with every analysis call
// to give the service continuity. One line per turn, append-only, never edited
// or reordered. The service reads it as unstructured context, so the line
// format must stay stable within a session.
//
// Line shape:
//
//	Turn: Individual said "<transcription>". AI Observed: <STATUS>. Intent: <intent>. Stress: <n>/100.
//
// The Intent and Stress annotations are present only when the turn carried
// them.

const (
	memoryLinePrefix = `Turn: Individual said "`
	memoryObservedSep = `". AI Observed: `
)

// oneLine keeps the one-line-per-turn contract even when a transcription or
// intent carries line breaks. The parse boundary already collapses them, but
// the accumulator must hold the invariant on its own.
var oneLine = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// AppendTurn is the pure accumulator: given the prior memory and one turn
// result it returns the new memory. Same inputs always produce the same
// output.
func AppendTurn(prior string, r analysis.TurnResult) string {
	var b strings.Builder
	b.WriteString(memoryLinePrefix)
	b.WriteString(oneLine.Replace(r.Transcription))
	b.WriteString(memoryObservedSep)
	b.WriteString(string(r.Status))
	b.WriteString(".")
	if r.Intent != "" {
		fmt.Fprintf(&b, " Intent: %s.", oneLine.Replace(r.Intent))
	}
	if r.StressScore > 0 {
		fmt.Fprintf(&b, " Stress: %d/100.", r.StressScore)
	}
	line := b.String()
	if prior == "" {
		return line
	}
	return prior + "\n" + line
}

// capMemory keeps the last limit lines. Retention is a single fixed policy per
// session: either unbounded (limit <= 0) or keep-last-N for the whole session.
func capMemory(memory string, limit int) string {
	if limit <= 0 || memory == "" {
		return memory
	}
	lines := strings.Split(memory, "\n")
	if len(lines) <= limit {
		return memory
	}
	return strings.Join(lines[len(lines)-limit:], "\n")
}

// MemoryEntry is one turn recovered from the memory block.
type MemoryEntry struct {
	Transcription string
	Status        analysis.Status
}

// ParseMemory recovers the transcription and triage status of every line, in
// order. Lines that do not match the format are skipped.
func ParseMemory(memory string) []MemoryEntry {
	if memory == "" {
		return nil
	}
	var out []MemoryEntry
	for _, line := range strings.Split(memory, "\n") {
		if !strings.HasPrefix(line, memoryLinePrefix) {
			continue
		}
		rest := line[len(memoryLinePrefix):]
		// The transcription itself may contain quotes; anchor on the last
		// occurrence of the separator.
		i := strings.LastIndex(rest, memoryObservedSep)
		if i < 0 {
			continue
		}
		text := rest[:i]
		tail := rest[i+len(memoryObservedSep):]
		dot := strings.IndexByte(tail, '.')
		if dot < 0 {
			continue
		}
		status, err := analysis.ParseStatus(tail[:dot])
		if err != nil {
			continue
		}
		out = append(out, MemoryEntry{Transcription: text, Status: status})
	}
	return out
}

// TurnCount reports how many turns the memory currently holds.
func TurnCount(memory string) int {
	if memory == "" {
		return 0
	}
	return strings.Count(memory, "\n") + 1
}
