package session

// HistoryEntry is one transcribed turn with its flagged markers, kept for
// display and audit. History is never replayed into the analysis request; the
// memory block is a separate, compressed representation.
type HistoryEntry struct {
	Transcription string   `json:"transcription"`
	Markers       []string `json:"markers"`
}

// history is an ordered, append-only log of turns. Entries are only removed
// by whole-session reset, and consecutive duplicates are kept: one successful
// analysis call yields exactly one entry.
type history struct {
	entries []HistoryEntry
}

func (h *history) append(transcription string, markers []string) {
	m := make([]string, len(markers))
	copy(m, markers)
	h.entries = append(h.entries, HistoryEntry{Transcription: transcription, Markers: m})
}

func (h *history) snapshot() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *history) len() int { return len(h.entries) }

func (h *history) reset() { h.entries = nil }
