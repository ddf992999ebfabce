package session

import "github.com/MonsterRookie/ashalytics/internal/analysis"

// OverridePolicy controls when a human override releases authority back to
// the AI signal.
type OverridePolicy int

const (
	// OverrideSticky keeps an override active until it is explicitly cleared
	// or the session is reset.
	OverrideSticky OverridePolicy = iota
	// OverrideReleasedOnCapture clears the override when a new turn begins,
	// letting the next AI result retake authority.
	OverrideReleasedOnCapture
)

// triageState holds the authoritative triage status: the latest AI
// recommendation plus an optional human override. The effective status is
// derivable from the two fields alone.
type triageState struct {
	ai       analysis.Status
	override analysis.Status
}

// Effective returns the status to render: the override when present,
// otherwise the latest AI recommendation, otherwise none.
func (t triageState) Effective() analysis.Status {
	if t.override != analysis.StatusNone {
		return t.override
	}
	return t.ai
}

// observeAI records a new AI recommendation. It never touches the override;
// a human decision is not superseded by a later AI result.
func (t *triageState) observeAI(s analysis.Status) {
	t.ai = s
}

// setOverride records a human override. Always succeeds, including replacing
// a previous override.
func (t *triageState) setOverride(s analysis.Status) {
	t.override = s
}

func (t *triageState) clearOverride() {
	t.override = analysis.StatusNone
}

func (t *triageState) reset() {
	t.ai = analysis.StatusNone
	t.override = analysis.StatusNone
}
