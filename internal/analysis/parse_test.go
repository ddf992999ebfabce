package analysis

import "testing"

const fullDoc = `{
  "context_analysis": {"estimated_age_group": "Adult", "communication_style": "Hesitant", "tone_adaptation": "gentle"},
  "analysis": {
    "transcription": "mujhe chakkar aa raha hai",
    "emotional_tone": "Resigned",
    "signals": ["dizziness", "fatigue"],
    "confidence": "High",
    "uncertainty_note": "",
    "stress_score": 62,
    "intent_flag": "Seeking help",
    "mismatch_detected": true,
    "sentiment_category": "Distressed"
  },
  "triage": {"status": "AMBER", "rationale": ["somatic distress"]},
  "copilot": {"suggested_script": "Didi, aap baithiye.", "next_steps": ["Check BP"]}
}`

func TestParseTurnResult_FullDocument(t *testing.T) {
	r, err := ParseTurnResult(fullDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Transcription != "mujhe chakkar aa raha hai" {
		t.Fatalf("transcription: %q", r.Transcription)
	}
	if r.Status != StatusAmber {
		t.Fatalf("status: %q", r.Status)
	}
	if len(r.Markers) != 2 || r.Markers[0] != "dizziness" {
		t.Fatalf("markers: %v", r.Markers)
	}
	if r.StressScore != 62 {
		t.Fatalf("stress: %d", r.StressScore)
	}
	if !r.Mismatch {
		t.Fatalf("expected mismatch flag")
	}
	if r.Intent != "Seeking help" {
		t.Fatalf("intent: %q", r.Intent)
	}
	if r.Confidence != "High" {
		t.Fatalf("confidence: %q", r.Confidence)
	}
	if r.Context.AgeGroup != "Adult" {
		t.Fatalf("age group: %q", r.Context.AgeGroup)
	}
}

func TestParseTurnResult_MinimalDocumentGetsDefaults(t *testing.T) {
	r, err := ParseTurnResult(`{"analysis": {"transcription": "hello"}, "triage": {"status": "GREEN"}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Status != StatusGreen {
		t.Fatalf("status: %q", r.Status)
	}
	if r.Markers == nil || len(r.Markers) != 0 {
		t.Fatalf("expected empty non-nil markers, got %v", r.Markers)
	}
	if r.StressScore != 0 {
		t.Fatalf("expected zero stress, got %d", r.StressScore)
	}
	if r.Confidence != "Medium" {
		t.Fatalf("expected Medium confidence default, got %q", r.Confidence)
	}
	if r.NextSteps == nil || r.Rationale == nil {
		t.Fatalf("expected non-nil lists")
	}
}

func TestParseTurnResult_MalformedOptionalFieldsDegrade(t *testing.T) {
	doc := `{
	  "analysis": {"transcription": "x", "signals": "not-a-list", "stress_score": "high", "mismatch_detected": 3, "confidence": "VERY HIGH"},
	  "triage": {"status": "RED", "rationale": 42}
	}`
	r, err := ParseTurnResult(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(r.Markers) != 0 || r.StressScore != 0 || r.Mismatch {
		t.Fatalf("expected defaults for malformed optional fields: %+v", r)
	}
	if r.Confidence != "Medium" {
		t.Fatalf("expected Medium for unknown confidence label, got %q", r.Confidence)
	}
	if len(r.Rationale) != 0 {
		t.Fatalf("expected empty rationale, got %v", r.Rationale)
	}
}

func TestParseTurnResult_RequiresStatus(t *testing.T) {
	if _, err := ParseTurnResult(`{"analysis": {"transcription": "x"}}`); err == nil {
		t.Fatalf("expected error for missing status")
	}
	if _, err := ParseTurnResult(`{"analysis": {"transcription": "x"}, "triage": {"status": "PURPLE"}}`); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if _, err := ParseTurnResult("not json at all"); err == nil {
		t.Fatalf("expected error for non-json body")
	}
	if !IsMalformedResponse(func() error { _, err := ParseTurnResult("{}"); return err }()) {
		t.Fatalf("expected malformed-response classification")
	}
}

func TestParseTurnResult_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + `{"analysis": {"transcription": "hi"}, "triage": {"status": "GREEN"}}` + "\n```"
	r, err := ParseTurnResult(fenced)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if r.Status != StatusGreen || r.Transcription != "hi" {
		t.Fatalf("unexpected result: %+v", r)
	}

	plainFence := "```\n" + `{"triage": {"status": "RED"}}` + "\n```"
	r, err = ParseTurnResult(plainFence)
	if err != nil {
		t.Fatalf("parse plain fence: %v", err)
	}
	if r.Status != StatusRed {
		t.Fatalf("status: %q", r.Status)
	}
}

func TestParseTurnResult_CollapsesLineBreaksInFreeText(t *testing.T) {
	doc := `{
	  "analysis": {"transcription": "first part\nsecond part", "intent_flag": "Crisis\r\nsignal"},
	  "triage": {"status": "AMBER"}
	}`
	r, err := ParseTurnResult(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Transcription != "first part second part" {
		t.Fatalf("transcription: %q", r.Transcription)
	}
	if r.Intent != "Crisis signal" {
		t.Fatalf("intent: %q", r.Intent)
	}
}

func TestParseTurnResult_ClampsStressScore(t *testing.T) {
	r, err := ParseTurnResult(`{"analysis": {"stress_score": 180}, "triage": {"status": "RED"}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.StressScore != 100 {
		t.Fatalf("expected clamp to 100, got %d", r.StressScore)
	}
	r, err = ParseTurnResult(`{"analysis": {"stress_score": -5}, "triage": {"status": "GREEN"}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.StressScore != 0 {
		t.Fatalf("expected clamp to 0, got %d", r.StressScore)
	}
}
