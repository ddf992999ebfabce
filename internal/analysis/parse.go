package analysis

import (
	"encoding/json"
	"strings"
)

// serviceDocument is the raw shape of the service's JSON output. Every field
// is decoded leniently: optional fields use json.RawMessage so a single
// malformed value degrades to its default instead of failing the document.
type serviceDocument struct {
	ContextAnalysis struct {
		AgeGroup           string `json:"estimated_age_group"`
		CommunicationStyle string `json:"communication_style"`
		ToneAdaptation     string `json:"tone_adaptation"`
	} `json:"context_analysis"`
	Analysis struct {
		Transcription   string          `json:"transcription"`
		EmotionalTone   string          `json:"emotional_tone"`
		Signals         json.RawMessage `json:"signals"`
		Confidence      string          `json:"confidence"`
		UncertaintyNote string          `json:"uncertainty_note"`
		StressScore     json.RawMessage `json:"stress_score"`
		IntentFlag      string          `json:"intent_flag"`
		Mismatch        json.RawMessage `json:"mismatch_detected"`
		Sentiment       string          `json:"sentiment_category"`
	} `json:"analysis"`
	Triage struct {
		Status    string          `json:"status"`
		Rationale json.RawMessage `json:"rationale"`
	} `json:"triage"`
	Copilot struct {
		SuggestedScript string          `json:"suggested_script"`
		NextSteps       json.RawMessage `json:"next_steps"`
	} `json:"copilot"`
}

// stripFences removes a leading/trailing markdown code fence the service
// sometimes wraps its JSON in.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// A language tag may follow the opening fence, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "json" || first == "" {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func boundedScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	n := int(f)
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// oneLine collapses line breaks in free-text fields. Transcription and intent
// are embedded verbatim into the per-turn session memory line, which must stay
// a single line.
var oneLine = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func boolFlag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// ParseTurnResult validates one raw service response body. The triage status
// is required; everything else is individually defaulted.
func ParseTurnResult(raw string) (*TurnResult, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, malformed("empty response body")
	}

	var doc serviceDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, malformed("decode response: %w", err)
	}

	status, err := ParseStatus(doc.Triage.Status)
	if err != nil {
		return nil, malformed("triage status: %w", err)
	}

	confidence := doc.Analysis.Confidence
	switch confidence {
	case "High", "Medium", "Low":
	default:
		confidence = "Medium"
	}

	return &TurnResult{
		Transcription:   oneLine.Replace(doc.Analysis.Transcription),
		Status:          status,
		Markers:         stringList(doc.Analysis.Signals),
		Rationale:       stringList(doc.Triage.Rationale),
		StressScore:     boundedScore(doc.Analysis.StressScore),
		Intent:          oneLine.Replace(doc.Analysis.IntentFlag),
		Mismatch:        boolFlag(doc.Analysis.Mismatch),
		Sentiment:       doc.Analysis.Sentiment,
		Confidence:      confidence,
		EmotionalTone:   doc.Analysis.EmotionalTone,
		UncertaintyNote: doc.Analysis.UncertaintyNote,
		SuggestedScript: doc.Copilot.SuggestedScript,
		NextSteps:       stringList(doc.Copilot.NextSteps),
		Context: ContextProfile{
			AgeGroup:           doc.ContextAnalysis.AgeGroup,
			CommunicationStyle: doc.ContextAnalysis.CommunicationStyle,
			ToneAdaptation:     doc.ContextAnalysis.ToneAdaptation,
		},
	}, nil
}
