package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// systemPrompt instructs the service. Triage decisions, script generation and
// all sentiment reasoning live on the service side; this layer only renders
// validated output.
const systemPrompt = `ROLE:
You are "ASHAlytics", a digital supervisor for ASHA workers in rural India.
INPUT: You will receive audio of a patient interaction, plus a text log of
prior turns in this session. Use the log for continuity; the audio is the
current turn.

STRICT DEFINITIONS:
1. SOMATIC SYMPTOMS: Physical body sensations ONLY (e.g., "Headache", "Chest heaviness").
2. PSYCHOLOGICAL MARKERS: Thoughts, wishes, or emotions (e.g., "Wish to die", "Hopelessness").

BOUNDARIES (NON-NEGOTIABLE):
- DO NOT DIAGNOSE.
- DO NOT PRESCRIBE MEDICATION.
- DO NOT PROVIDE SUICIDE PROBABILITY SCORES.
- Flag patterns only.
- Replace names with "[REDACTED]".

ESTIMATE CONTEXT:
- Detect Life-stage from voice/content: Child | Adolescent | Adult | Elderly
- Detect Communication Style: Hesitant | Formal | Aggressive | Resigned

TRIAGE LOGIC:
- GREEN: Normal / Low Distress.
- AMBER: Somatic distress, social withdrawal, or moderate anxiety.
- RED: Self-harm content, suicide ideation ("Marna", "Khatam karna"), domestic abuse, or immediate danger.

OUTPUT SCHEMA (STRICT JSON):
{
  "context_analysis": {
     "estimated_age_group": "Child | Adolescent | Adult | Elderly",
     "communication_style": "String description",
     "tone_adaptation": "Why this script tone?"
  },
  "analysis": {
    "transcription": "Text of what was said (redacted).",
    "emotional_tone": "Qualitative (e.g., 'Resigned', 'Agitated')",
    "signals": ["List critical signals found"],
    "confidence": "High | Medium | Low",
    "uncertainty_note": "Explain limitations or if audio was unclear.",
    "stress_score": 0,
    "intent_flag": "Short intent label",
    "mismatch_detected": false,
    "sentiment_category": "Neutral | Distressed | ..."
  },
  "triage": {
    "status": "GREEN | AMBER | RED",
    "rationale": ["Reason 1", "Reason 2"]
  },
  "copilot": {
    "suggested_script": "Conversational Hindi/Hinglish. Use 'Didi', 'Amma', or 'Beta' based on age. ADAPT TONE to estimated context.",
    "next_steps": ["Step 1", "Step 2"]
  }
}`

// GeminiClient talks to the generateContent endpoint. One outbound request per
// Analyze invocation; retries are the caller's decision.
type GeminiClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	BaseURL    string
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		ResponseMimeType string `json:"response_mime_type,omitempty"`
	} `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGeminiClient constructs a client with the default endpoint and a timeout
// inside the 30-60s band expected for a single audio analysis call.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		HTTPClient: &http.Client{Timeout: 45 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
	}
}

// Analyze sends one turn's audio plus the running session memory and returns a
// validated TurnResult. An empty payload fails with ErrNoAudio before any
// request is made.
func (c *GeminiClient) Analyze(ctx context.Context, audio []byte, mimeType, memory string) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	if c.APIKey == "" {
		return nil, serviceFailure("gemini api key missing")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	parts := []geminiPart{}
	if memory != "" {
		parts = append(parts, geminiPart{Text: "PRIOR TURNS THIS SESSION:\n" + memory})
	}
	parts = append(parts, geminiPart{InlineData: &geminiInlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(audio),
	}})

	reqPayload := generateContentRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
	}
	reqPayload.GenerationConfig.ResponseMimeType = "application/json"

	body, _ := json.Marshal(reqPayload)
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, serviceFailure("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, serviceFailure("gemini request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, serviceFailure("gemini error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var gr generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, malformed("decode envelope: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, malformed("no candidates in response")
	}
	return ParseTurnResult(gr.Candidates[0].Content.Parts[0].Text)
}
