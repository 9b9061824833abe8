package sani

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NluResult is the classifier reply after normalization.
type NluResult struct {
	IntentRaw string `json:"intent_raw"`
	Slots     Slots  `json:"slots"`
}

// ParseStage tells how the classifier reply was decoded.
type ParseStage string

const (
	StageDirect    ParseStage = "direct"
	StageExtracted ParseStage = "extracted"
	StageFailed    ParseStage = "failed"
)

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseNLU decodes a JSON-ish classifier reply. It tries the whole text,
// then the widest {...} span. When both fail the result is
// {intent_raw: "other", slots: {}} with StageFailed.
func ParseNLU(raw string) (NluResult, ParseStage) {
	if payload, ok := decodeObject(strings.TrimSpace(raw)); ok {
		return normalizeNLU(payload), StageDirect
	}
	if span := jsonObjectRe.FindString(raw); span != "" {
		if payload, ok := decodeObject(span); ok {
			return normalizeNLU(payload), StageExtracted
		}
	}
	return NluResult{IntentRaw: "other", Slots: Slots{}}, StageFailed
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func normalizeNLU(payload map[string]any) NluResult {
	out := NluResult{IntentRaw: "other", Slots: Slots{}}
	if s, ok := payload["intent"].(string); ok && strings.TrimSpace(s) != "" {
		out.IntentRaw = strings.ToLower(strings.TrimSpace(s))
	}
	if raw, ok := payload["slots"].(map[string]any); ok {
		for k, v := range raw {
			out.Slots[k] = coerceString(v)
		}
	}
	for _, k := range SlotKeys {
		if _, ok := out.Slots[k]; !ok {
			out.Slots[k] = ""
		}
	}
	return out
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
