package sani

import (
	"regexp"
	"strings"
)

var (
	responseBlockRe = regexp.MustCompile(`(?is)\[RESPONSE\](.*?)\[/RESPONSE\]`)
	actionBlockRe   = regexp.MustCompile(`(?is)\[ACTION\](.*?)\[/ACTION\]`)

	actionIntentRe  = regexp.MustCompile(`INTENT:\s*([A-Z0-9_]+)`)
	actionNavRe     = regexp.MustCompile(`NAVIGATE:\s*"([^"]+)"`)
	actionFormRe    = regexp.MustCompile(`(?s)FILL_FORM:\s*\{(.*?)\}`)
	actionConfirmRe = regexp.MustCompile(`ASK_CONFIRM:\s*"([^"]+)"`)
)

// RawPayload is form data passed through verbatim from the model. It is
// never parsed here; the consumer brings its own parser.
type RawPayload string

// StructuredReply is the tagged-protocol view of one model output.
// ResponseText is always set.
type StructuredReply struct {
	Raw          string      `json:"raw"`
	ResponseText string      `json:"response_text"`
	Intent       *string     `json:"intent"`
	Navigate     *string     `json:"navigate"`
	FillForm     *RawPayload `json:"fill_form"`
	AskConfirm   *string     `json:"ask_confirm"`
}

// HasAction reports whether any action field was extracted.
func (r StructuredReply) HasAction() bool {
	return r.Intent != nil || r.Navigate != nil || r.FillForm != nil || r.AskConfirm != nil
}

// Canonical validates the declared action intent against the enumeration.
func (r StructuredReply) Canonical() (CanonicalIntent, bool) {
	if r.Intent == nil {
		return Other, false
	}
	return ParseCanonicalIntent(*r.Intent)
}

// ExtractStructuredReply splits raw model output into the reply text and
// the optional action fields. Missing blocks are not an error: without a
// [RESPONSE] block the whole trimmed text is the reply.
func ExtractStructuredReply(raw string) StructuredReply {
	out := StructuredReply{Raw: raw}

	if m := responseBlockRe.FindStringSubmatch(raw); m != nil {
		out.ResponseText = strings.TrimSpace(m[1])
	} else {
		out.ResponseText = strings.TrimSpace(raw)
	}

	if m := actionBlockRe.FindStringSubmatch(raw); m != nil {
		parseActionFields(strings.TrimSpace(m[1]), &out)
	}
	return out
}

func parseActionFields(action string, out *StructuredReply) {
	if m := actionIntentRe.FindStringSubmatch(action); m != nil {
		out.Intent = strPtr(m[1])
	}
	if m := actionNavRe.FindStringSubmatch(action); m != nil {
		out.Navigate = strPtr(strings.TrimSpace(m[1]))
	}
	if m := actionFormRe.FindStringSubmatch(action); m != nil {
		p := RawPayload("{\n" + strings.TrimSpace(m[1]) + "\n}")
		out.FillForm = &p
	}
	if m := actionConfirmRe.FindStringSubmatch(action); m != nil {
		out.AskConfirm = strPtr(strings.TrimSpace(m[1]))
	}
}

func strPtr(s string) *string { return &s }
