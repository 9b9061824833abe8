package sani

import "strings"

// CanonicalIntent is the closed set of actions understood by the client app.
type CanonicalIntent string

const (
	RegisterFKTPQueue   CanonicalIntent = "REGISTER_FKTP_QUEUE"
	RegisterFRTLQueue   CanonicalIntent = "REGISTER_FRTL_QUEUE"
	RegisterBranchQueue CanonicalIntent = "REGISTER_BRANCH_QUEUE"
	Login               CanonicalIntent = "LOGIN"
	RegisterAccount     CanonicalIntent = "REGISTER_ACCOUNT"
	UpdateProfile       CanonicalIntent = "UPDATE_PROFILE"
	PayBill             CanonicalIntent = "PAY_BILL"
	ReactivateBPJS      CanonicalIntent = "REACTIVATE_BPJS"
	Other               CanonicalIntent = "OTHER"
)

var canonicalIntents = []CanonicalIntent{
	RegisterFKTPQueue,
	RegisterFRTLQueue,
	RegisterBranchQueue,
	Login,
	RegisterAccount,
	UpdateProfile,
	PayBill,
	ReactivateBPJS,
	Other,
}

// CanonicalIntents returns every member of the enumeration, OTHER last.
func CanonicalIntents() []CanonicalIntent {
	out := make([]CanonicalIntent, len(canonicalIntents))
	copy(out, canonicalIntents)
	return out
}

// ParseCanonicalIntent validates a declared intent token. Unknown tokens
// report false and map to OTHER.
func ParseCanonicalIntent(s string) (CanonicalIntent, bool) {
	want := CanonicalIntent(strings.ToUpper(strings.TrimSpace(s)))
	for _, ci := range canonicalIntents {
		if ci == want {
			return ci, true
		}
	}
	return Other, false
}

func (c CanonicalIntent) String() string { return string(c) }

// Slot keys declared by the NLU prompt. All of them are present after
// normalization.
const (
	SlotNama    = "nama"
	SlotRS      = "rs"
	SlotFaskes  = "faskes"
	SlotKota    = "kota"
	SlotTanggal = "tanggal"
	SlotField   = "field"
)

var SlotKeys = []string{SlotNama, SlotRS, SlotFaskes, SlotKota, SlotTanggal, SlotField}

type Slots map[string]string

func (s Slots) clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// IntentParseResult is the externally visible output of classification.
type IntentParseResult struct {
	Intent CanonicalIntent `json:"intent"`
	Slots  Slots           `json:"slots"`
}

func otherResult() IntentParseResult {
	return IntentParseResult{Intent: Other, Slots: Slots{}}
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry of caller-owned conversation history.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

func (t ChatTurn) Valid() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}
