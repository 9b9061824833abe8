package sani

import "strings"

// Keywords are the lower-case trigger tables used by the Mapper. Replace
// them for another locale.
type Keywords struct {
	Facility     []string // first-level facility (FKTP)
	Hospital     []string // referral facility (FKRTL)
	Account      []string // account registration phrases
	Queue        []string
	ProfileVerbs []string
	Billing      []string
	Active       []string
	Again        []string
	Login        []string
	Exclude      []string // blanked out before matching ("nonaktif" is not "aktif")
}

var DefaultKeywords = Keywords{
	Facility:     []string{"puskesmas", "klinik", "faskes", "fktp", "dokter keluarga"},
	Hospital:     []string{"rumah sakit", "rs", "rsud", "fkrtl", "poli"},
	Account:      []string{"daftar akun", "buat akun", "bikin akun", "registrasi akun", "akun baru", "daftar jkn"},
	Queue:        []string{"antri", "antre"},
	ProfileVerbs: []string{"pindah", "ubah", "ganti", "perubahan"},
	Billing:      []string{"tagihan", "iuran", "bayar", "tunggakan", "denda"},
	Active:       []string{"aktif", "aktivasi"},
	Again:        []string{"lagi", "kembali"},
	Login:        []string{"login", "masuk", "password", "lupa sandi", "kata sandi"},
	Exclude:      []string{"nonaktif", "termasuk", "polisi", "politik"},
}

// Rule is one keyword override. Apply receives the lower-cased message with
// Keywords.Exclude blanked out and a private copy of the slots; it may set
// slot defaults when it matches.
type Rule struct {
	Name  string
	Apply func(msg string, slots Slots) (CanonicalIntent, bool)
}

// Mapper turns a raw classifier intent plus the user message into a
// CanonicalIntent. The base mapping runs first, then the first matching
// Rule overrides it.
type Mapper struct {
	kw    Keywords
	rules []Rule
}

func NewMapper(kw Keywords) *Mapper {
	kw = Keywords{
		Facility:     lowerAll(kw.Facility),
		Hospital:     lowerAll(kw.Hospital),
		Account:      lowerAll(kw.Account),
		Queue:        lowerAll(kw.Queue),
		ProfileVerbs: lowerAll(kw.ProfileVerbs),
		Billing:      lowerAll(kw.Billing),
		Active:       lowerAll(kw.Active),
		Again:        lowerAll(kw.Again),
		Login:        lowerAll(kw.Login),
		Exclude:      lowerAll(kw.Exclude),
	}
	return &Mapper{kw: kw, rules: overrideRules(kw)}
}

var defaultMapper = NewMapper(DefaultKeywords)

// Rules returns the override chain in evaluation order.
func (m *Mapper) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Map is total and deterministic. The input slots are never mutated.
func (m *Mapper) Map(message, intentRaw string, slots Slots) IntentParseResult {
	msg := maskWords(strings.ToLower(message), m.kw.Exclude)
	out := slots.clone()

	intent := m.base(msg, strings.ToLower(strings.TrimSpace(intentRaw)), out)
	for _, r := range m.rules {
		if ci, ok := r.Apply(msg, out); ok {
			intent = ci
			break
		}
	}
	return IntentParseResult{Intent: intent, Slots: out}
}

func (m *Mapper) base(msg, intentRaw string, slots Slots) CanonicalIntent {
	switch intentRaw {
	case "daftar_rs":
		if containsAnyWord(msg, m.kw.Facility) {
			return RegisterFKTPQueue
		}
		return RegisterFRTLQueue
	case "pindah_faskes":
		defaultField(slots)
		return UpdateProfile
	default:
		return Other
	}
}

func defaultField(slots Slots) {
	if strings.TrimSpace(slots[SlotField]) == "" {
		slots[SlotField] = "faskes"
	}
}

func overrideRules(kw Keywords) []Rule {
	return []Rule{
		{Name: "account", Apply: func(msg string, _ Slots) (CanonicalIntent, bool) {
			return RegisterAccount, containsAnyWord(msg, kw.Account)
		}},
		{Name: "queue", Apply: func(msg string, _ Slots) (CanonicalIntent, bool) {
			if !containsAnyWord(msg, kw.Queue) {
				return Other, false
			}
			switch {
			case containsAnyWord(msg, kw.Facility):
				return RegisterFKTPQueue, true
			case containsAnyWord(msg, kw.Hospital):
				return RegisterFRTLQueue, true
			}
			return Other, false
		}},
		{Name: "profile", Apply: func(msg string, slots Slots) (CanonicalIntent, bool) {
			if !containsAnyWord(msg, kw.ProfileVerbs) || !containsWord(msg, "faskes") {
				return Other, false
			}
			defaultField(slots)
			return UpdateProfile, true
		}},
		{Name: "billing", Apply: func(msg string, _ Slots) (CanonicalIntent, bool) {
			return PayBill, containsAnyWord(msg, kw.Billing)
		}},
		{Name: "reactivate", Apply: func(msg string, _ Slots) (CanonicalIntent, bool) {
			return ReactivateBPJS, containsAnyWord(msg, kw.Active) && containsAnyWord(msg, kw.Again)
		}},
		{Name: "login", Apply: func(msg string, _ Slots) (CanonicalIntent, bool) {
			return Login, containsAnyWord(msg, kw.Login)
		}},
	}
}
