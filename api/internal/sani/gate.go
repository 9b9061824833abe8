package sani

import "strings"

// DefaultGateKeywords trigger NLU classification. Anything else is casual
// chat and never produces an action.
var DefaultGateKeywords = []string{
	// antrean / pendaftaran
	"antri", "antre", "daftar", "pendaftaran", "registrasi", "akun",
	// fasilitas
	"puskesmas", "klinik", "faskes", "fktp", "fkrtl", "rumah sakit", "rs", "poli", "dokter",
	// perubahan data
	"pindah", "ubah", "ganti", "perubahan",
	// iuran
	"tagihan", "iuran", "bayar", "tunggakan", "denda",
	// kepesertaan
	"aktif", "nonaktif", "aktivasi",
	// login
	"login", "masuk", "password",
}

// DefaultGateExclude are words whose parts look like keywords but are not
// requests ("termasuk" contains "masuk").
var DefaultGateExclude = []string{"termasuk", "polisi", "politik"}

type Gate struct {
	keywords []string
	exclude  []string
}

// NewGate builds a Gate over keywords, or DefaultGateKeywords when none are
// given.
func NewGate(keywords ...string) *Gate {
	if len(keywords) == 0 {
		keywords = DefaultGateKeywords
	}
	return &Gate{keywords: lowerAll(keywords), exclude: lowerAll(DefaultGateExclude)}
}

// Pass reports whether message mentions at least one functional keyword.
func (g *Gate) Pass(message string) bool {
	return containsAnyWord(maskWords(strings.ToLower(message), g.exclude), g.keywords)
}
