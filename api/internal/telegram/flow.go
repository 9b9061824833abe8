package telegram

import (
	"strings"

	"sani-bot/api/internal/sani"
)

var (
	yesWords = []string{"ya", "iya", "boleh", "ok", "oke", "lanjut"}
	noWords  = []string{"tidak", "ga", "gak", "nggak", "jangan", "no"}
)

const (
	ackYes = "Baik, saya jalankan bantuannya ya. 👌"
	ackNo  = "Baik, saya tidak akan mengisi otomatis. Saya arahkan dan jelaskan langkah umumnya saja ya. 🙏"

	templateThanks = "Terima kasih, datanya sudah saya catat. Silakan buka halaman antrean di aplikasi Mobile JKN, " +
		"lalu salin isian yang tadi Anda kirim ke form antrean sebelum menekan tombol Simpan."
)

// answer: 1 да, -1 нет, 0 обычный текст. Сравнение по целому сообщению.
func answer(text string) int {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, w := range yesWords {
		if t == w {
			return 1
		}
	}
	for _, w := range noWords {
		if t == w {
			return -1
		}
	}
	return 0
}

// plan: что бот говорит после ответа на интент.
type plan struct {
	Text     string
	Confirm  bool   // нужна кнопка ya/tidak
	Yes      string // после "ya"
	No       string // после "tidak"
	Template bool   // после "ya" ждём заполненный шаблон
}

func displayName(slots sani.Slots) string {
	if n := strings.TrimSpace(slots[sani.SlotNama]); n != "" {
		return n
	}
	return "Peserta JKN"
}

func fieldLabel(slots sani.Slots) string {
	f := strings.ToLower(slots[sani.SlotField])
	switch {
	case strings.Contains(f, "faskes"):
		return "Faskes Tingkat I"
	case strings.Contains(f, "hp"), strings.Contains(f, "phone"):
		return "Nomor Handphone"
	case strings.Contains(f, "email"):
		return "Email"
	case strings.Contains(f, "alamat"):
		return "Alamat"
	default:
		return "data peserta"
	}
}

// planFor строит продолжение для интента. OTHER и REGISTER_BRANCH_QUEUE без продолжения.
func planFor(res sani.IntentParseResult) (plan, bool) {
	switch res.Intent {
	case sani.RegisterFKTPQueue:
		return plan{
			Text: "Dari pertanyaan Anda, sepertinya Anda ingin daftar antrean di Faskes Tingkat Pertama (puskesmas/klinik) untuk " +
				displayName(res.Slots) + ".\n\n" +
				"Saya bisa membantu menyiapkan template pengisian form antrean FKTP sehingga Anda lebih mudah mengisi datanya.\n\n" +
				"Apakah Anda ingin saya bantu seperti itu? Balas \"ya\" jika setuju, atau \"tidak\" jika ingin mengisi sendiri.",
			Confirm: true,
			Yes: "Oke, saya kirim template isi form antrean FKTP ya.\n\n" +
				"Silakan balas di chat dengan format seperti ini:\n" +
				"Nama Peserta: (contoh: Budi Santoso)\n" +
				"Poli: (contoh: POLI UMUM / POLI ANAK / POLI GIGI & MULUT)\n" +
				"Tanggal Kunjungan: (contoh: 21-11-2025 atau \"besok pagi\")\n" +
				"Keluhan: (contoh: batuk dan demam sejak 3 hari)",
			No:       "Silakan buka menu Pendaftaran Pelayanan (Antrean) lalu pilih Faskes Tingkat Pertama di aplikasi Mobile JKN.",
			Template: true,
		}, true
	case sani.RegisterFRTLQueue:
		return plan{
			Text: "Saya memahami Anda ingin daftar antrean di Rumah Sakit (Faskes Rujukan Tingkat Lanjut) untuk " +
				displayName(res.Slots) + ".\n\n" +
				"Saya bisa bantu menyiapkan contoh pengisian tanggal dan dokter.\n\n" +
				"Apakah Anda ingin saya bantu isi dalam bentuk template? Balas \"ya\" atau \"tidak\".",
			Confirm: true,
			Yes: "Oke, saya kirim template antrean rumah sakit (FKRTL).\n\n" +
				"Silakan balas di chat dengan format:\n" +
				"Nama Peserta: ...\n" +
				"Nama RS: ... (contoh: RSUD ODSK)\n" +
				"Poli: ... (contoh: SARAF / JANTUNG / ANAK)\n" +
				"Tanggal Kunjungan: ... (contoh: 25-11-2025)\n" +
				"Dokter (jika sudah ditentukan): ...",
			No:       "Silakan buka menu Pendaftaran Pelayanan (Antrean) lalu pilih Faskes Rujukan Tingkat Lanjut di aplikasi Mobile JKN.",
			Template: true,
		}, true
	case sani.UpdateProfile:
		return plan{
			Text: "Anda ingin mengubah " + fieldLabel(res.Slots) + " di data peserta JKN.\n\n" +
				"Saya bisa menjelaskan data apa saja yang perlu disiapkan di halaman Perubahan Data Peserta.\n\n" +
				"Mau saya bantu? Balas \"ya\" atau \"tidak\".",
			Confirm: true,
			Yes: "Di halaman Perubahan Data Peserta, silakan pilih peserta yang datanya ingin diubah, " +
				"lalu pilih baris data yang sesuai (misalnya Nomor Handphone, Alamat, atau Faskes Tingkat I). " +
				"Ikuti instruksi di layar sampai perubahan tersimpan.",
			No: "Silakan buka menu Perubahan Data Peserta di aplikasi Mobile JKN.",
		}, true
	case sani.RegisterAccount:
		return plan{
			Text: "Anda ingin mendaftar akun Mobile JKN.\n\n" +
				"Saya bisa menjelaskan data apa saja yang perlu Anda siapkan sebelum mengisi form registrasi.\n\n" +
				"Apakah Anda ingin saya bantu? Balas \"ya\" atau \"tidak\".",
			Confirm: true,
			Yes: "Di halaman Registrasi, siapkan data berikut:\n" +
				"- NIK sesuai KTP (16 digit).\n" +
				"- Nama lengkap seperti di KTP.\n" +
				"- Nomor HP aktif.\n" +
				"- Email (jika ada).\n" +
				"- Password yang aman (minimal 6 karakter, ada huruf besar, huruf kecil, dan angka).",
			No: "Silakan buka menu Registrasi di aplikasi Mobile JKN.",
		}, true
	case sani.PayBill:
		return plan{Text: "Anda ingin melihat atau membayar iuran JKN.\n\n" +
			"Silakan buka menu Info Riwayat Pembayaran untuk melihat tagihan yang sudah dibayar dan status pembayarannya."}, true
	case sani.ReactivateBPJS:
		return plan{Text: "Anda ingin mengaktifkan kembali kepesertaan JKN.\n\n" +
			"Biasanya langkahnya: pastikan semua iuran sudah dilunasi, lalu cek status di menu kepesertaan dalam beberapa hari kerja. " +
			"Jika masih nonaktif, hubungi BPJS atau daftar antrean ke kantor cabang."}, true
	case sani.Login:
		return plan{Text: "Untuk login Mobile JKN, gunakan NIK/Email/No Kepesertaan dan password yang sudah terdaftar."}, true
	}
	return plan{}, false
}
