package sani

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStructuredReply_NoResponseBlock(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Halo, ada yang bisa saya bantu?",
		"  teks dengan spasi  \n",
		"[ACTION]INTENT: LOGIN[/ACTION] silakan login",
		"[RESPONSE] tanpa penutup",
	}
	for _, raw := range inputs {
		got := ExtractStructuredReply(raw)
		assert.Equal(t, strings.TrimSpace(raw), got.ResponseText, "raw=%q", raw)
		assert.Equal(t, raw, got.Raw)
	}
}

func TestExtractStructuredReply_ResponseBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "[RESPONSE]Halo[/RESPONSE]", "Halo"},
		{"surrounding text", "noise before\n[RESPONSE]\n  Baik, saya bantu.  \n[/RESPONSE]\nnoise after", "Baik, saya bantu."},
		{"lower case tags", "[response]ok[/response]", "ok"},
		{"multiline", "[RESPONSE]baris 1\nbaris 2[/RESPONSE]", "baris 1\nbaris 2"},
		{"with action", "[RESPONSE]Siap[/RESPONSE][ACTION]INTENT: LOGIN[/ACTION]", "Siap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractStructuredReply(tt.raw).ResponseText)
		})
	}
}

func TestExtractStructuredReply_ActionIntent(t *testing.T) {
	for _, tok := range []string{"FOO", "LOGIN", "REGISTER_FKTP_QUEUE", "X1_2"} {
		got := ExtractStructuredReply("[ACTION]INTENT: " + tok + "[/ACTION]")
		require.NotNil(t, got.Intent, tok)
		assert.Equal(t, tok, *got.Intent)
	}
}

func TestExtractStructuredReply_AllFields(t *testing.T) {
	raw := `[RESPONSE]Baik, saya arahkan ke menu antrean.[/RESPONSE]
[ACTION]
INTENT: REGISTER_FKTP_QUEUE
NAVIGATE: "/antrean/fktp"
FILL_FORM: {
  "faskes": "Puskesmas Menteng"
}
ASK_CONFIRM: "Lanjut daftar antrean?"
[/ACTION]`

	got := ExtractStructuredReply(raw)
	assert.Equal(t, "Baik, saya arahkan ke menu antrean.", got.ResponseText)
	require.NotNil(t, got.Intent)
	assert.Equal(t, "REGISTER_FKTP_QUEUE", *got.Intent)
	require.NotNil(t, got.Navigate)
	assert.Equal(t, "/antrean/fktp", *got.Navigate)
	require.NotNil(t, got.FillForm)
	assert.Equal(t, RawPayload("{\n\"faskes\": \"Puskesmas Menteng\"\n}"), *got.FillForm)
	require.NotNil(t, got.AskConfirm)
	assert.Equal(t, "Lanjut daftar antrean?", *got.AskConfirm)
	assert.True(t, got.HasAction())

	ci, ok := got.Canonical()
	assert.True(t, ok)
	assert.Equal(t, RegisterFKTPQueue, ci)
}

func TestExtractStructuredReply_FieldsIndependent(t *testing.T) {
	got := ExtractStructuredReply(`[ACTION]ASK_CONFIRM: "Yakin?" NAVIGATE: "/home"[/ACTION]`)
	assert.Nil(t, got.Intent)
	assert.Nil(t, got.FillForm)
	require.NotNil(t, got.Navigate)
	assert.Equal(t, "/home", *got.Navigate)
	require.NotNil(t, got.AskConfirm)
	assert.Equal(t, "Yakin?", *got.AskConfirm)

	none := ExtractStructuredReply("[RESPONSE]hai[/RESPONSE]")
	assert.False(t, none.HasAction())
	_, ok := none.Canonical()
	assert.False(t, ok)
}

func TestExtractStructuredReply_UnknownIntentNotCanonical(t *testing.T) {
	got := ExtractStructuredReply("[ACTION]INTENT: FOO[/ACTION]")
	ci, ok := got.Canonical()
	assert.False(t, ok)
	assert.Equal(t, Other, ci)
}

func TestStructuredReply_JSONNulls(t *testing.T) {
	b, err := json.Marshal(ExtractStructuredReply("hai"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"hai","response_text":"hai","intent":null,"navigate":null,"fill_form":null,"ask_confirm":null}`, string(b))
}
