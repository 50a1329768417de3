package messaging

import "testing"

func TestSanitizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (415) 555-0000", "14155550000"},
		{"whatsapp:+14155550000", "14155550000"},
		{"415.555.0000", "4155550000"},
		{"no digits", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizePhone(tc.in); got != tc.want {
			t.Errorf("SanitizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"whatsapp:+14155550000", "+14155550000"},
		{" +1 415 555 0000 ", "+14155550000"},
		{"14155550000", "+14155550000"},
		{"whatsapp:", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWhatsAppAddress(t *testing.T) {
	if got := WhatsAppAddress("+1 415 555 0000"); got != "whatsapp:+14155550000" {
		t.Errorf("WhatsAppAddress = %q", got)
	}
	if got := WhatsAppAddress(""); got != "" {
		t.Errorf("WhatsAppAddress(empty) = %q", got)
	}
}
