package messaging

import (
	"regexp"
	"strings"
)

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// SanitizePhone strips everything but digits, including any "whatsapp:" prefix.
func SanitizePhone(value string) string {
	if value == "" {
		return ""
	}
	digits := phoneDigitsRe.FindAllString(value, -1)
	return strings.Join(digits, "")
}

// NormalizeE164 returns a +digits form suitable for lookups and sends.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "whatsapp:"))
	if value == "" {
		return ""
	}
	digits := SanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WhatsAppAddress prefixes an E.164 number for the WhatsApp channel.
func WhatsAppAddress(e164 string) string {
	e164 = NormalizeE164(e164)
	if e164 == "" {
		return ""
	}
	return "whatsapp:" + e164
}
