package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// WebhookRequest is the subset of Twilio's inbound message form we consume.
type WebhookRequest struct {
	MessageSid  string
	AccountSid  string
	From        string
	To          string
	Body        string
	ProfileName string
}

// ParseWebhook extracts the message fields from a Twilio form POST.
func ParseWebhook(r *http.Request) (*WebhookRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse webhook form: %w", err)
	}
	return &WebhookRequest{
		MessageSid:  strings.TrimSpace(r.FormValue("MessageSid")),
		AccountSid:  strings.TrimSpace(r.FormValue("AccountSid")),
		From:        strings.TrimSpace(r.FormValue("From")),
		To:          strings.TrimSpace(r.FormValue("To")),
		Body:        r.FormValue("Body"),
		ProfileName: strings.TrimSpace(r.FormValue("ProfileName")),
	}, nil
}

// ValidateSignature checks the X-Twilio-Signature header: HMAC-SHA1 over the
// full URL concatenated with the sorted form parameters, keyed by the auth
// token.
func ValidateSignature(r *http.Request, authToken, url string) bool {
	if authToken == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	keys := make([]string, 0, len(r.PostForm))
	for k := range r.PostForm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(r.PostForm.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	provided := r.Header.Get("X-Twilio-Signature")
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
