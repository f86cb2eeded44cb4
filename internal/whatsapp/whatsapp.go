// Package whatsapp handles the Twilio messaging webhook protocol: form decoding,
// request signature verification and TwiML reply rendering.
package whatsapp

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// Webhook field and header names.
const (
	FieldBody       = "Body"
	FieldFrom       = "From"
	FieldMessageSid = "MessageSid"
	SignatureHeader = "X-Twilio-Signature"
)

// DecodeForm parses a form-encoded body into a flat map. When a field repeats,
// the last value wins. Malformed pairs are skipped and reported in the error;
// the fields that did decode are always returned.
func DecodeForm(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[len(v)-1]
		}
	}
	if err != nil {
		return fields, fmt.Errorf("decode form body: %w", err)
	}
	return fields, nil
}

// ValidationURL returns the URL Twilio signed. A non-empty override (the public
// webhook URL configured for the number) wins over the URL rebuilt from r.
func ValidationURL(r *http.Request, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// Verifier checks X-Twilio-Signature headers against the account auth token.
type Verifier struct {
	validator client.RequestValidator
}

// NewVerifier creates a verifier for authToken.
func NewVerifier(authToken string) *Verifier {
	return &Verifier{validator: client.NewRequestValidator(authToken)}
}

// Verify returns domain.ErrAuthentication when signature does not match the
// HMAC-SHA1 of callbackURL and the sorted form fields.
func (v *Verifier) Verify(callbackURL string, fields map[string]string, signature string) error {
	if signature == "" || !v.validator.Validate(callbackURL, fields, signature) {
		return domain.ErrAuthentication
	}
	return nil
}

// MessageReply renders a TwiML messaging response holding a single message.
func MessageReply(body string) string {
	doc, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: body}})
	if err != nil {
		return fallbackReply(body)
	}
	return doc
}

func fallbackReply(body string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Response><Message>")
	_ = xml.EscapeText(&b, []byte(body))
	b.WriteString("</Message></Response>")
	return b.String()
}
