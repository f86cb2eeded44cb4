package whatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/closerflow/whatsapp-agent/internal/domain"
)

func sign(token, url string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := url
	for _, k := range keys {
		payload += k + fields[k]
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type twimlDoc struct {
	Messages []string `xml:"Message"`
}

func TestDecodeFormKeepsLastValue(t *testing.T) {
	t.Parallel()

	fields, err := DecodeForm([]byte("Body=Bonjour+%21&From=whatsapp%3A%2B33600000000&Body=Salut"))
	if err != nil {
		t.Fatalf("DecodeForm failed: %v", err)
	}
	if fields[FieldBody] != "Salut" {
		t.Errorf("expected last Body value, got %q", fields[FieldBody])
	}
	if fields[FieldFrom] != "whatsapp:+33600000000" {
		t.Errorf("unexpected From %q", fields[FieldFrom])
	}
}

func TestDecodeFormKeepsValidPairsOfMalformedBody(t *testing.T) {
	t.Parallel()

	fields, err := DecodeForm([]byte("Body=%zz&From=whatsapp%3A%2B33600000000"))
	if err == nil {
		t.Fatal("expected error for malformed escape")
	}
	if fields == nil {
		t.Fatal("expected partial fields alongside the error")
	}
	if _, ok := fields[FieldBody]; ok {
		t.Errorf("malformed pair must be skipped, got Body=%q", fields[FieldBody])
	}
	if fields[FieldFrom] != "whatsapp:+33600000000" {
		t.Errorf("unexpected From %q", fields[FieldFrom])
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	t.Parallel()

	url := "https://agent.example.com/api/webhooks/whatsapp"
	fields := map[string]string{FieldBody: "Bonjour", FieldFrom: "whatsapp:+33600000000"}
	v := NewVerifier("secret")

	if err := v.Verify(url, fields, sign("secret", url, fields)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	url := "https://agent.example.com/api/webhooks/whatsapp"
	fields := map[string]string{FieldBody: "Bonjour", FieldFrom: "whatsapp:+33600000000"}
	v := NewVerifier("secret")

	cases := map[string]string{
		"wrong secret": sign("other", url, fields),
		"empty":        "",
		"garbage":      "not-a-signature",
	}
	for name, sig := range cases {
		if err := v.Verify(url, fields, sig); !errors.Is(err, domain.ErrAuthentication) {
			t.Errorf("%s: expected ErrAuthentication, got %v", name, err)
		}
	}
}

func TestValidationURL(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "http://internal:8080/api/webhooks/whatsapp?x=1", nil)
	if got := ValidationURL(r, ""); got != "http://internal:8080/api/webhooks/whatsapp?x=1" {
		t.Errorf("unexpected rebuilt url %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https, http")
	if got := ValidationURL(r, ""); got != "https://internal:8080/api/webhooks/whatsapp?x=1" {
		t.Errorf("expected forwarded scheme, got %q", got)
	}

	if got := ValidationURL(r, "  https://public.example.com/hook "); got != "https://public.example.com/hook" {
		t.Errorf("expected override, got %q", got)
	}

	tlsReq := httptest.NewRequest("POST", "https://secure.example.com/hook", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	if got := ValidationURL(tlsReq, ""); got != "https://secure.example.com/hook" {
		t.Errorf("expected https for TLS request, got %q", got)
	}
}

func TestMessageReplyRendersSingleMessage(t *testing.T) {
	t.Parallel()

	body := "Bonjour ! Qu'est-ce qui vous <amène> & pourquoi ?"
	for name, doc := range map[string]string{
		"twiml":    MessageReply(body),
		"fallback": fallbackReply(body),
	} {
		var got twimlDoc
		if err := xml.Unmarshal([]byte(doc), &got); err != nil {
			t.Fatalf("%s: invalid XML %q: %v", name, doc, err)
		}
		if len(got.Messages) != 1 || got.Messages[0] != body {
			t.Errorf("%s: unexpected messages %q", name, got.Messages)
		}
	}
}
