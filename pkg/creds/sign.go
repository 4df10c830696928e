package creds

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// rfc3986Escape percent-encodes a string per RFC 3986 section 2.3, which
// is what OAuth 1.0 requires for parameter values. This is stricter than
// url.QueryEscape: spaces become %20 and sub-delims are always encoded.
func rfc3986Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z',
			c >= '0' && c <= '9', c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// Sign computes an OAuth 1.0 PLAINTEXT signature for a request to uri and
// merges the resulting Authorization header into headers, mutating it in
// place. A request method of GET with no body content is assumed; the
// consumer secret is the empty string.
//
// PLAINTEXT is used because that is what the server verifies; the
// signature is simply "<consumer secret>&<token secret>".
func (c *Credentials) Sign(uri string, headers http.Header) {
	signature := "&" + c.TokenSecret
	params := []struct{ name, value string }{
		{"oauth_version", "1.0"},
		{"oauth_signature_method", "PLAINTEXT"},
		{"oauth_consumer_key", c.ConsumerKey},
		{"oauth_token", c.TokenKey},
		{"oauth_signature", signature},
		{"oauth_nonce", uuid.NewString()},
		{"oauth_timestamp", fmt.Sprintf("%d", time.Now().Unix())},
	}
	pairs := make([]string, 0, len(params)+1)
	pairs = append(pairs, `realm="OAuth"`)
	for _, p := range params {
		pairs = append(pairs, fmt.Sprintf(
			`%s="%s"`, p.name, rfc3986Escape(p.value)))
	}
	headers.Set("Authorization", "OAuth "+strings.Join(pairs, ", "))
}
