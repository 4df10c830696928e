// Package creds handles MAAS API credentials.
//
// The API deals with credentials consisting of 3 elements: consumer key,
// token key, and token secret. These are parts of the OAuth 1.0
// specification; the consumer secret is hard-wired to the empty string.
// Credentials are represented as a Credentials struct but can also be
// converted to a colon-separated string format for easy transport between
// processes.
package creds

import (
	"fmt"
	"strings"
)

// Credentials holds the 3-part MAAS API credential. A nil *Credentials
// means anonymous access.
type Credentials struct {
	ConsumerKey string
	TokenKey    string
	TokenSecret string
}

// Parse interprets a colon-joined credential string. An empty string yields
// nil (anonymous access). Any string that does not contain exactly three
// colon-separated parts is a format error.
func Parse(credentials string) (*Credentials, error) {
	if credentials == "" {
		return nil, nil
	}
	if strings.Count(credentials, ":") != 2 {
		return nil, fmt.Errorf(
			"malformed credentials: expected 3 colon-separated parts, got %q",
			credentials)
	}
	parts := strings.SplitN(credentials, ":", 3)
	return &Credentials{
		ConsumerKey: parts[0],
		TokenKey:    parts[1],
		TokenSecret: parts[2],
	}, nil
}

// FromParts builds credentials from a sequence of parts. An empty sequence
// yields nil (anonymous access); any length other than 0 or 3 is a format
// error.
func FromParts(parts []string) (*Credentials, error) {
	switch len(parts) {
	case 0:
		return nil, nil
	case 3:
		return &Credentials{
			ConsumerKey: parts[0],
			TokenKey:    parts[1],
			TokenSecret: parts[2],
		}, nil
	default:
		return nil, fmt.Errorf(
			"malformed credentials: expected 3 parts, got %d", len(parts))
	}
}

// String renders the credentials in the colon-joined transport format.
// Parse(c.String()) round-trips.
func (c *Credentials) String() string {
	return strings.Join(
		[]string{c.ConsumerKey, c.TokenKey, c.TokenSecret}, ":")
}
