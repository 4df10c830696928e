package bones

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/user"
	"regexp"
	"strings"

	"github.com/canonical/gomaas/pkg/creds"
	"github.com/canonical/gomaas/pkg/profiles"
)

var apiVersionPath = regexp.MustCompile(`/api/[0-9.]+/?$`)

// APIURL normalises a MAAS URL so that it addresses the API explicitly:
// the path gains a trailing slash and, when no /api/{version} component is
// present, version 2.0 is selected.
func APIURL(rawurl string) (string, error) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawurl, err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if !apiVersionPath.MatchString(parsed.Path) {
		parsed.Path += "api/2.0/"
	}
	return parsed.String(), nil
}

// newHTTPClient builds the transport used for all requests. When insecure
// is set, TLS certificate verification is skipped.
func newHTTPClient(insecure bool) *http.Client {
	client := &http.Client{}
	if insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
	return client
}

// FetchDescription fetches and parses the API description document from
// <apiURL>/describe/. The response must be HTTP 200 with an
// application/json content type; anything else is a remote error carrying
// the status or the unexpected content type.
func FetchDescription(ctx context.Context, apiURL string, credentials *creds.Credentials, insecure bool) (*Description, error) {
	return fetchDescription(ctx, newHTTPClient(insecure), apiURL, credentials)
}

func fetchDescription(ctx context.Context, client *http.Client, apiURL string, credentials *creds.Credentials) (*Description, error) {
	describeURL, err := joinURL(apiURL, "describe/")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, describeURL, nil)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot build request for %s", describeURL), err)
	}
	if credentials != nil {
		credentials.Sign(describeURL, req.Header)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("%s -> %s", describeURL, err), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteStatusError(describeURL, resp)
	}
	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediatype != "application/json" {
		return nil, ErrRemote.Msg(fmt.Sprintf(
			"expected application/json, got: %s", mediatype))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot read description from %s", describeURL), err)
	}
	desc, err := ParseDescription(raw)
	if err != nil {
		return nil, ErrRemote.MsgErr(err.Error(), err)
	}
	return desc, nil
}

func joinURL(base, ref string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", base, err)
	}
	relative, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL reference %q: %w", ref, err)
	}
	return parsed.ResolveReference(relative).String(), nil
}

// consumerLabel identifies the client requesting a token, so that tokens
// can be selectively revoked later.
func consumerLabel() string {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return username + "@" + hostname
}

type versionInfo struct {
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version"`
	Subversion   string   `json:"subversion"`
}

type tokenInfo struct {
	ConsumerKey string `json:"consumer_key"`
	TokenKey    string `json:"token_key"`
	TokenSecret string `json:"token_secret"`
}

// authenticate obtains a new API token by logging into the remote system
// with a username and password. The server must advertise the
// "authenticate-api" capability; ErrLoginNotSupported is returned
// otherwise so callers can fall back to asking for an API key.
func authenticate(ctx context.Context, client *http.Client, apiURL, username, password string) (*creds.Credentials, error) {
	versionURL, err := joinURL(apiURL, "version/")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot build request for %s", versionURL), err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("%s -> %s", versionURL, err), err)
	}
	version, err := decodeOK[versionInfo](versionURL, resp)
	if err != nil {
		return nil, err
	}
	supported := false
	for _, capability := range version.Capabilities {
		if capability == "authenticate-api" {
			supported = true
			break
		}
	}
	if !supported {
		return nil, ErrLoginNotSupported
	}

	authURL, err := joinURL(apiURL, "../../accounts/authenticate/")
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("consumer", consumerLabel())
	req, err = http.NewRequestWithContext(
		ctx, http.MethodPost, authURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot build request for %s", authURL), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = client.Do(req)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("%s -> %s", authURL, err), err)
	}
	token, err := decodeOK[tokenInfo](authURL, resp)
	if err != nil {
		return nil, err
	}
	return &creds.Credentials{
		ConsumerKey: token.ConsumerKey,
		TokenKey:    token.TokenKey,
		TokenSecret: token.TokenSecret,
	}, nil
}

// decodeOK requires an HTTP 200 response and decodes its JSON body.
func decodeOK[T any](target string, resp *http.Response) (*T, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteStatusError(target, resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot read response from %s", target), err)
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, ErrRemote.MsgErr(
			fmt.Sprintf("cannot decode response from %s", target), err)
	}
	return &decoded, nil
}

// splitUserInfo extracts any user:password from a URL and returns the URL
// without them.
func splitUserInfo(rawurl string) (cleaned, username, password string, err error) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid URL %q: %w", rawurl, err)
	}
	if parsed.User != nil {
		username = parsed.User.Username()
		password, _ = parsed.User.Password()
		parsed.User = nil
	}
	return parsed.String(), username, password, nil
}

// Login logs into a remote installation with a username and password,
// exchanging them for an API token, and returns an unsaved profile plus a
// session made from it. Credentials may also be embedded in the URL, but
// not both ways at once.
func Login(ctx context.Context, rawurl, username, password string, opts ...Option) (*profiles.Profile, *Session, error) {
	options := collectOptions(opts)
	apiURL, err := APIURL(rawurl)
	if err != nil {
		return nil, nil, ErrLogin.MsgErr(err.Error(), err)
	}
	apiURL, urlUser, urlPassword, err := splitUserInfo(apiURL)
	if err != nil {
		return nil, nil, ErrLogin.MsgErr(err.Error(), err)
	}
	if urlUser != "" {
		if username != "" {
			return nil, nil, ErrLogin.Msg(fmt.Sprintf(
				"user-name provided explicitly (%q) and in URL (%q); "+
					"provide only one", username, urlUser))
		}
		username, password = urlUser, urlPassword
	}
	switch {
	case username == "" && password != "":
		return nil, nil, ErrLogin.Msg(
			"password provided without user-name; specify user-name")
	case username != "" && password == "":
		return nil, nil, ErrLogin.Msg(
			"user-name provided without password; specify password")
	}

	client := options.httpClient()
	credentials, err := authenticate(ctx, client, apiURL, username, password)
	if err != nil {
		return nil, nil, err
	}
	description, err := fetchDescription(ctx, client, apiURL, credentials)
	if err != nil {
		return nil, nil, err
	}
	profile := &profiles.Profile{
		Name:        username,
		URL:         apiURL,
		Credentials: credentials.String(),
		Description: description.Raw(),
	}
	session, err := NewSession(description, credentials, opts...)
	if err != nil {
		return nil, nil, err
	}
	return profile, session, nil
}

// Connect connects to a remote installation with an API key (or
// anonymously when the key is empty) and returns an unsaved profile plus a
// session made from it.
func Connect(ctx context.Context, rawurl, apikey string, opts ...Option) (*profiles.Profile, *Session, error) {
	options := collectOptions(opts)
	apiURL, err := APIURL(rawurl)
	if err != nil {
		return nil, nil, ErrConnect.MsgErr(err.Error(), err)
	}
	apiURL, urlUser, _, err := splitUserInfo(apiURL)
	if err != nil {
		return nil, nil, ErrConnect.MsgErr(err.Error(), err)
	}
	if urlUser != "" {
		return nil, nil, ErrConnect.Msg(
			"cannot provide user-name in URL when connecting; use Login instead")
	}
	credentials, err := creds.Parse(apikey)
	if err != nil {
		return nil, nil, err
	}
	description, err := fetchDescription(
		ctx, options.httpClient(), apiURL, credentials)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, nil, ErrConnect.MsgErr(err.Error(), err)
	}
	profile := &profiles.Profile{
		Name:        parsed.Host,
		URL:         apiURL,
		Description: description.Raw(),
	}
	if credentials != nil {
		profile.Credentials = credentials.String()
	}
	session, err := NewSession(description, credentials, opts...)
	if err != nil {
		return nil, nil, err
	}
	return profile, session, nil
}
