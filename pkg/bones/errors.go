package bones

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/canonical/gomaas/internal/common/apperrors"
)

// Error bases for the low-level bindings. errors.Is against these
// distinguishes the failure domains described in the error taxonomy:
// remote/description failures, session-construction failures, and the
// login-specific conditions the CLI needs to detect.
var (
	// ErrRemote covers failures talking to the remote system: a failed
	// description fetch, an unexpected status, or a wrong content type.
	ErrRemote = apperrors.New("remote error").SetStatusCode(http.StatusBadGateway)

	// ErrSession wraps remote errors raised during session construction.
	ErrSession = apperrors.New("session error")

	// ErrLogin covers username/password log-in failures.
	ErrLogin = apperrors.New("login error")

	// ErrLoginNotSupported indicates the server does not support
	// automated API client log-in. The CLI falls back to prompting for an
	// API token when it sees this.
	ErrLoginNotSupported = ErrLogin.New(
		"server does not support automated client log-in; " +
			"obtain an API token via the MAAS UI")

	// ErrConnect covers apikey connection failures.
	ErrConnect = apperrors.New("connect error")
)

// RequestInfo captures the request that produced a CallError: enough for a
// presentation layer to show or replay what was sent.
type RequestInfo struct {
	Method  string
	URI     string
	Headers http.Header
	Body    []byte
}

// CallError is raised when a resource action returns a non-2xx response.
// It carries the original request, the response, and the raw response
// content; the core does not translate status codes to domain meaning.
type CallError struct {
	Request  RequestInfo
	Response *http.Response
	Content  []byte
}

// Status returns the HTTP status code of the failed response.
func (e *CallError) Status() int {
	return e.Response.StatusCode
}

func (e *CallError) Error() string {
	content := strings.ToValidUTF8(string(e.Content), string(utf8.RuneError))
	if runes := []rune(content); len(runes) > 50 {
		content = string(runes[:49]) + "…"
	}
	return fmt.Sprintf(
		"%s %s -> HTTP %s (%s)",
		e.Request.Method, e.Request.URI, e.Response.Status, content)
}

// remoteStatusError builds the standard remote-error message for an
// unexpected HTTP response.
func remoteStatusError(target string, resp *http.Response) apperrors.Error {
	return ErrRemote.Msg(fmt.Sprintf("%s -> %s", target, resp.Status)).
		SetStatusCode(resp.StatusCode)
}
