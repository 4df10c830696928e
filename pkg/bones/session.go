package bones

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/canonical/gomaas/pkg/creds"
	"github.com/canonical/gomaas/pkg/profiles"
)

// Option configures a Session at construction time.
type Option func(*sessionOptions)

type sessionOptions struct {
	insecure bool
	debug    bool
	client   *http.Client
}

// WithInsecure disables TLS certificate verification.
func WithInsecure() Option {
	return func(o *sessionOptions) { o.insecure = true }
}

// WithDebug logs every request and response at debug level.
func WithDebug() Option {
	return func(o *sessionOptions) { o.debug = true }
}

// WithHTTPClient supplies a custom HTTP client, overriding the default
// transport (and WithInsecure).
func WithHTTPClient(client *http.Client) Option {
	return func(o *sessionOptions) { o.client = client }
}

func collectOptions(opts []Option) sessionOptions {
	var options sessionOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o sessionOptions) httpClient() *http.Client {
	if o.client != nil {
		return o.client
	}
	return newHTTPClient(o.insecure)
}

// Session is the entry point to the low-level bindings. It is built from a
// parsed description document and exposes one Handler per remote resource.
// Anonymous sessions (nil credentials) bind each resource's anonymous
// handler variant; authenticated sessions prefer the authenticated variant
// and fall back to the anonymous one.
type Session struct {
	description *Description
	credentials *creds.Credentials
	handlers    map[string]*Handler
	names       []string
	debug       bool
	client      *http.Client
}

// NewSession builds a session from a description and optional credentials.
// Resources whose derived names collide produce an error rather than one
// handler silently shadowing the other.
func NewSession(description *Description, credentials *creds.Credentials, opts ...Option) (*Session, error) {
	options := collectOptions(opts)
	session := &Session{
		description: description,
		credentials: credentials,
		handlers:    make(map[string]*Handler),
		debug:       options.debug,
		client:      options.httpClient(),
	}
	for _, resource := range description.Resources {
		desc := resource.Anon
		if credentials != nil && resource.Auth != nil {
			desc = resource.Auth
		}
		if desc == nil {
			continue
		}
		name := DeriveResourceName(desc.Name)
		if _, ok := session.handlers[name]; ok {
			return nil, ErrSession.Msg(fmt.Sprintf(
				"description contains two resources named %q", name))
		}
		handler := &Handler{session: session, name: name, desc: desc}
		handler.actions = make(map[string]*Action, len(desc.Actions))
		for i := range desc.Actions {
			action := &Action{handler: handler, desc: desc.Actions[i]}
			handler.actions[action.desc.Name] = action
			handler.actionNames = append(handler.actionNames, action.desc.Name)
		}
		sort.Strings(handler.actionNames)
		session.handlers[name] = handler
		session.names = append(session.names, name)
	}
	sort.Strings(session.names)
	return session, nil
}

// FromProfile builds a session from a saved profile, reusing the cached
// description so no round-trip to the server is needed.
func FromProfile(profile *profiles.Profile, opts ...Option) (*Session, error) {
	if len(profile.Description) == 0 {
		return nil, ErrSession.Msg(fmt.Sprintf(
			"profile %q has no cached API description; refresh it first",
			profile.Name))
	}
	description, err := ParseDescription(profile.Description)
	if err != nil {
		return nil, ErrSession.MsgErr(err.Error(), err)
	}
	credentials, err := creds.Parse(profile.Credentials)
	if err != nil {
		return nil, err
	}
	return NewSession(description, credentials, opts...)
}

// FromProfileName loads a saved profile by name from the default store and
// builds a session from it.
func FromProfileName(name string, opts ...Option) (*Session, error) {
	store, err := profiles.Open()
	if err != nil {
		return nil, ErrSession.MsgErr(err.Error(), err)
	}
	profile, err := store.Load(name)
	if err != nil {
		return nil, ErrSession.MsgErr(err.Error(), err)
	}
	return FromProfile(profile, opts...)
}

// FromURL builds a session by fetching a fresh description from the given
// MAAS URL. The apikey may be empty for an anonymous session.
func FromURL(ctx context.Context, rawurl, apikey string, opts ...Option) (*Session, error) {
	_, session, err := Connect(ctx, rawurl, apikey, opts...)
	if err != nil {
		return nil, ErrSession.MsgErr(err.Error(), err)
	}
	return session, nil
}

// SetInsecure rebuilds the session's transport with TLS certificate
// verification on or off, discarding any custom client.
func (s *Session) SetInsecure(insecure bool) {
	s.client = newHTTPClient(insecure)
}

// SetDebug toggles request/response logging.
func (s *Session) SetDebug(debug bool) {
	s.debug = debug
}

// IsAnonymous reports whether the session carries no credentials.
func (s *Session) IsAnonymous() bool {
	return s.credentials == nil
}

// Credentials returns the session's credentials, nil when anonymous.
func (s *Session) Credentials() *creds.Credentials {
	return s.credentials
}

// Description returns the description this session was built from.
func (s *Session) Description() *Description {
	return s.description
}

// Handlers returns the sorted derived names of all bound handlers.
func (s *Session) Handlers() []string {
	return append([]string(nil), s.names...)
}

// Handler looks up a handler by derived name.
func (s *Session) Handler(name string) (*Handler, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown handler %q", name)
	}
	return handler, nil
}

// Handler is the bound form of one resource handler: a set of actions
// sharing a URI template.
type Handler struct {
	session     *Session
	name        string
	desc        *HandlerDesc
	actions     map[string]*Action
	actionNames []string
}

// Name returns the handler's derived name, e.g. "Machines".
func (h *Handler) Name() string { return h.name }

// Doc returns the handler's documentation string.
func (h *Handler) Doc() string { return h.desc.Doc }

// URI returns the handler's URI template.
func (h *Handler) URI() string { return h.desc.URI }

// Path returns the handler's registration path.
func (h *Handler) Path() string { return h.desc.Path }

// Params returns the parameter names the URI template requires.
func (h *Handler) Params() []string {
	return append([]string(nil), h.desc.Params...)
}

// Actions returns the sorted names of the handler's actions.
func (h *Handler) Actions() []string {
	return append([]string(nil), h.actionNames...)
}

// Action looks up an action by name.
func (h *Handler) Action(name string) (*Action, error) {
	action, ok := h.actions[name]
	if !ok {
		return nil, fmt.Errorf("handler %q has no action %q", h.name, name)
	}
	return action, nil
}

// Action is the bound form of one operation on a handler.
type Action struct {
	handler *Handler
	desc    ActionDesc
}

// Name returns the action's name, e.g. "allocate".
func (a *Action) Name() string { return a.desc.Name }

// FullName returns "Handler.action", used in log and error output.
func (a *Action) FullName() string {
	return a.handler.name + "." + a.desc.Name
}

// Doc returns the action's documentation string.
func (a *Action) Doc() string { return a.desc.Doc }

// Op returns the operation name sent as the "op" query parameter; empty
// for restful actions.
func (a *Action) Op() string { return a.desc.Op }

// Method returns the HTTP method this action uses.
func (a *Action) Method() string { return a.desc.Method }

// IsRestful reports whether the action is a plain CRUD operation with no
// operation name.
func (a *Action) IsRestful() bool { return a.desc.Restful }

// Bind resolves the handler's URI template parameters, producing a Call.
// The given params must match the template's parameter set exactly: no
// missing names, no extras.
func (a *Action) Bind(params map[string]string) (*Call, error) {
	expected := a.handler.desc.Params
	if err := checkParams(a.FullName(), expected, params); err != nil {
		return nil, err
	}
	bound := make(map[string]string, len(params))
	for name, value := range params {
		bound[name] = value
	}
	return &Call{action: a, params: bound}, nil
}

// Call binds and dispatches in one step, for actions whose parameter set
// is fixed at the call site.
func (a *Action) Call(ctx context.Context, params map[string]string, data ...Param) (*CallResult, error) {
	call, err := a.Bind(params)
	if err != nil {
		return nil, err
	}
	return call.Call(ctx, data...)
}

func checkParams(name string, expected []string, observed map[string]string) error {
	ok := len(observed) == len(expected)
	if ok {
		for _, param := range expected {
			if _, present := observed[param]; !present {
				ok = false
				break
			}
		}
	}
	if ok {
		return nil
	}
	if len(expected) == 0 {
		return fmt.Errorf("%s takes no arguments", name)
	}
	names := append([]string(nil), expected...)
	sort.Strings(names)
	return fmt.Errorf("%s takes %d arguments: %s",
		name, len(expected), strings.Join(names, ", "))
}

// Call is an action with its URI template parameters resolved, ready to
// dispatch.
type Call struct {
	action *Action
	params map[string]string
}

// Action returns the action this call dispatches.
func (c *Call) Action() *Action { return c.action }

// URI returns the call's fully interpolated URI.
func (c *Call) URI() string {
	uri := c.action.handler.desc.URI
	for name, value := range c.params {
		uri = strings.ReplaceAll(uri, "{"+name+"}", value)
	}
	return uri
}

// Rebind produces a new call with the given parameters overriding the
// current ones; unmentioned parameters keep their values.
func (c *Call) Rebind(params map[string]string) (*Call, error) {
	merged := make(map[string]string, len(c.params))
	for name, value := range c.params {
		merged[name] = value
	}
	for name, value := range params {
		merged[name] = value
	}
	return c.action.Bind(merged)
}

// CallResult carries a dispatched call's outcome: the HTTP response, the
// raw content, and the decoded form of the content when the response was
// JSON (raw bytes otherwise).
type CallResult struct {
	Response *http.Response
	Content  []byte
	Data     any
}

// Call prepares the payload from the given parameters, signs the request
// when the session has credentials, and dispatches it. Non-2xx responses
// produce a *CallError carrying the request, response, and content.
func (c *Call) Call(ctx context.Context, data ...Param) (*CallResult, error) {
	action := c.action
	session := action.handler.session

	uri, body, headers, err := PreparePayload(
		action.desc.Op, action.desc.Method, c.URI(), data)
	if err != nil {
		return nil, err
	}
	if session.credentials != nil {
		session.credentials.Sign(uri, headers)
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json,*/*;q=0.9")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, action.desc.Method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot build request: %w", action.FullName(), err)
	}
	for name, values := range headers {
		req.Header[name] = values
	}

	if session.debug {
		log.Debug().
			Str("action", action.FullName()).
			Str("method", action.desc.Method).
			Str("uri", uri).
			Int("body_bytes", len(body)).
			Msg("dispatching request")
	}

	resp, err := session.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action.FullName(), err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot read response: %w", action.FullName(), err)
	}

	if session.debug {
		log.Debug().
			Str("action", action.FullName()).
			Int("status", resp.StatusCode).
			Int("content_bytes", len(content)).
			Msg("received response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{
			Request: RequestInfo{
				Method:  action.desc.Method,
				URI:     uri,
				Headers: headers,
				Body:    body,
			},
			Response: resp,
			Content:  content,
		}
	}

	result := &CallResult{Response: resp, Content: content}
	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasSuffix(mediatype, "/json") && len(content) > 0 {
		if err := json.Unmarshal(content, &result.Data); err != nil {
			return nil, fmt.Errorf(
				"%s: response claims JSON but is not: %w", action.FullName(), err)
		}
	} else {
		result.Data = content
	}
	return result, nil
}
