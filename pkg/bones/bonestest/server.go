// Package bonestest provides an in-process fake of the remote API for
// tests: it serves a description document plus a small machines resource
// backed by in-memory JSON documents, so session and object code can be
// exercised end to end without a real deployment.
package bonestest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/canonical/gomaas/internal/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the fake API endpoint. All state is in memory and guarded by a
// single mutex; handlers are simple enough that this is never contended in
// tests.
type Server struct {
	mu       sync.Mutex
	machines map[string][]byte
	server   *httptest.Server

	// Capabilities is advertised by the version endpoint. Including
	// "authenticate-api" makes log-in succeed.
	Capabilities []string

	// LastRequest records the most recent request seen by any resource
	// handler, for assertions about methods, queries, and headers.
	LastRequest *RecordedRequest
}

// RecordedRequest is a snapshot of one request: enough to assert on
// without retaining the live request object.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// NewServer starts a fake endpoint listening on a local port.
func NewServer() *Server {
	s := &Server{
		machines:     make(map[string][]byte),
		Capabilities: []string{"authenticate-api"},
	}
	router := chi.NewRouter()
	router.Get("/MAAS/api/2.0/describe/", s.handleDescribe)
	router.Get("/MAAS/api/2.0/version/", s.handleVersion)
	router.Post("/MAAS/accounts/authenticate/", s.handleAuthenticate)
	router.HandleFunc("/MAAS/api/2.0/machines/", s.handleMachines)
	router.HandleFunc("/MAAS/api/2.0/machines/{systemID}/", s.handleMachine)
	s.server = httptest.NewServer(router)
	return s
}

// Close shuts the endpoint down.
func (s *Server) Close() {
	s.server.Close()
}

// URL returns the base MAAS URL, suitable for APIURL normalisation.
func (s *Server) URL() string {
	return s.server.URL + "/MAAS/"
}

// APIURL returns the fully-qualified API root.
func (s *Server) APIURL() string {
	return s.server.URL + "/MAAS/api/2.0/"
}

// AddMachine stores a machine document and returns its generated system
// ID. Extra fields are merged into a minimal machine document.
func (s *Server) AddMachine(fields map[string]any) string {
	systemID, err := common.RandomSystemID(6)
	if err != nil {
		panic(err)
	}
	doc := []byte(fmt.Sprintf(
		`{"system_id": %q, "hostname": "machine-%s", "status": 4, "status_name": "Ready", "architecture": "amd64/generic", "tag_names": []}`,
		systemID, systemID))
	for key, value := range fields {
		doc, _ = sjson.SetBytes(doc, key, value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[systemID] = doc
	return systemID
}

// Machine returns the raw stored document for a system ID.
func (s *Server) Machine(systemID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.machines[systemID]...)
}

func (s *Server) record(r *http.Request, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastRequest = &RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	}
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	description := fmt.Sprintf(`{
		"doc": "MAAS API",
		"hash": "fake",
		"resources": [
			{
				"name": "MachinesHandler",
				"anon": null,
				"auth": {
					"name": "MachinesHandler",
					"doc": "Manage the collection of machines.",
					"uri": %q,
					"path": "/api/2.0/machines/",
					"params": [],
					"actions": [
						{"name": "read", "doc": "", "method": "GET", "op": null, "restful": true},
						{"name": "allocate", "doc": "", "method": "POST", "op": "allocate", "restful": false},
						{"name": "deployment_status", "doc": "", "method": "GET", "op": "deployment_status", "restful": false}
					]
				}
			},
			{
				"name": "MachineHandler",
				"anon": null,
				"auth": {
					"name": "MachineHandler",
					"doc": "Manage an individual machine.",
					"uri": %q,
					"path": "/api/2.0/machines/{system_id}/",
					"params": ["system_id"],
					"actions": [
						{"name": "read", "doc": "", "method": "GET", "op": null, "restful": true},
						{"name": "update", "doc": "", "method": "PUT", "op": null, "restful": true},
						{"name": "delete", "doc": "", "method": "DELETE", "op": null, "restful": true},
						{"name": "deploy", "doc": "", "method": "POST", "op": "deploy", "restful": false},
						{"name": "add_tag", "doc": "", "method": "POST", "op": "add_tag", "restful": false},
						{"name": "remove_tag", "doc": "", "method": "POST", "op": "remove_tag", "restful": false}
					]
				}
			},
			{
				"name": "VersionHandler",
				"anon": {
					"name": "AnonVersionHandler",
					"doc": "Version information.",
					"uri": %q,
					"path": "/api/2.0/version/",
					"params": [],
					"actions": [
						{"name": "read", "doc": "", "method": "GET", "op": null, "restful": true}
					]
				},
				"auth": null
			}
		]
	}`,
		s.APIURL()+"machines/",
		s.APIURL()+"machines/{system_id}/",
		s.APIURL()+"version/")
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(description))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	payload, _ := json.Marshal(map[string]any{
		"version":      "3.5.1",
		"subversion":   "stable",
		"capabilities": s.Capabilities,
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostFormValue("username") == "" || r.PostFormValue("password") == "" {
		http.Error(w, "missing credentials", http.StatusBadRequest)
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"consumer_key": "consumer-" + uuid.NewString()[:8],
		"token_key":    "token-" + uuid.NewString()[:8],
		"token_secret": "secret-" + uuid.NewString()[:8],
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	s.record(r, body)
	w.Header().Set("Content-Type", "application/json")

	op := r.URL.Query().Get("op")
	switch {
	case r.Method == http.MethodGet && op == "":
		s.mu.Lock()
		ids := make([]string, 0, len(s.machines))
		for id := range s.machines {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		docs := make([]gjson.Result, 0, len(ids))
		for _, id := range ids {
			docs = append(docs, gjson.ParseBytes(s.machines[id]))
		}
		s.mu.Unlock()
		parts := make([]string, len(docs))
		for i, doc := range docs {
			parts[i] = doc.Raw
		}
		fmt.Fprintf(w, "[%s]", strings.Join(parts, ","))
	case r.Method == http.MethodGet && op == "deployment_status":
		result := []byte(`{}`)
		for _, id := range r.URL.Query()["nodes"] {
			result, _ = sjson.SetBytes(result, id, "Deployed")
		}
		w.Write(result)
	case r.Method == http.MethodPost && op == "allocate":
		s.mu.Lock()
		var allocated []byte
		for id, doc := range s.machines {
			if gjson.GetBytes(doc, "status_name").String() == "Ready" {
				allocated, _ = sjson.SetBytes(doc, "status_name", "Allocated")
				allocated, _ = sjson.SetBytes(allocated, "status", 10)
				s.machines[id] = allocated
				break
			}
		}
		s.mu.Unlock()
		if allocated == nil {
			http.Error(w, "No machine matching the given constraints could be found.", http.StatusConflict)
			return
		}
		w.Write(allocated)
	default:
		http.Error(w, "unknown operation", http.StatusBadRequest)
	}
}

func (s *Server) handleMachine(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	s.record(r, body)
	systemID := chi.URLParam(r, "systemID")

	s.mu.Lock()
	doc, ok := s.machines[systemID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		w.Write(doc)
	case http.MethodPut:
		updated := doc
		for field, values := range parseMultipart(r, body) {
			if len(values) == 1 {
				updated, _ = sjson.SetBytes(updated, field, values[0])
			} else {
				updated, _ = sjson.SetBytes(updated, field, values)
			}
		}
		s.mu.Lock()
		s.machines[systemID] = updated
		s.mu.Unlock()
		w.Write(updated)
	case http.MethodDelete:
		s.mu.Lock()
		delete(s.machines, systemID)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		form := parseMultipart(r, body)
		tag := ""
		if values := form["tag"]; len(values) > 0 {
			tag = values[0]
		}
		var updated []byte
		switch r.URL.Query().Get("op") {
		case "deploy":
			updated, _ = sjson.SetBytes(doc, "status_name", "Deploying")
			updated, _ = sjson.SetBytes(updated, "status", 9)
		case "add_tag":
			updated, _ = sjson.SetBytes(doc, "tag_names.-1", tag)
		case "remove_tag":
			tags := gjson.GetBytes(doc, "tag_names").Array()
			kept := make([]string, 0, len(tags))
			for _, existing := range tags {
				if existing.String() != tag {
					kept = append(kept, existing.String())
				}
			}
			updated, _ = sjson.SetBytes(doc, "tag_names", kept)
		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.machines[systemID] = updated
		s.mu.Unlock()
		w.Write(updated)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	return body
}

// parseMultipart decodes a multipart/form-data body into field/value
// lists, returning nil when the body is not multipart.
func parseMultipart(r *http.Request, body []byte) map[string][]string {
	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))
	if err := clone.ParseMultipartForm(16 << 20); err != nil {
		return nil
	}
	return clone.MultipartForm.Value
}
