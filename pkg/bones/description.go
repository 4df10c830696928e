// Package bones provides low-level bindings that closely mirror the shape
// of the MAAS Web API. A Session is built from a server-supplied
// description document and exposes one Handler per remote resource, one
// Action per operation, and Call objects that bind URI parameters and
// dispatch signed HTTP requests.
package bones

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/anand-gl/jsoncanonicalizer"
	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// descriptionSchema constrains the shape of the describe document before
// it is decoded. Handlers may be null (a resource with only an anonymous
// or only an authenticated variant) and "op" is null for restful actions.
const descriptionSchema = `{
	"type": "object",
	"required": ["resources"],
	"properties": {
		"doc": {"type": "string"},
		"hash": {"type": ["string", "null"]},
		"resources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"},
					"anon": {"$ref": "#/$defs/handler"},
					"auth": {"$ref": "#/$defs/handler"}
				}
			}
		}
	},
	"$defs": {
		"handler": {
			"type": ["object", "null"],
			"required": ["name", "uri", "params", "actions"],
			"properties": {
				"name": {"type": "string"},
				"doc": {"type": "string"},
				"uri": {"type": "string"},
				"path": {"type": "string"},
				"params": {"type": "array", "items": {"type": "string"}},
				"actions": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["name", "method"],
						"properties": {
							"name": {"type": "string"},
							"doc": {"type": "string"},
							"method": {"type": "string"},
							"op": {"type": ["string", "null"]},
							"restful": {"type": "boolean"}
						}
					}
				}
			}
		}
	}
}`

var compiledDescriptionSchema = jsonschema.MustCompileString(
	"describe.json", descriptionSchema)

// Description is the parsed form of the server-supplied description
// document: a tree of resources, handlers, and actions. It is immutable
// once parsed.
type Description struct {
	Doc       string
	Hash      string
	Resources []ResourceDesc

	raw []byte
}

// ResourceDesc is one resource entry of the description. A resource offers
// an anonymous handler variant, an authenticated one, or both.
type ResourceDesc struct {
	Name string
	Anon *HandlerDesc
	Auth *HandlerDesc
}

// HandlerDesc describes one handler: its URI template (with named
// placeholders), the placeholder parameter names required for
// interpolation, and the actions it offers.
type HandlerDesc struct {
	Name    string
	Doc     string
	URI     string
	Path    string
	Params  []string
	Actions []ActionDesc
}

// ActionDesc describes one action. Restful actions are CRUD operations
// identified purely by HTTP method; non-restful ones carry an operation
// name passed via the "op" query parameter.
type ActionDesc struct {
	Name    string
	Doc     string
	Method  string
	Op      string
	Restful bool
}

type wireAction struct {
	Name    string  `json:"name"`
	Doc     string  `json:"doc"`
	Method  string  `json:"method"`
	Op      *string `json:"op"`
	Restful bool    `json:"restful"`
}

type wireHandler struct {
	Name    string       `json:"name"`
	Doc     string       `json:"doc"`
	URI     string       `json:"uri"`
	Path    string       `json:"path"`
	Params  []string     `json:"params"`
	Actions []wireAction `json:"actions"`
}

type wireDescription struct {
	Doc       string `json:"doc"`
	Hash      string `json:"hash"`
	Resources []struct {
		Name string       `json:"name"`
		Anon *wireHandler `json:"anon"`
		Auth *wireHandler `json:"auth"`
	} `json:"resources"`
}

// ParseDescription validates and decodes a raw describe document.
func ParseDescription(raw []byte) (*Description, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("description is not valid JSON: %w", err)
	}
	if err := compiledDescriptionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("description does not match expected shape: %w", err)
	}

	var wire wireDescription
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("cannot decode description: %w", err)
	}

	desc := &Description{
		Doc:  wire.Doc,
		Hash: wire.Hash,
		raw:  append([]byte(nil), raw...),
	}
	for _, res := range wire.Resources {
		desc.Resources = append(desc.Resources, ResourceDesc{
			Name: res.Name,
			Anon: convertHandler(res.Anon),
			Auth: convertHandler(res.Auth),
		})
	}
	return desc, nil
}

func convertHandler(wire *wireHandler) *HandlerDesc {
	if wire == nil {
		return nil
	}
	h := &HandlerDesc{
		Name:   wire.Name,
		Doc:    wire.Doc,
		URI:    wire.URI,
		Path:   wire.Path,
		Params: append([]string(nil), wire.Params...),
	}
	for _, act := range wire.Actions {
		op := ""
		if act.Op != nil {
			op = *act.Op
		}
		h.Actions = append(h.Actions, ActionDesc{
			Name:    act.Name,
			Doc:     act.Doc,
			Method:  act.Method,
			Op:      op,
			Restful: act.Restful,
		})
	}
	return h
}

// Raw returns the document bytes this description was parsed from.
func (d *Description) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Fingerprint returns a stable identifier for the description: the SHA-256
// of its canonicalised (RFC 8785) JSON form. Two fetches of an unchanged
// description produce the same fingerprint regardless of key order or
// whitespace.
func (d *Description) Fingerprint() (string, error) {
	canonical, err := jsoncanonicalizer.Transform(d.raw)
	if err != nil {
		return "", fmt.Errorf("cannot canonicalise description: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// DeriveResourceName returns a stable, human-readable name for a resource
// from its raw handler type name: the "Anon" prefix and "Handler" suffix
// are stripped, and the product acronym's casing is normalised.
func DeriveResourceName(name string) string {
	name = strings.TrimPrefix(name, "Anon")
	name = strings.TrimSuffix(name, "Handler")
	var b strings.Builder
	for {
		idx := strings.Index(strings.ToLower(name), "maas")
		if idx == -1 {
			b.WriteString(name)
			return b.String()
		}
		b.WriteString(name[:idx])
		b.WriteString("MAAS")
		name = name[idx+4:]
	}
}
