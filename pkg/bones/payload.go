package bones

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Param is one name/value pair destined for a request's query string or
// body. Values may be scalars (string, bool, int, []byte), slices (the
// parameter repeats once per element), an Opener (file content read
// lazily), or a FileContent.
type Param struct {
	Name  string
	Value any
}

// P builds a Param.
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Opener lazily provides content, typically an open file. It is invoked at
// encoding time and the reader is closed after use.
type Opener func() (io.ReadCloser, error)

// FileContent is file data with a name used for MIME type guessing.
type FileContent struct {
	Name   string
	Reader io.Reader
}

// File builds a Param carrying lazily-opened file content.
func File(name string, open Opener) Param {
	return Param{Name: name, Value: open}
}

// PreparePayload returns the final URI, body, and extra headers for a
// request.
//
//   - For GET and DELETE requests every parameter, including the operation
//     name when present, is encoded into the URI's query string; there is
//     no body.
//   - Otherwise the operation name still goes into the query string and
//     all other parameters are encoded as a multipart/form-data body.
//
// Query encoding preserves parameter order; slice values repeat the
// parameter once per element.
func PreparePayload(op, method, uri string, data []Param) (string, []byte, http.Header, error) {
	var query []queryPair
	if op != "" {
		query = append(query, queryPair{"op", op})
	}

	var body []byte
	headers := make(http.Header)

	if method == http.MethodGet || method == http.MethodDelete {
		expanded, err := expandQuery(data)
		if err != nil {
			return "", nil, nil, err
		}
		query = append(query, expanded...)
	} else {
		// Even when data is empty a well-formed empty multipart body is
		// produced; the server distinguishes "no payload" from an empty
		// one.
		encoded, contentType, err := encodeMultipart(data)
		if err != nil {
			return "", nil, nil, err
		}
		body = encoded
		headers.Set("Content-Type", contentType)
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", nil, nil, fmt.Errorf("invalid action URI %q: %w", uri, err)
	}
	parsed.RawQuery = encodeQuery(query)
	return parsed.String(), body, headers, nil
}

type queryPair struct {
	name, value string
}

// encodeQuery is an order-preserving variant of url.Values.Encode, which
// sorts by key and so cannot be used here.
func encodeQuery(pairs []queryPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts,
			url.QueryEscape(p.name)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

// expandQuery flattens params into string pairs: slices repeat the name
// per element and openers are slurped.
func expandQuery(data []Param) ([]queryPair, error) {
	var pairs []queryPair
	for _, param := range data {
		values, err := queryValues(param.Name, param.Value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, values...)
	}
	return pairs, nil
}

func queryValues(name string, value any) ([]queryPair, error) {
	switch v := value.(type) {
	case nil:
		return []queryPair{{name, ""}}, nil
	case string:
		return []queryPair{{name, v}}, nil
	case bool:
		return []queryPair{{name, strconv.FormatBool(v)}}, nil
	case int:
		return []queryPair{{name, strconv.Itoa(v)}}, nil
	case int64:
		return []queryPair{{name, strconv.FormatInt(v, 10)}}, nil
	case float64:
		return []queryPair{{name, strconv.FormatFloat(v, 'f', -1, 64)}}, nil
	case []byte:
		return []queryPair{{name, string(v)}}, nil
	case Opener:
		content, err := slurp(v)
		if err != nil {
			return nil, err
		}
		return []queryPair{{name, string(content)}}, nil
	case func() (io.ReadCloser, error):
		return queryValues(name, Opener(v))
	case []string:
		pairs := make([]queryPair, 0, len(v))
		for _, item := range v {
			pairs = append(pairs, queryPair{name, item})
		}
		return pairs, nil
	case []int:
		pairs := make([]queryPair, 0, len(v))
		for _, item := range v {
			pairs = append(pairs, queryPair{name, strconv.Itoa(item)})
		}
		return pairs, nil
	case []any:
		var pairs []queryPair
		for _, item := range v {
			expanded, err := queryValues(name, item)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, expanded...)
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf(
			"parameter %q has unsupported type %T", name, value)
	}
}

func slurp(open Opener) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
