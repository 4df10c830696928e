package bones

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// encodeMultipart builds a multipart/form-data body from name/content
// pairs and returns the body bytes together with the Content-Type header
// value (including the boundary). mime/multipart emits CRLF framing
// throughout, which is what the server expects.
func encodeMultipart(data []Param) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, param := range data {
		if err := writePayloads(writer, param.Name, param.Value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// writePayloads attaches one or more parts for the given name and
// content, classifying the content value:
//
//   - nil: an empty payload
//   - bool: the literal bytes "true" or "false"
//   - int / int64: decimal bytes
//   - []byte: attached as-is
//   - string: a UTF-8 text/plain payload
//   - FileContent: read and attached with a guessed MIME type
//   - Opener: invoked, read, closed, and recursed on
//   - slices: recursed per element under the same name
//
// Anything else is a fatal type error.
func writePayloads(w *multipart.Writer, name string, content any) error {
	switch v := content.(type) {
	case nil:
		return writeBytesPart(w, name, nil)
	case bool:
		return writeBytesPart(w, name, []byte(strconv.FormatBool(v)))
	case int:
		return writeBytesPart(w, name, []byte(strconv.Itoa(v)))
	case int64:
		return writeBytesPart(w, name, []byte(strconv.FormatInt(v, 10)))
	case []byte:
		return writeBytesPart(w, name, v)
	case string:
		return writeStringPart(w, name, v)
	case FileContent:
		return writeFilePart(w, name, v)
	case *FileContent:
		return writeFilePart(w, name, *v)
	case Opener:
		rc, err := v()
		if err != nil {
			return fmt.Errorf("parameter %q: cannot open content: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("parameter %q: cannot read content: %w", name, err)
		}
		return writeFilePart(w, name, FileContent{Name: name, Reader: bytes.NewReader(data)})
	case func() (io.ReadCloser, error):
		return writePayloads(w, name, Opener(v))
	case []string:
		for _, item := range v {
			if err := writePayloads(w, name, item); err != nil {
				return err
			}
		}
		return nil
	case []int:
		for _, item := range v {
			if err := writePayloads(w, name, item); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := writePayloads(w, name, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("parameter %q is unrecognised: %T", name, content)
	}
}

func writeBytesPart(w *multipart.Writer, name string, content []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(name)))
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(content)
	return err
}

func writeStringPart(w *multipart.Writer, name, content string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(name)))
	header.Set("Content-Type", `text/plain; charset="utf-8"`)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.WriteString(part, content)
	return err
}

func writeFilePart(w *multipart.Writer, name string, content FileContent) error {
	data, err := io.ReadAll(content.Reader)
	if err != nil {
		return fmt.Errorf("parameter %q: cannot read file content: %w", name, err)
	}
	filename := content.Name
	if filename == "" {
		filename = name
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		escapeQuotes(name), escapeQuotes(filename)))
	header.Set("Content-Type", guessContentType(filename, data))
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// guessContentType guesses a MIME type from the filename extension, then
// from the content itself, defaulting to application/octet-stream.
func guessContentType(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		if mimetype := mime.TypeByExtension(ext); mimetype != "" {
			return mimetype
		}
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
