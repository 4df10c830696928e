package viscera

import (
	"context"

	"github.com/canonical/gomaas/pkg/bones"
)

func init() {
	Register(TypeSpec{
		Name: "File",
		Fields: []FieldSpec{
			{Name: "filename", PK: true, ReadOnly: true, ToValue: stringValue},
			{Name: "anon_resource_uri", ReadOnly: true,
				ToValue: optionalStringValue, Default: "", HasDefault: true},
		},
	})
	RegisterSet(SetSpec{Name: "Files", Object: "File"})
}

// UploadFile stores file content under the given name, streaming it from
// the opener at request-encoding time. The stored file is returned as an
// unloaded object keyed by filename.
func UploadFile(ctx context.Context, origin *Origin, filename string, open bones.Opener) (*Object, error) {
	files, err := origin.Set("Files")
	if err != nil {
		return nil, err
	}
	if _, err := files.Call(ctx, "create",
		bones.P("filename", filename),
		bones.File("file", open)); err != nil {
		return nil, err
	}
	typ, err := origin.Type("File")
	if err != nil {
		return nil, err
	}
	return typ.Partial(map[string]any{"filename": filename})
}
