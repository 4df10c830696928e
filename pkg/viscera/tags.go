package viscera

func init() {
	Register(TypeSpec{
		Name: "Tag",
		Fields: []FieldSpec{
			{Name: "name", PK: true, ReadOnly: true, ToValue: stringValue},
			{Name: "comment", Default: "", HasDefault: true,
				ToValue: optionalStringValue},
			{Name: "definition", Default: "", HasDefault: true,
				ToValue: optionalStringValue},
			{Name: "kernel_opts", Default: "", HasDefault: true,
				ToValue: optionalStringValue},
		},
	})
	RegisterSet(SetSpec{Name: "Tags", Object: "Tag"})
}
