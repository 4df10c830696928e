package viscera

func init() {
	Register(TypeSpec{
		Name: "Zone",
		Fields: []FieldSpec{
			{Name: "id", ReadOnly: true, ToValue: intValue},
			{Name: "name", PK: true, ToValue: stringValue},
			{Name: "description", ToValue: optionalStringValue,
				Default: "", HasDefault: true},
		},
	})
	RegisterSet(SetSpec{Name: "Zones", Object: "Zone"})
}
