package viscera

func init() {
	Register(TypeSpec{
		Name: "Fabric",
		Fields: []FieldSpec{
			{Name: "id", PK: true, ReadOnly: true, ToValue: intValue},
			{Name: "name", ToValue: stringValue},
			{Name: "class_type", ToValue: optionalStringValue,
				Default: "", HasDefault: true},
			// Embedded VLAN documents; each resolved VLAN gets this fabric
			// back-populated so vlan.Get("fabric") needs no extra fetch.
			{Name: "vlans", ToValue: relatedSetValue("VLANs", "fabric")},
		},
	})
	RegisterSet(SetSpec{Name: "Fabrics", Object: "Fabric"})
}
