package viscera

func init() {
	Register(TypeSpec{
		Name: "Subnet",
		Fields: []FieldSpec{
			{Name: "id", PK: true, ReadOnly: true, ToValue: intValue},
			{Name: "name", ToValue: stringValue},
			{Name: "cidr", ToValue: stringValue},
			{Name: "gateway_ip", ToValue: optionalStringValue,
				Default: "", HasDefault: true},
			{Name: "dns_servers", ToValue: stringSliceValue},
			{Name: "managed", Default: true, HasDefault: true},
			{Name: "vlan", ToValue: relatedValue("VLAN", "")},
		},
	})
	RegisterSet(SetSpec{Name: "Subnets", Object: "Subnet"})
}
