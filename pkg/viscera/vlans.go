package viscera

func init() {
	Register(TypeSpec{
		Name:    "VLAN",
		Handler: "Vlan",
		Fields: []FieldSpec{
			{Name: "id", PK: true, ReadOnly: true, ToValue: intValue},
			{Name: "name", ToValue: optionalStringValue},
			{Name: "vid", ToValue: intValue},
			{Name: "mtu", ToValue: intValue},
			{Name: "dhcp_on", Default: false, HasDefault: true},
			{Name: "fabric", ToValue: relatedValue("Fabric", "")},
			// A VLAN can relay DHCP through another VLAN.
			{Name: "relay_vlan", ToValue: relatedValue("VLAN", "")},
		},
	})
	RegisterSet(SetSpec{Name: "VLANs", Handler: "Vlans", Object: "VLAN"})
}
