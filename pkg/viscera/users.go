package viscera

func init() {
	Register(TypeSpec{
		Name: "User",
		Fields: []FieldSpec{
			{Name: "username", PK: true, ToValue: stringValue},
			{Name: "email", ToValue: stringValue},
			{Name: "is_superuser", Default: false, HasDefault: true},
		},
	})
	RegisterSet(SetSpec{Name: "Users", Object: "User"})
}
