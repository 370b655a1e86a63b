package models

// All lists every persisted model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{}, &Role{}, &Permission{}, &RolePermission{}, &Area{},
		&UserRole{}, &UserArea{}, &UserTeam{},
		&Participant{}, &Payment{},
	}
}
