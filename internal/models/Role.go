package models

// TechnicianRole is the role name resolved by the technician roster.
const TechnicianRole = "Tecnico"

type Role struct {
	ID       uint             `gorm:"primaryKey" json:"id"`
	Nombre   string           `gorm:"uniqueIndex;not null" json:"nombre"`
	Permisos []RolePermission `gorm:"foreignKey:RoleID" json:"-"`
}

type Permission struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Nombre string `gorm:"not null" json:"nombre"`
}

type RolePermission struct {
	RoleID       uint       `gorm:"primaryKey;autoIncrement:false"`
	PermissionID uint       `gorm:"primaryKey;autoIncrement:false"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE;"`
}

type Area struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Nombre string `gorm:"not null" json:"nombre"`
}
