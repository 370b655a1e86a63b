package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Nombre    string    `gorm:"not null" json:"nombre"`
	Apellido  string    `json:"apellido"`
	Usuario   string    `json:"usuario"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CI        string    `gorm:"column:ci" json:"ci"`
	Profesion *string   `json:"profesion"`
	Item      *string   `json:"item"`
	Foto      *string   `json:"foto"`
	Password  string    `gorm:"not null" json:"-"`
	Rol       string    `gorm:"default:tesorero" json:"rol"` // account role carried in tokens
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Join records; see UserRole, UserArea, UserTeam.
	Roles   []UserRole `gorm:"foreignKey:UserID" json:"-"`
	Areas   []UserArea `gorm:"foreignKey:UserID" json:"-"`
	Equipos []UserTeam `gorm:"foreignKey:UserID" json:"-"`
}

// UserRole links a user to a role.
type UserRole struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false"`
	RoleID uint `gorm:"primaryKey;autoIncrement:false"`
	Role   Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE;"`
}

// UserArea links a user to an area.
type UserArea struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false"`
	AreaID uint `gorm:"primaryKey;autoIncrement:false"`
	Area   Area `gorm:"foreignKey:AreaID;constraint:OnDelete:CASCADE;"`
}

// UserTeam records membership in a team owned by the external equipment service.
// TeamID is opaque to this service.
type UserTeam struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false"`
	TeamID uint `gorm:"primaryKey;autoIncrement:false"`
}
