package models

import "time"

// TotalDue is the fixed amount every participant owes.
const TotalDue = 320.0

const (
	StatusPending   = "pendiente"
	StatusCompleted = "completado"
)

// Participant is an event registrant paying the registration fee in installments.
// MontoPagado always mirrors the sum of Payments; Estado is derived from it.
type Participant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Nombres     string    `gorm:"column:nombres;not null" json:"nombres"`
	Apellidos   string    `gorm:"column:apellidos;not null" json:"apellidos"`
	Carrera     string    `gorm:"column:carrera" json:"carrera"`
	CI          string    `gorm:"column:ci;uniqueIndex;not null" json:"ci"`
	Celular     string    `gorm:"column:celular" json:"celular"`
	TipoPago    string    `gorm:"column:tipo_pago;default:cuotas" json:"tipo_pago"`
	MontoTotal  float64   `gorm:"column:monto_total;not null" json:"monto_total"`
	MontoPagado float64   `gorm:"column:monto_pagado;not null;default:0" json:"monto_pagado"`
	Estado      string    `gorm:"column:estado;index;not null" json:"estado"`
	UsuarioID   *uint     `gorm:"column:usuario_id;index" json:"usuarioId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Usuario *User     `gorm:"foreignKey:UsuarioID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"usuario,omitempty"`
	Pagos   []Payment `gorm:"foreignKey:ParticipanteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"pagos"`
}

// StatusFor derives the participant status from the amount paid so far.
func StatusFor(paid float64) string {
	if paid >= TotalDue {
		return StatusCompleted
	}
	return StatusPending
}
