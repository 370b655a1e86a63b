package models

import "time"

// Payment is one installment recorded against a participant.
type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ParticipanteID uint      `gorm:"column:participante_id;index;not null" json:"participanteId"`
	Monto          float64   `gorm:"column:monto;not null" json:"monto"`
	MetodoPago     string    `gorm:"column:metodo_pago;default:efectivo" json:"metodo_pago"`
	Observacion    *string   `gorm:"column:observacion" json:"observacion"`
	Fecha          time.Time `gorm:"column:fecha;index" json:"fecha"`
}
