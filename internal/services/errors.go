package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrParticipantNotFound = errors.New("participante no encontrado")
	ErrPaymentNotFound     = errors.New("pago no encontrado")
	ErrUserNotFound        = errors.New("usuario no encontrado")
	ErrRoleNotFound        = errors.New(`rol "Tecnico" no encontrado`)
	ErrInvalidCredentials  = errors.New("credenciales inválidas")
	ErrEmailTaken          = errors.New("el email ya está registrado")
	ErrTeamService         = errors.New("error al consultar el servicio de equipos")
)

// ValidationError reports input that is well-formed but violates a business rule.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || pgCode(err) == pgForeignKeyViolation
}

// pgCode extracts the SQLSTATE from a pgx error. GORM normally translates
// these already; this catches errors surfacing from raw statements.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
