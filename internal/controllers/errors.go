package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

const internalErrorMsg = "Error interno del servidor"

// respondError maps service errors to HTTP responses. Anything unrecognised
// is logged with the operation name and answered with a generic 500.
func respondError(c *gin.Context, op string, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	case errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRoleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(err.Error())})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "El email ya está registrado"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credenciales inválidas"})
	default:
		logrus.WithError(err).WithField("op", op).Error("request failed")
		msg := internalErrorMsg
		if errors.Is(err, services.ErrTeamService) {
			msg = "Error al obtener usuario con equipos"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// respondBindError answers 400 for a request body or query that failed to bind.
func respondBindError(c *gin.Context, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	msg := validationMessage(err)
	switch {
	case msg != "":
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.As(err, &numErr):
		msg = "Cuerpo de la solicitud inválido"
	default:
		msg = "Solicitud inválida"
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID parses a numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return 0, false
	}
	return uint(id), true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
