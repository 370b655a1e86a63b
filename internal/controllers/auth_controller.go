package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

// AuthService is what AuthHandler needs from the auth service.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterUserInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerInput struct {
	Nombre   string `json:"nombre" binding:"required"`
	Usuario  string `json:"usuario" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Rol      string `json:"rol"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), services.RegisterUserInput{
		Nombre:   input.Nombre,
		Usuario:  input.Usuario,
		Email:    input.Email,
		Password: input.Password,
		Rol:      input.Rol,
	})
	if err != nil {
		respondError(c, "register user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Usuario registrado con éxito",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login exitoso",
		"token":   token,
		"user": gin.H{
			"id":     user.ID,
			"nombre": user.Nombre,
			"email":  user.Email,
			"rol":    user.Rol,
		},
	})
}
