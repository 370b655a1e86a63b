package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/controllers"
)

func AuthRoutes(r *gin.Engine, h *controllers.AuthHandler) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}
