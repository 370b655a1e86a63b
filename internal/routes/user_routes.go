package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/controllers"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
)

func UserRoutes(r *gin.Engine, jwt *middleware.JWT, h *controllers.UserHandler) {
	users := r.Group("/api/users")
	users.Use(jwt.RequireAuth())
	{
		users.GET("", h.List)
		users.GET("/", h.List)
		users.GET("/tecnicos", h.Technicians)
		users.GET("/count", h.Count)
		users.GET("/role/:roleId", h.ByRole)
		users.GET("/name/:id", h.Name)
		users.GET("/equipos/:id", h.WithTeams)
		users.GET("/:id", h.Get)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}
