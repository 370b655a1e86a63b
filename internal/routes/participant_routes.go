package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/controllers"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
)

func ParticipantRoutes(r *gin.Engine, jwt *middleware.JWT, h *controllers.ParticipantHandler) {
	p := r.Group("/api/participantes")
	p.Use(jwt.RequireAuth())
	{
		p.POST("/register", h.Register)
		p.GET("", h.List)
		p.GET("/", h.List)
		p.GET("/resumen", h.Summary)
		p.GET("/:id", h.Get)
		p.PUT("/:id", h.Update)
		p.DELETE("/:id", h.Delete)

		p.POST("/:id/pagos", h.RegisterPayment)
		p.GET("/:id/pagos", h.ListPayments)
		p.PUT("/:id/pagos/:pagoId", h.UpdatePayment)
		p.DELETE("/:id/pagos/:pagoId", h.DeletePayment)
	}
}
