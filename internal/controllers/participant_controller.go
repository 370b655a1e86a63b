package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

// ParticipantService is what ParticipantHandler needs from the participant service.
type ParticipantService interface {
	Register(ctx context.Context, in services.RegisterParticipantInput) (*models.Participant, error)
	List(ctx context.Context, q services.ListParticipantsQuery) (*services.ParticipantPage, error)
	Get(ctx context.Context, id uint) (*services.ParticipantView, error)
	Update(ctx context.Context, id uint, in services.UpdateParticipantInput) (*models.Participant, error)
	Delete(ctx context.Context, id uint) error
	RegisterPayment(ctx context.Context, participantID uint, in services.RegisterPaymentInput) (*services.PaymentReceipt, error)
	ListPayments(ctx context.Context, participantID uint) ([]models.Payment, error)
	UpdatePayment(ctx context.Context, participantID, paymentID uint, in services.UpdatePaymentInput) (*models.Payment, error)
	DeletePayment(ctx context.Context, participantID, paymentID uint) error
	Summary(ctx context.Context) (*services.Summary, error)
}

type ParticipantHandler struct {
	svc ParticipantService
}

func NewParticipantHandler(svc ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{svc: svc}
}

type registerParticipantInput struct {
	Nombres      string   `json:"nombres" binding:"required"`
	Apellidos    string   `json:"apellidos" binding:"required"`
	Carrera      string   `json:"carrera"`
	CI           string   `json:"ci" binding:"required"`
	Celular      string   `json:"celular"`
	TipoPago     string   `json:"tipo_pago"`
	MontoInicial *float64 `json:"monto_inicial"`
	MetodoPago   string   `json:"metodo_pago"`
	Observacion  *string  `json:"observacion"`
}

type updateParticipantInput struct {
	Nombres   *string `json:"nombres"`
	Apellidos *string `json:"apellidos"`
	Carrera   *string `json:"carrera"`
	CI        *string `json:"ci" binding:"omitempty,min=1"`
	Celular   *string `json:"celular"`
	TipoPago  *string `json:"tipo_pago"`
}

type listParticipantsQuery struct {
	Search    string `form:"search"`
	Estado    string `form:"estado"`
	Carrera   string `form:"carrera"`
	Page      int    `form:"page" binding:"gte=0"`
	Limit     int    `form:"limit" binding:"gte=0"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type paymentInput struct {
	Monto       float64 `json:"monto" binding:"required,gt=0"`
	MetodoPago  string  `json:"metodo_pago"`
	Observacion *string `json:"observacion"`
}

type updatePaymentInput struct {
	Monto       *float64 `json:"monto" binding:"omitempty,gt=0"`
	MetodoPago  *string  `json:"metodo_pago"`
	Observacion *string  `json:"observacion"`
}

// Register creates a participant owned by the authenticated user.
func (h *ParticipantHandler) Register(c *gin.Context) {
	var input registerParticipantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.RegisterParticipantInput{
		Nombres:     input.Nombres,
		Apellidos:   input.Apellidos,
		Carrera:     input.Carrera,
		CI:          input.CI,
		Celular:     input.Celular,
		TipoPago:    input.TipoPago,
		MetodoPago:  input.MetodoPago,
		Observacion: input.Observacion,
	}
	if input.MontoInicial != nil {
		in.MontoInicial = *input.MontoInicial
	}
	if uid, ok := middleware.CurrentUserID(c); ok {
		in.UsuarioID = &uid
	}

	p, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, "register participant", err)
		return
	}

	msg := "Participante registrado sin pago inicial"
	if p.MontoPagado > 0 {
		msg = "Participante registrado con pago inicial"
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg, "participante": p})
}

func (h *ParticipantHandler) List(c *gin.Context) {
	var q listParticipantsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.svc.List(c.Request.Context(), services.ListParticipantsQuery(q))
	if err != nil {
		respondError(c, "list participants", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ParticipantHandler) Summary(c *gin.Context) {
	s, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, "payment summary", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *ParticipantHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get participant", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ParticipantHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input updateParticipantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, services.UpdateParticipantInput(input))
	if err != nil {
		respondError(c, "update participant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participante actualizado con éxito", "participante": p})
}

func (h *ParticipantHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "delete participant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participante eliminado con éxito"})
}

func (h *ParticipantHandler) RegisterPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input paymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	r, err := h.svc.RegisterPayment(c.Request.Context(), id, services.RegisterPaymentInput(input))
	if err != nil {
		respondError(c, "register payment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":        "Pago registrado con éxito",
		"pago":           r.Pago,
		"monto_restante": r.MontoRestante,
	})
}

func (h *ParticipantHandler) ListPayments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pagos, err := h.svc.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, "list payments", err)
		return
	}
	c.JSON(http.StatusOK, pagos)
}

func (h *ParticipantHandler) UpdatePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pagoID, ok := paramID(c, "pagoId")
	if !ok {
		return
	}
	var input updatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	pago, err := h.svc.UpdatePayment(c.Request.Context(), id, pagoID, services.UpdatePaymentInput(input))
	if err != nil {
		respondError(c, "update payment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pago actualizado con éxito", "pago": pago})
}

func (h *ParticipantHandler) DeletePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pagoID, ok := paramID(c, "pagoId")
	if !ok {
		return
	}
	if err := h.svc.DeletePayment(c.Request.Context(), id, pagoID); err != nil {
		respondError(c, "delete payment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pago eliminado con éxito"})
}
