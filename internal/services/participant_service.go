package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/metrics"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
)

const (
	defaultTipoPago      = "cuotas"
	defaultMetodoPago    = "efectivo"
	initialPaymentNote   = "Pago inicial al registro"
	defaultPageSize      = 10
	maxPageSize          = 100
	defaultSortColumn    = "created_at"
	defaultSortDirection = "desc"
)

// sortColumns whitelists the participant fields a list may be ordered by.
// Keys are the names clients use; values are the column names.
var sortColumns = map[string]string{
	"id":           "id",
	"nombres":      "nombres",
	"apellidos":    "apellidos",
	"carrera":      "carrera",
	"ci":           "ci",
	"celular":      "celular",
	"tipo_pago":    "tipo_pago",
	"monto_total":  "monto_total",
	"monto_pagado": "monto_pagado",
	"estado":       "estado",
	"usuarioId":    "usuario_id",
	"usuario_id":   "usuario_id",
	"createdAt":    "created_at",
	"created_at":   "created_at",
	"updatedAt":    "updated_at",
	"updated_at":   "updated_at",
}

// SummaryCache stores the last computed payment summary. Get returns nil on a
// miss together with the current generation; Set stores s only while the
// generation is unchanged, and Invalidate starts a new generation.
type SummaryCache interface {
	Get(ctx context.Context) (*Summary, int64, error)
	Set(ctx context.Context, s *Summary, generation int64) error
	Invalidate(ctx context.Context) error
}

type ParticipantService struct {
	db    *gorm.DB
	cache SummaryCache
}

// NewParticipantService builds the service; cache may be nil.
func NewParticipantService(db *gorm.DB, cache SummaryCache) *ParticipantService {
	return &ParticipantService{db: db, cache: cache}
}

type RegisterParticipantInput struct {
	Nombres      string
	Apellidos    string
	Carrera      string
	CI           string
	Celular      string
	TipoPago     string
	MontoInicial float64
	MetodoPago   string
	Observacion  *string
	UsuarioID    *uint
}

type UpdateParticipantInput struct {
	Nombres   *string
	Apellidos *string
	Carrera   *string
	CI        *string
	Celular   *string
	TipoPago  *string
}

type ListParticipantsQuery struct {
	Search    string
	Estado    string
	Carrera   string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type OwnerView struct {
	Nombre  string `json:"nombre"`
	Usuario string `json:"usuario"`
}

// ParticipantView is a participant enriched with its derived balance figures.
type ParticipantView struct {
	models.Participant
	Usuario          *OwnerView `json:"usuario"`
	MontoRestante    float64    `json:"monto_restante"`
	PorcentajePagado float64    `json:"porcentaje_pagado"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type ParticipantPage struct {
	Participantes []ParticipantView `json:"participantes"`
	Pagination    Pagination        `json:"pagination"`
}

type RegisterPaymentInput struct {
	Monto       float64
	MetodoPago  string
	Observacion *string
}

type UpdatePaymentInput struct {
	Monto       *float64
	MetodoPago  *string
	Observacion *string
}

type PaymentReceipt struct {
	Pago          models.Payment `json:"pago"`
	MontoRestante float64        `json:"monto_restante"`
}

type StatusCount struct {
	Estado string `json:"estado"`
	Total  int64  `json:"total"`
}

type Summary struct {
	TotalParticipantes  int64         `json:"total_participantes"`
	TotalRecaudado      float64       `json:"total_recaudado"`
	TotalEsperado       float64       `json:"total_esperado"`
	PorcentajeRecaudado float64       `json:"porcentaje_recaudado"`
	MontoPromedio       float64       `json:"monto_promedio_por_participante"`
	ConteoPorEstado     []StatusCount `json:"conteo_por_estado"`
}

// Register creates a participant and, when an initial amount is given, its first payment.
func (s *ParticipantService) Register(ctx context.Context, in RegisterParticipantInput) (*models.Participant, error) {
	paid := roundCents(in.MontoInicial)
	if paid < 0 || paid > models.TotalDue {
		return nil, validationf("El monto inicial debe estar entre 0 y %v", models.TotalDue)
	}

	taken, err := s.ciTaken(ctx, in.CI, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, validationf("La cédula ya está registrada")
	}

	p := models.Participant{
		Nombres:     in.Nombres,
		Apellidos:   in.Apellidos,
		Carrera:     in.Carrera,
		CI:          in.CI,
		Celular:     in.Celular,
		TipoPago:    orDefault(in.TipoPago, defaultTipoPago),
		MontoTotal:  models.TotalDue,
		MontoPagado: paid,
		Estado:      models.StatusFor(paid),
		UsuarioID:   in.UsuarioID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if paid <= 0 {
			return nil
		}
		note := in.Observacion
		if note == nil || *note == "" {
			n := initialPaymentNote
			note = &n
		}
		pago := models.Payment{
			ParticipanteID: p.ID,
			Monto:          paid,
			MetodoPago:     orDefault(in.MetodoPago, defaultMetodoPago),
			Observacion:    note,
			Fecha:          time.Now(),
		}
		if err := tx.Create(&pago).Error; err != nil {
			return err
		}
		p.Pagos = []models.Payment{pago}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("La cédula ya está registrada")
		}
		return nil, fmt.Errorf("register participant: %w", err)
	}
	if p.Pagos == nil {
		p.Pagos = []models.Payment{}
	}

	metrics.ParticipantsRegisteredTotal.WithLabelValues(p.Estado).Inc()
	if paid > 0 {
		metrics.PaymentsTotal.WithLabelValues("create").Inc()
		metrics.PaymentAmountTotal.Add(paid)
	}
	s.invalidateSummary(ctx)
	return &p, nil
}

// List returns one page of participants matching q.
func (s *ParticipantService) List(ctx context.Context, q ListParticipantsQuery) (*ParticipantPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	column := defaultSortColumn
	if q.SortBy != "" {
		c, ok := sortColumns[q.SortBy]
		if !ok {
			return nil, validationf("Campo de ordenamiento inválido: %s", q.SortBy)
		}
		column = c
	}
	direction := strings.ToLower(q.SortOrder)
	if direction == "" {
		direction = defaultSortDirection
	}
	if direction != "asc" && direction != "desc" {
		return nil, validationf("Orden inválido: %s", q.SortOrder)
	}

	var total int64
	if err := applyParticipantFilters(s.db.WithContext(ctx).Model(&models.Participant{}), q).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}

	var participants []models.Participant
	err := withParticipantDetails(applyParticipantFilters(s.db.WithContext(ctx), q)).
		Order(column + " " + direction).
		Order("id " + direction).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, newParticipantView(p))
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &ParticipantPage{
		Participantes: views,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
			HasNext:      page < totalPages,
			HasPrev:      page > 1,
		},
	}, nil
}

// Get returns a single participant with owner, payments and balance figures.
func (s *ParticipantService) Get(ctx context.Context, id uint) (*ParticipantView, error) {
	var p models.Participant
	if err := withParticipantDetails(s.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	v := newParticipantView(p)
	return &v, nil
}

// Update changes the identity fields of a participant. Amounts and payments are untouched.
func (s *ParticipantService) Update(ctx context.Context, id uint, in UpdateParticipantInput) (*models.Participant, error) {
	db := s.db.WithContext(ctx)

	var p models.Participant
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("find participant: %w", err)
	}

	if in.CI != nil && *in.CI != p.CI {
		taken, err := s.ciTaken(ctx, *in.CI, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, validationf("La cédula ya está registrada en otro participante")
		}
	}

	updates := map[string]interface{}{}
	setIf(updates, "nombres", in.Nombres)
	setIf(updates, "apellidos", in.Apellidos)
	setIf(updates, "carrera", in.Carrera)
	setIf(updates, "ci", in.CI)
	setIf(updates, "celular", in.Celular)
	setIf(updates, "tipo_pago", in.TipoPago)

	if len(updates) > 0 {
		if err := db.Model(&models.Participant{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, validationf("La cédula ya está registrada en otro participante")
			}
			return nil, fmt.Errorf("update participant: %w", err)
		}
		if err := db.First(&p, id).Error; err != nil {
			return nil, fmt.Errorf("reload participant: %w", err)
		}
		s.invalidateSummary(ctx)
	}
	return &p, nil
}

// Delete removes a participant together with all of its payments.
func (s *ParticipantService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Participant
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if err := tx.Where("participante_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		return tx.Delete(&models.Participant{}, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrParticipantNotFound) {
			return err
		}
		return fmt.Errorf("delete participant: %w", err)
	}
	s.invalidateSummary(ctx)
	return nil
}

// RegisterPayment records a payment and advances the participant's balance.
func (s *ParticipantService) RegisterPayment(ctx context.Context, participantID uint, in RegisterPaymentInput) (*PaymentReceipt, error) {
	amount := roundCents(in.Monto)
	if amount <= 0 {
		return nil, validationf("El monto debe ser mayor a 0")
	}

	var receipt PaymentReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockParticipant(tx, participantID)
		if err != nil {
			return err
		}

		paid := roundCents(p.MontoPagado + amount)
		if paid > models.TotalDue {
			return validationf("El pago excede el monto total. Máximo permitido: %v", roundCents(models.TotalDue-p.MontoPagado))
		}

		pago := models.Payment{
			ParticipanteID: p.ID,
			Monto:          amount,
			MetodoPago:     orDefault(in.MetodoPago, defaultMetodoPago),
			Observacion:    in.Observacion,
			Fecha:          time.Now(),
		}
		if err := tx.Create(&pago).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := setBalance(tx, p.ID, paid); err != nil {
			return err
		}

		receipt = PaymentReceipt{Pago: pago, MontoRestante: roundCents(models.TotalDue - paid)}
		return nil
	})
	if err != nil {
		return nil, passDomain(err, "register payment")
	}

	metrics.PaymentsTotal.WithLabelValues("create").Inc()
	metrics.PaymentAmountTotal.Add(receipt.Pago.Monto)
	s.invalidateSummary(ctx)
	return &receipt, nil
}

// ListPayments returns a participant's payments, newest first.
func (s *ParticipantService) ListPayments(ctx context.Context, participantID uint) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Participant{}).Where("id = ?", participantID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	if count == 0 {
		return nil, ErrParticipantNotFound
	}

	pagos := []models.Payment{}
	if err := db.Where("participante_id = ?", participantID).
		Order("fecha DESC").Order("id DESC").
		Find(&pagos).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return pagos, nil
}

// UpdatePayment edits the supplied fields of a payment and re-derives the
// participant's balance from the resulting payment set.
func (s *ParticipantService) UpdatePayment(ctx context.Context, participantID, paymentID uint, in UpdatePaymentInput) (*models.Payment, error) {
	var amount float64
	if in.Monto != nil {
		amount = roundCents(*in.Monto)
		if amount <= 0 {
			return nil, validationf("El monto debe ser mayor a 0")
		}
	}

	var pago models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockParticipant(tx, participantID); err != nil {
			if errors.Is(err, ErrParticipantNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if err := findOwnedPayment(tx, participantID, paymentID, &pago); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Monto != nil {
			others, err := sumPayments(tx.Where("id <> ?", paymentID), participantID)
			if err != nil {
				return err
			}
			if roundCents(others+amount) > models.TotalDue {
				return validationf("El pago excede el monto total. Máximo permitido: %v", roundCents(models.TotalDue-others))
			}
			updates["monto"] = amount
		}
		setIf(updates, "metodo_pago", in.MetodoPago)
		if in.Observacion != nil {
			updates["observacion"] = *in.Observacion
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if _, err := recomputeBalance(tx, participantID); err != nil {
			return err
		}
		return tx.First(&pago, paymentID).Error
	})
	if err != nil {
		return nil, passDomain(err, "update payment")
	}

	metrics.PaymentsTotal.WithLabelValues("update").Inc()
	s.invalidateSummary(ctx)
	return &pago, nil
}

// DeletePayment removes a payment and recomputes the balance from the remaining payments.
func (s *ParticipantService) DeletePayment(ctx context.Context, participantID, paymentID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockParticipant(tx, participantID); err != nil {
			if errors.Is(err, ErrParticipantNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		var pago models.Payment
		if err := findOwnedPayment(tx, participantID, paymentID, &pago); err != nil {
			return err
		}
		if err := tx.Delete(&pago).Error; err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		_, err := recomputeBalance(tx, participantID)
		return err
	})
	if err != nil {
		return passDomain(err, "delete payment")
	}

	metrics.PaymentsTotal.WithLabelValues("delete").Inc()
	s.invalidateSummary(ctx)
	return nil
}

// Summary aggregates collection figures across all participants.
func (s *ParticipantService) Summary(ctx context.Context) (*Summary, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, gen, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			logrus.WithError(err).Warn("summary cache read failed")
		case cached != nil:
			return cached, nil
		default:
			cacheable, generation = true, gen
		}
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Participant{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	var collected float64
	if err := db.Model(&models.Participant{}).
		Select("COALESCE(SUM(monto_pagado), 0)").
		Scan(&collected).Error; err != nil {
		return nil, fmt.Errorf("sum collected: %w", err)
	}
	byStatus := []StatusCount{}
	if err := db.Model(&models.Participant{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Order("estado").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	expected := float64(count) * models.TotalDue
	sum := &Summary{
		TotalParticipantes: count,
		TotalRecaudado:     roundCents(collected),
		TotalEsperado:      expected,
		ConteoPorEstado:    byStatus,
	}
	if expected > 0 {
		sum.PorcentajeRecaudado = roundTo(collected/expected*100, 1)
	}
	if count > 0 {
		sum.MontoPromedio = roundTo(collected/float64(count), 2)
	}

	if cacheable {
		if err := s.cache.Set(ctx, sum, generation); err != nil {
			logrus.WithError(err).Warn("summary cache write failed")
		}
	}
	return sum, nil
}

func (s *ParticipantService) ciTaken(ctx context.Context, ci string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Participant{}).Where("ci = ?", ci)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check ci: %w", err)
	}
	return count > 0, nil
}

func (s *ParticipantService) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logrus.WithError(err).Warn("summary cache invalidation failed")
	}
}

func applyParticipantFilters(db *gorm.DB, q ListParticipantsQuery) *gorm.DB {
	if q.Search != "" {
		like := containsPattern(q.Search)
		db = db.Where(`(LOWER(nombres) LIKE ? ESCAPE '\' OR LOWER(apellidos) LIKE ? ESCAPE '\' OR `+
			`LOWER(ci) LIKE ? ESCAPE '\' OR LOWER(carrera) LIKE ? ESCAPE '\')`,
			like, like, like, like)
	}
	if q.Estado != "" {
		db = db.Where("estado = ?", q.Estado)
	}
	if q.Carrera != "" {
		db = db.Where(`LOWER(carrera) LIKE ? ESCAPE '\'`, containsPattern(q.Carrera))
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern builds a lower-cased LIKE pattern matching term literally anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func withParticipantDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Usuario", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "nombre", "usuario")
		}).
		Preload("Pagos", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha DESC").Order("id DESC")
		})
}

func newParticipantView(p models.Participant) ParticipantView {
	if p.Pagos == nil {
		p.Pagos = []models.Payment{}
	}
	v := ParticipantView{
		Participant:      p,
		MontoRestante:    roundCents(models.TotalDue - p.MontoPagado),
		PorcentajePagado: roundTo(p.MontoPagado/models.TotalDue*100, 1),
	}
	if p.Usuario != nil {
		v.Usuario = &OwnerView{Nombre: p.Usuario.Nombre, Usuario: p.Usuario.Usuario}
	}
	return v
}

// lockParticipant reads the participant row under FOR UPDATE so concurrent
// balance changes on the same participant serialize.
func lockParticipant(tx *gorm.DB, id uint) (*models.Participant, error) {
	var p models.Participant
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("lock participant: %w", err)
	}
	return &p, nil
}

func findOwnedPayment(tx *gorm.DB, participantID, paymentID uint, dst *models.Payment) error {
	err := tx.Where("id = ? AND participante_id = ?", paymentID, participantID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	return nil
}

func sumPayments(db *gorm.DB, participantID uint) (float64, error) {
	var sum float64
	if err := db.Model(&models.Payment{}).
		Where("participante_id = ?", participantID).
		Select("COALESCE(SUM(monto), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return roundCents(sum), nil
}

// recomputeBalance sets monto_pagado to the sum of the participant's payments.
func recomputeBalance(tx *gorm.DB, participantID uint) (float64, error) {
	paid, err := sumPayments(tx, participantID)
	if err != nil {
		return 0, err
	}
	return paid, setBalance(tx, participantID, paid)
}

func setBalance(tx *gorm.DB, participantID uint, paid float64) error {
	err := tx.Model(&models.Participant{}).Where("id = ?", participantID).Updates(map[string]interface{}{
		"monto_pagado": paid,
		"estado":       models.StatusFor(paid),
	}).Error
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

// passDomain returns sentinel and validation errors untouched and wraps the rest.
func passDomain(err error, op string) error {
	var ve *ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrParticipantNotFound) || errors.Is(err, ErrPaymentNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func setIf(m map[string]interface{}, column string, v *string) {
	if v != nil {
		m[column] = *v
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func roundCents(v float64) float64 { return roundTo(v, 2) }

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
