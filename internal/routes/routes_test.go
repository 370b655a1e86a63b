package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/teams"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := config.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}

	equipos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(equipos.Close)

	jwt := middleware.NewJWT("test-secret")
	return SetupRouter(Deps{
		DB:           db,
		JWT:          jwt,
		Auth:         services.NewAuthService(db, jwt),
		Participants: services.NewParticipantService(db, nil),
		Users:        services.NewUserService(db, nil, teams.NewClient(equipos.URL, time.Second), "https://api.test"),
		UploadDir:    t.TempDir(),
	})
}

type client struct {
	t     *testing.T
	r     *gin.Engine
	token string
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.r.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			c.t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func login(t *testing.T, c *client) float64 {
	t.Helper()
	code, _ := c.do(http.MethodPost, "/api/auth/register", map[string]any{
		"nombre": "Tesorera", "usuario": "teso", "email": "teso@x.com", "password": "clave",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	code, resp := c.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "teso@x.com", "password": "clave"})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	c.token = resp["token"].(string)
	return resp["user"].(map[string]any)["id"].(float64)
}

func TestHealthAndMetrics(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	if code, resp := c.do(http.MethodGet, "/health", nil); code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", code, resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tinkus_http_request_duration_seconds") {
		t.Fatalf("expected request histogram on /metrics, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	for _, path := range []string{"/api/participantes", "/api/participantes/resumen", "/api/users", "/api/users/count"} {
		if code, _ := c.do(http.MethodGet, path, nil); code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, code)
		}
	}
	c.token = "garbage"
	if code, _ := c.do(http.MethodGet, "/api/participantes", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid token, got %d", code)
	}
}

func TestParticipantPaymentFlow(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	userID := login(t, c)

	code, resp := c.do(http.MethodPost, "/api/participantes/register", map[string]any{
		"nombres": "Ana", "apellidos": "Quispe", "carrera": "Sistemas", "ci": "555", "celular": "7000", "monto_inicial": 100,
	})
	if code != http.StatusCreated || resp["message"] != "Participante registrado con pago inicial" {
		t.Fatalf("register participant: %d %v", code, resp)
	}
	p := resp["participante"].(map[string]any)
	if p["usuarioId"] != userID {
		t.Fatalf("expected participant owned by %v, got %v", userID, p["usuarioId"])
	}
	id := int(p["id"].(float64))

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/participantes/%d/pagos", id), map[string]any{"monto": 0.001})
	if code != http.StatusBadRequest || resp["error"] != "El monto debe ser mayor a 0" {
		t.Fatalf("expected 400 for a sub-cent payment, got %d %v", code, resp)
	}

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/participantes/%d/pagos", id), map[string]any{"monto": 220})
	if code != http.StatusCreated || resp["monto_restante"] != float64(0) {
		t.Fatalf("register payment: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, fmt.Sprintf("/api/participantes/%d", id), nil)
	if code != http.StatusOK || resp["estado"] != "completado" || resp["monto_restante"] != float64(0) {
		t.Fatalf("get participant: %d %v", code, resp)
	}
	if owner := resp["usuario"].(map[string]any); owner["usuario"] != "teso" {
		t.Fatalf("unexpected owner %v", owner)
	}

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/participantes/%d/pagos", id), map[string]any{"monto": 1})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 on overpayment, got %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, "/api/participantes/resumen", nil)
	if code != http.StatusOK || resp["total_recaudado"] != float64(320) {
		t.Fatalf("summary: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, "/api/participantes?page=1&limit=10", nil)
	if code != http.StatusOK || resp["pagination"].(map[string]any)["totalItems"] != float64(1) {
		t.Fatalf("list: %d %v", code, resp)
	}

	if code, _ := c.do(http.MethodGet, "/api/participantes/999", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code, _ := c.do(http.MethodGet, "/api/participantes/abc/pagos", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	if code, _ := c.do(http.MethodDelete, fmt.Sprintf("/api/participantes/%d", id), nil); code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
}

func TestUserRoutes(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	userID := login(t, c)

	code, resp := c.do(http.MethodGet, "/api/users/count", nil)
	if code != http.StatusOK || resp["total"] != float64(1) {
		t.Fatalf("count: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, fmt.Sprintf("/api/users/name/%d", int(userID)), nil)
	if code != http.StatusOK || resp["nombreCompleto"] != "Tesorera " {
		t.Fatalf("name: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, "/api/users/tecnicos", nil)
	if code != http.StatusNotFound || resp["error"] != `Rol "Tecnico" no encontrado` {
		t.Fatalf("tecnicos: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodPut, fmt.Sprintf("/api/users/%d", int(userID)), map[string]any{
		"nombre": "Tesorera", "apellido": "Mayor", "usuario": "teso", "email": "teso@x.com", "ci": "77",
	})
	if code != http.StatusOK || resp["message"] != "Usuario actualizado correctamente" {
		t.Fatalf("update: %d %v", code, resp)
	}

	code, resp = c.do(http.MethodGet, fmt.Sprintf("/api/users/equipos/%d", int(userID)), nil)
	if code != http.StatusOK {
		t.Fatalf("equipos: %d %v", code, resp)
	}
	if eq, ok := resp["equipos"].([]any); !ok || len(eq) != 0 {
		t.Fatalf("expected empty equipos list, got %v", resp["equipos"])
	}

	if code, _ := c.do(http.MethodGet, "/api/users/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code, _ := c.do(http.MethodGet, "/api/users/999", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}
