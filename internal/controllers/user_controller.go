package controllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

// UserService is what UserHandler needs from the user service.
type UserService interface {
	List(ctx context.Context) ([]services.UserView, error)
	Get(ctx context.Context, id uint) (*services.UserDetail, error)
	Update(ctx context.Context, id uint, in services.UpdateUserInput) (*services.UserDetail, error)
	Delete(ctx context.Context, id uint) error
	ByRole(ctx context.Context, roleID uint) ([]services.UserDetail, error)
	FullName(ctx context.Context, id uint) (string, error)
	Technicians(ctx context.Context) ([]services.UserDetail, error)
	Count(ctx context.Context) (int64, error)
	WithTeams(ctx context.Context, id uint) (*services.UserDetail, error)
}

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

type UserHandler struct {
	svc       UserService
	uploadDir string
}

// NewUserHandler builds the handler; uploaded photos are staged in uploadDir
// (the OS temp dir when empty).
func NewUserHandler(svc UserService, uploadDir string) *UserHandler {
	return &UserHandler{svc: svc, uploadDir: uploadDir}
}

type updateUserInput struct {
	Nombre    string  `form:"nombre" json:"nombre" binding:"required"`
	Apellido  string  `form:"apellido" json:"apellido" binding:"required"`
	Usuario   string  `form:"usuario" json:"usuario" binding:"required"`
	Email     string  `form:"email" json:"email" binding:"required,email"`
	CI        string  `form:"ci" json:"ci" binding:"required"`
	Profesion *string `form:"profesion" json:"profesion"`
	Password  string  `form:"password" json:"password"`
	Roles     []uint  `form:"roles" json:"roles"`
	Areas     []uint  `form:"areas" json:"areas"`
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Update accepts multipart/form-data (with an optional "foto" file) or JSON.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input updateUserInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.UpdateUserInput{
		Nombre:    input.Nombre,
		Apellido:  input.Apellido,
		Usuario:   input.Usuario,
		Email:     input.Email,
		CI:        input.CI,
		Profesion: input.Profesion,
		Password:  input.Password,
		Roles:     input.Roles,
		Areas:     input.Areas,
	}
	if in.Profesion != nil && *in.Profesion == "" {
		in.Profesion = nil
	}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		var err error
		if len(in.Roles) == 0 {
			if in.Roles, err = formIDs(c, "roles[]"); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "roles inválidos"})
				return
			}
		}
		if len(in.Areas) == 0 {
			if in.Areas, err = formIDs(c, "areas[]"); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "areas inválidas"})
				return
			}
		}
		path, ok := h.stagePhoto(c)
		if !ok {
			return
		}
		in.PhotoPath = path
	}

	u, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, "update user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuario actualizado correctamente", "user": u})
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuario eliminado correctamente"})
}

func (h *UserHandler) ByRole(c *gin.Context) {
	roleID, ok := paramID(c, "roleId")
	if !ok {
		return
	}
	users, err := h.svc.ByRole(c.Request.Context(), roleID)
	if err != nil {
		respondError(c, "users by role", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Name(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	name, err := h.svc.FullName(c.Request.Context(), id)
	if err != nil {
		respondError(c, "user name", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nombreCompleto": name})
}

func (h *UserHandler) Technicians(c *gin.Context) {
	users, err := h.svc.Technicians(c.Request.Context())
	if err != nil {
		respondError(c, "technicians", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Count(c *gin.Context) {
	total, err := h.svc.Count(c.Request.Context())
	if err != nil {
		respondError(c, "count users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (h *UserHandler) WithTeams(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.WithTeams(c.Request.Context(), id)
	if err != nil {
		respondError(c, "user with teams", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// stagePhoto saves the optional "foto" part to a temp file and returns its
// path. The service removes the file once it is done with it.
func (h *UserHandler) stagePhoto(c *gin.Context) (string, bool) {
	file, err := c.FormFile("foto")
	if errors.Is(err, http.ErrMissingFile) {
		return "", true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo de foto inválido"})
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !photoExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato de imagen no permitido"})
		return "", false
	}

	tmp, err := os.CreateTemp(h.uploadDir, "foto-*"+ext)
	if err != nil {
		respondError(c, "stage photo", err)
		return "", false
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := c.SaveUploadedFile(file, path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logrus.WithError(rmErr).WithField("path", path).Warn("failed to remove temp upload")
		}
		respondError(c, "stage photo", err)
		return "", false
	}
	return path, true
}

func formIDs(c *gin.Context, key string) ([]uint, error) {
	values := c.PostFormArray(key)
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
