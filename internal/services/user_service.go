package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/metrics"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
)

// PhotoStore keeps user photos outside the database. References returned by
// Upload are what gets stored in users.foto.
type PhotoStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// TeamFetcher reads team membership from the equipment service.
type TeamFetcher interface {
	UserTeams(ctx context.Context, userID uint) (json.RawMessage, error)
}

type UserService struct {
	db      *gorm.DB
	photos  PhotoStore
	teams   TeamFetcher
	baseURL string
}

// NewUserService builds the service; photos may be nil when uploads are disabled.
func NewUserService(db *gorm.DB, photos PhotoStore, teams TeamFetcher, baseURL string) *UserService {
	return &UserService{db: db, photos: photos, teams: teams, baseURL: baseURL}
}

type UserView struct {
	ID        uint      `json:"id"`
	Nombre    string    `json:"nombre"`
	Apellido  string    `json:"apellido"`
	Usuario   string    `json:"usuario"`
	Email     string    `json:"email"`
	CI        string    `json:"ci"`
	Profesion *string   `json:"profesion"`
	Item      *string   `json:"item"`
	Foto      *string   `json:"foto"`
	Rol       string    `json:"rol"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RoleView struct {
	ID       uint                `json:"id"`
	Nombre   string              `json:"nombre"`
	Permisos []models.Permission `json:"permisos"`
}

type UserDetail struct {
	UserView
	Roles   []RoleView      `json:"roles"`
	Areas   []models.Area   `json:"areas"`
	Equipos json.RawMessage `json:"equipos,omitempty"`
}

type UpdateUserInput struct {
	Nombre    string
	Apellido  string
	Usuario   string
	Email     string
	CI        string
	Profesion *string
	Password  string
	Roles     []uint
	Areas     []uint
	// PhotoPath is a local temp file holding a new photo. It is always removed.
	PhotoPath string
}

func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, s.view(u))
	}
	return views, nil
}

// Get returns a user with roles (and their permissions) and areas resolved.
func (s *UserService) Get(ctx context.Context, id uint) (*UserDetail, error) {
	var u models.User
	err := withUserAssociations(s.db.WithContext(ctx)).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	d := s.detail(u)
	return &d, nil
}

// Update replaces the profile fields, the role set and the area set of a user
// in one transaction. A new photo is uploaded first; the old one is removed
// from the store only after the transaction commits.
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*UserDetail, error) {
	if in.PhotoPath != "" {
		defer removeTemp(in.PhotoPath)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	updates := map[string]interface{}{
		"nombre":    in.Nombre,
		"apellido":  in.Apellido,
		"usuario":   in.Usuario,
		"email":     in.Email,
		"ci":        in.CI,
		"profesion": in.Profesion,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}

	var newPhoto string
	if in.PhotoPath != "" {
		if s.photos == nil {
			return nil, validationf("La carga de fotos no está habilitada")
		}
		ref, err := s.photos.Upload(ctx, in.PhotoPath)
		if err != nil {
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		newPhoto = ref
		updates["foto"] = ref
	}

	roles := uniqueIDs(in.Roles)
	areas := uniqueIDs(in.Areas)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if len(roles) > 0 {
			links := make([]models.UserRole, 0, len(roles))
			for _, r := range roles {
				links = append(links, models.UserRole{UserID: id, RoleID: r})
			}
			if err := tx.Omit("Role").Create(&links).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.UserArea{}).Error; err != nil {
			return err
		}
		if len(areas) > 0 {
			links := make([]models.UserArea, 0, len(areas))
			for _, a := range areas {
				links = append(links, models.UserArea{UserID: id, AreaID: a})
			}
			if err := tx.Omit("Area").Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if newPhoto != "" {
			s.deletePhoto(ctx, newPhoto)
		}
		switch {
		case isUniqueViolation(err):
			return nil, validationf("El email ya está registrado")
		case isForeignKeyViolation(err):
			return nil, validationf("Rol o área inexistente")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if newPhoto != "" && user.Foto != nil && *user.Foto != "" {
		s.deletePhoto(ctx, *user.Foto)
	}
	return s.Get(ctx, id)
}

// Delete removes the user's role, team and area links and then the user.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		for _, link := range []interface{}{&models.UserRole{}, &models.UserTeam{}, &models.UserArea{}} {
			if err := tx.Where("user_id = ?", id).Delete(link).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if user.Foto != nil && *user.Foto != "" {
		s.deletePhoto(ctx, *user.Foto)
	}
	return nil
}

// ByRole lists the users holding the given role id.
func (s *UserService) ByRole(ctx context.Context, roleID uint) ([]UserDetail, error) {
	db := s.db.WithContext(ctx)
	var users []models.User
	err := withUserAssociations(db).
		Where("id IN (?)", db.Model(&models.UserRole{}).Select("user_id").Where("role_id = ?", roleID)).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("users by role: %w", err)
	}
	return s.details(users), nil
}

// FullName returns "<nombre> <apellido>" for a user.
func (s *UserService) FullName(ctx context.Context, id uint) (string, error) {
	var u models.User
	err := s.db.WithContext(ctx).Select("id", "nombre", "apellido").First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("get user name: %w", err)
	}
	return u.Nombre + " " + u.Apellido, nil
}

// Technicians lists every user holding the "Tecnico" role.
func (s *UserService) Technicians(ctx context.Context) ([]UserDetail, error) {
	db := s.db.WithContext(ctx)

	var role models.Role
	if err := db.Where("nombre = ?", models.TechnicianRole).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("find technician role: %w", err)
	}
	return s.ByRole(ctx, role.ID)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// WithTeams returns the user detail merged with its teams from the equipment service.
func (s *UserService) WithTeams(ctx context.Context, id uint) (*UserDetail, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.UserTeams(ctx, id)
	if err != nil {
		metrics.TeamServiceErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrTeamService, err)
	}
	d.Equipos = teams
	return d, nil
}

// PhotoURL renders a stored photo reference as an absolute URL.
func (s *UserService) PhotoURL(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if strings.HasPrefix(*ref, "http://") || strings.HasPrefix(*ref, "https://") {
		return ref
	}
	u := strings.TrimRight(s.baseURL, "/") + "/" + strings.TrimLeft(*ref, "/")
	return &u
}

func (s *UserService) view(u models.User) UserView {
	return UserView{
		ID:        u.ID,
		Nombre:    u.Nombre,
		Apellido:  u.Apellido,
		Usuario:   u.Usuario,
		Email:     u.Email,
		CI:        u.CI,
		Profesion: u.Profesion,
		Item:      u.Item,
		Foto:      s.PhotoURL(u.Foto),
		Rol:       u.Rol,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *UserService) detail(u models.User) UserDetail {
	d := UserDetail{
		UserView: s.view(u),
		Roles:    make([]RoleView, 0, len(u.Roles)),
		Areas:    make([]models.Area, 0, len(u.Areas)),
	}
	for _, ur := range u.Roles {
		rv := RoleView{ID: ur.Role.ID, Nombre: ur.Role.Nombre, Permisos: make([]models.Permission, 0, len(ur.Role.Permisos))}
		for _, rp := range ur.Role.Permisos {
			rv.Permisos = append(rv.Permisos, rp.Permission)
		}
		d.Roles = append(d.Roles, rv)
	}
	for _, ua := range u.Areas {
		d.Areas = append(d.Areas, ua.Area)
	}
	return d
}

func (s *UserService) details(users []models.User) []UserDetail {
	out := make([]UserDetail, 0, len(users))
	for _, u := range users {
		out = append(out, s.detail(u))
	}
	return out
}

func (s *UserService) deletePhoto(ctx context.Context, ref string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, ref); err != nil {
		logrus.WithError(err).WithField("ref", ref).Warn("failed to delete stored photo")
	}
}

func withUserAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("role_id") }).
		Preload("Roles.Role").
		Preload("Roles.Role.Permisos").
		Preload("Roles.Role.Permisos.Permission").
		Preload("Areas", func(db *gorm.DB) *gorm.DB { return db.Order("area_id") }).
		Preload("Areas.Area")
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).WithField("path", path).Warn("failed to remove temp upload")
	}
}
