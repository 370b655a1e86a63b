package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
)

const defaultAccountRole = "tesorero"

// TokenSigner issues access tokens for authenticated users.
type TokenSigner interface {
	Sign(userID uint, email, role string) (string, error)
}

// AuthService implements registration and login.
type AuthService struct {
	db     *gorm.DB
	signer TokenSigner
}

func NewAuthService(db *gorm.DB, signer TokenSigner) *AuthService {
	return &AuthService{db: db, signer: signer}
}

type RegisterUserInput struct {
	Nombre   string
	Usuario  string
	Email    string
	Password string
	Rol      string
}

func (s *AuthService) Register(ctx context.Context, in RegisterUserInput) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	rol := strings.TrimSpace(in.Rol)
	if rol == "" {
		rol = defaultAccountRole
	}
	user := models.User{
		Nombre:   in.Nombre,
		Usuario:  in.Usuario,
		Email:    in.Email,
		Password: hash,
		Rol:      rol,
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Login verifies the credentials and returns a signed token for the user.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signer.Sign(user.ID, user.Email, user.Rol)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, &user, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
