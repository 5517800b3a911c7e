package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/validation"
)

// BcryptCost - стоимость хеширования паролей.
const BcryptCost = 12

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	cost         int
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Name     string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User  *models.User
	Token *AccessToken
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		cost:         BcryptCost,
	}
}

// Register создаёт нового пользователя и выдаёт ему токен.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Validation(err)
	}
	role, err := valueobject.NewRole(strings.ToLower(strings.TrimSpace(in.Role)))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name != "" {
		if err := validation.ValidateName(name); err != nil {
			return nil, apperror.Validation(err)
		}
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.ErrEmailTaken
	} else if !errors.Is(err, apperror.ErrUserNotFound) {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo procesar la contraseña")
	}

	user := models.NewUser(email, string(passHash), role, name)
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login проверяет учётные данные и возвращает токен.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Validation(err)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if !user.Active {
		return nil, apperror.ErrAccountDisabled
	}

	// Ошибка обновления last_login_at не прерывает вход.
	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Component("auth").WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("не удалось обновить last_login_at")
	}

	return s.issue(user)
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperror.ErrAccountDisabled
	}
	return user, nil
}

// VerifyEmail отмечает email подтверждённым. Письмо не отправляется.
func (s *AuthService) VerifyEmail(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo emitir el token")
	}
	return &AuthResult{User: user, Token: token}, nil
}
