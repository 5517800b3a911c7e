package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/conectacordoba/marketplace-backend/internal/cache"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/storage"
	"github.com/conectacordoba/marketplace-backend/internal/validation"
)

// ProfileRepository - операции с профилем, нужные ProfileService.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	UpdateSettings(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (map[string]interface{}, error)
	UpdatePhoto(ctx context.Context, id uuid.UUID, photoURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteClient(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// PhotoStore сохраняет изображения профиля.
type PhotoStore interface {
	Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// ProfileInput - частичное обновление профиля из запроса.
type ProfileInput struct {
	Name        *string
	Phone       *string
	Zone        *string
	Description *string
	Trades      []string
}

// ProfileService управляет профилем текущего пользователя.
type ProfileService struct {
	repo   ProfileRepository
	photos PhotoStore
	cache  cache.Cache
}

func NewProfileService(repo ProfileRepository, photos PhotoStore, c cache.Cache) *ProfileService {
	return &ProfileService{repo: repo, photos: photos, cache: c}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile проверяет и применяет изменения, затем пересчитывает profile_complete.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	update, err := validateProfileInput(user, in)
	if err != nil {
		return nil, err
	}

	user.Apply(update)
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	if user.IsProfessional() {
		s.invalidateProfessionals(ctx)
	}
	return user, nil
}

func validateProfileInput(user *models.User, in ProfileInput) (models.ProfileUpdate, error) {
	var update models.ProfileUpdate

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return update, apperror.Validation(err)
		}
		update.Name = &name
	}
	if in.Phone != nil {
		phone := validation.NormalizePhone(*in.Phone)
		if phone != "" {
			if err := validation.ValidatePhone(phone); err != nil {
				return update, apperror.Validation(err)
			}
		}
		update.Phone = &phone
	}
	if in.Zone != nil {
		zone := strings.TrimSpace(*in.Zone)
		if zone != "" {
			if err := validation.ValidateZone(zone); err != nil {
				return update, apperror.Validation(err)
			}
		}
		update.Zone = &zone
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if err := validation.ValidateDescription(description); err != nil {
			return update, apperror.Validation(err)
		}
		update.Description = &description
	}
	if in.Trades != nil {
		if !user.IsProfessional() {
			return update, apperror.ErrProfessionalsOnly
		}
		if err := validation.ValidateTrades(in.Trades); err != nil {
			return update, apperror.Validation(err)
		}
		update.Trades = in.Trades
	}

	return update, nil
}

// SetAvailability меняет доступность. Доступно только профессионалам.
func (s *ProfileService) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsProfessional() {
		return nil, apperror.ErrProfessionalsOnly
	}

	if err := s.repo.SetAvailability(ctx, userID, available); err != nil {
		return nil, err
	}
	user.Professional.Available = available
	s.invalidateProfessionals(ctx)
	return user, nil
}

// UpdateSettings дописывает ключи patch к настройкам пользователя.
func (s *ProfileService) UpdateSettings(ctx context.Context, userID uuid.UUID, patch map[string]interface{}) (map[string]interface{}, error) {
	if len(patch) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "no se enviaron ajustes")
	}
	return s.repo.UpdateSettings(ctx, userID, patch)
}

// UploadPhoto сохраняет новое фото и удаляет предыдущее.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.photos.Save(ctx, userID, r)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyFile), errors.Is(err, storage.ErrNotAnImage), errors.Is(err, storage.ErrFileTooLarge):
			return "", apperror.Validation(err)
		default:
			return "", apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo guardar la foto")
		}
	}

	if err := s.repo.UpdatePhoto(ctx, userID, url); err != nil {
		_ = s.photos.Delete(ctx, url)
		return "", err
	}

	if user.PhotoURL != "" {
		if err := s.photos.Delete(ctx, user.PhotoURL); err != nil {
			logger.Component("profile").WithFields(logrus.Fields{
				"user_id": userID,
				"photo":   user.PhotoURL,
			}).WithError(err).Warn("не удалось удалить старое фото")
		}
	}

	if user.IsProfessional() {
		s.invalidateProfessionals(ctx)
	}
	return url, nil
}

// DeleteAccount удаляет пользователя вместе с его связями и отзывами.
// Для клиента удаление и пересчёт затронутых рейтингов идут одной транзакцией.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsClient() {
		reviewed, err := s.repo.DeleteClient(ctx, userID)
		if err != nil {
			return err
		}
		logger.Component("profile").WithFields(logrus.Fields{
			"user_id":      userID,
			"recalculated": len(reviewed),
		}).Info("аккаунт клиента удалён")
	} else if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	if user.PhotoURL != "" {
		_ = s.photos.Delete(ctx, user.PhotoURL)
	}
	s.invalidateProfessionals(ctx)
	return nil
}

func (s *ProfileService) invalidateProfessionals(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, cache.PrefixProfessionals); err != nil {
		logger.Component("profile").WithError(err).Warn("не удалось сбросить кэш профессионалов")
	}
}
