package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/cache"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50

	FeaturedMinAverage = 4.0
	FeaturedMinReviews = 5
	FeaturedLimit      = 8
	featuredDescLength = 100

	ProfileReviewsShown = 10
)

type ProfessionalRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SearchProfessionals(ctx context.Context, filter models.ProfessionalSearch) ([]models.ProfessionalSummary, int, error)
	Featured(ctx context.Context, minAverage float64, minTotal, limit int) ([]models.ProfessionalSummary, error)
	ProfessionalStats(ctx context.Context) (*models.ProfessionalStats, error)
}

type ProfessionalReviews interface {
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]models.Review, int, error)
}

type SearchResult struct {
	Professionals []models.ProfessionalSummary `json:"professionals"`
	Total         int                          `json:"total"`
	Page          int                          `json:"page"`
	Limit         int                          `json:"limit"`
	TotalPages    int                          `json:"total_pages"`
}

// ProfessionalDetail - публичный профиль профессионала с последними отзывами.
type ProfessionalDetail struct {
	models.ProfessionalSummary
	Phone   string          `json:"phone"`
	Reviews []models.Review `json:"reviews"`
}

type ProfessionalService struct {
	repo     ProfessionalRepository
	reviews  ProfessionalReviews
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewProfessionalService(repo ProfessionalRepository, reviews ProfessionalReviews, c cache.Cache, cacheTTL time.Duration) *ProfessionalService {
	return &ProfessionalService{repo: repo, reviews: reviews, cache: c, cacheTTL: cacheTTL}
}

// Search ищет среди активных профессионалов с заполненным профилем.
func (s *ProfessionalService) Search(ctx context.Context, filter models.ProfessionalSearch) (*SearchResult, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit, DefaultSearchLimit, MaxSearchLimit)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.SortBy == "" {
		filter.SortBy = models.SortByRating
	}

	items, total, err := s.repo.SearchProfessionals(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Professionals: items,
		Total:         total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *ProfessionalService) Get(ctx context.Context, id uuid.UUID) (*ProfessionalDetail, error) {
	user, err := s.professional(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, _, err := s.reviews.ListByProfessional(ctx, id, ProfileReviewsShown, 0)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].ClientName == "" {
			reviews[i].ClientName = AnonymousClientName
		}
	}

	return &ProfessionalDetail{
		ProfessionalSummary: user.Summary(),
		Phone:               user.Phone,
		Reviews:             reviews,
	}, nil
}

// Reviews - страница отзывов о профессионале вместе с его рейтингом.
func (s *ProfessionalService) Reviews(ctx context.Context, id uuid.UUID, page, limit int) (*ReceivedReviews, error) {
	user, err := s.professional(ctx, id)
	if err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit, DefaultReviewPageLimit, MaxReviewPageLimit)

	reviews, total, err := s.reviews.ListByProfessional(ctx, id, limit, offset(page, limit))
	if err != nil {
		return nil, err
	}
	return &ReceivedReviews{
		ReviewPage: ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit},
		Summary:    user.Professional.Rating,
	}, nil
}

func (s *ProfessionalService) professional(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrProfessionalNotFound
		}
		return nil, err
	}
	if !user.IsProfessional() || !user.Active {
		return nil, apperror.ErrProfessionalNotFound
	}
	return user, nil
}

// Featured - подборка для главной: проверенные, доступные, с высоким рейтингом.
func (s *ProfessionalService) Featured(ctx context.Context) ([]models.ProfessionalSummary, error) {
	load := func() ([]models.ProfessionalSummary, error) {
		items, err := s.repo.Featured(ctx, FeaturedMinAverage, FeaturedMinReviews, FeaturedLimit)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].Description = truncateRunes(items[i].Description, featuredDescLength)
		}
		return items, nil
	}
	if s.cache == nil {
		return load()
	}
	return cache.GetOrSet(ctx, s.cache, cache.KeyFeaturedProfessionals, s.cacheTTL, load)
}

func (s *ProfessionalService) Stats(ctx context.Context) (*models.ProfessionalStats, error) {
	if s.cache == nil {
		return s.repo.ProfessionalStats(ctx)
	}
	return cache.GetOrSet(ctx, s.cache, cache.KeyProfessionalStats, s.cacheTTL, func() (*models.ProfessionalStats, error) {
		return s.repo.ProfessionalStats(ctx)
	})
}
