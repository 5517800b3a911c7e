package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/conectacordoba/marketplace-backend/internal/cache"
	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

const (
	DefaultReviewPageLimit = 10
	MaxReviewPageLimit     = 50

	DefaultRecentLimit  = 6
	MaxRecentLimit      = 20
	RecentMinScore      = 4
	RecentCommentLength = 150
	recentTradesShown   = 2

	MaxAspects = 10

	AnonymousClientName = "Cliente anónimo"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) (models.RatingSummary, error)
	Update(ctx context.Context, review *models.Review, scoreChanged bool) error
	Delete(ctx context.Context, review *models.Review) error
	Recompute(ctx context.Context, professionalID uuid.UUID) (models.RatingSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ExistsForConnection(ctx context.Context, connectionID uuid.UUID) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Review, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]models.Review, int, error)
	Recent(ctx context.Context, minScore, limit int) ([]models.Review, error)
	Stats(ctx context.Context, monthStart time.Time) (*models.ReviewStats, error)
}

// ReviewConnections - доступ к связям, по которым клиент оставляет отзывы.
type ReviewConnections interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error)
	ListAwaitingReview(ctx context.Context, clientID uuid.UUID) ([]*entity.Connection, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type CreateReviewInput struct {
	ConnectionID       uuid.UUID
	ClientID           uuid.UUID
	Role               valueobject.Role
	Score              int
	Comment            string
	Recommend          *bool
	WorkCompleted      *bool
	PositiveAspects    []string
	ImprovementAspects []string
}

type UpdateReviewInput struct {
	Score              *int
	Comment            *string
	Recommend          *bool
	WorkCompleted      *bool
	PositiveAspects    []string
	ImprovementAspects []string
}

type ReviewPage struct {
	Reviews []models.Review `json:"reviews"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// ReceivedReviews - отзывы профессионала вместе с его текущим рейтингом.
type ReceivedReviews struct {
	ReviewPage
	Summary models.RatingSummary `json:"summary"`
}

// CreatedReview - созданный отзыв и пересчитанный рейтинг профессионала.
type CreatedReview struct {
	Review  *models.Review       `json:"review"`
	Summary models.RatingSummary `json:"summary"`
}

type ReviewService struct {
	repo        ReviewRepository
	connections ReviewConnections
	users       UserReader
	cache       cache.Cache
	now         func() time.Time
}

func NewReviewService(repo ReviewRepository, connections ReviewConnections, users UserReader, c cache.Cache) *ReviewService {
	return &ReviewService{
		repo:        repo,
		connections: connections,
		users:       users,
		cache:       c,
		now:         time.Now,
	}
}

// Create оставляет отзыв по завершённой связи клиента.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (*CreatedReview, error) {
	if in.Role != valueobject.RoleClient {
		return nil, apperror.ErrClientsOnly
	}

	comment, err := validateReviewFields(&in.Score, &in.Comment, in.PositiveAspects, in.ImprovementAspects)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindByID(ctx, in.ConnectionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrReviewNotAllowed
		}
		return nil, err
	}
	if conn.ClientID != in.ClientID || conn.Status != valueobject.ConnectionStatusCompleted {
		return nil, apperror.ErrReviewNotAllowed
	}

	exists, err := s.repo.ExistsForConnection(ctx, conn.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrReviewExists
	}
	if !conn.RatingPending {
		return nil, apperror.ErrReviewNotAllowed
	}

	review := &models.Review{
		ConnectionID:       conn.ID,
		ClientID:           in.ClientID,
		ProfessionalID:     conn.ProfessionalID,
		Score:              in.Score,
		Comment:            comment,
		Recommend:          in.Recommend,
		WorkCompleted:      true,
		PositiveAspects:    in.PositiveAspects,
		ImprovementAspects: in.ImprovementAspects,
	}
	if in.WorkCompleted != nil {
		review.WorkCompleted = *in.WorkCompleted
	}

	summary, err := s.repo.Create(ctx, review)
	if err != nil {
		return nil, err
	}

	logger.Component("reviews").WithFields(logrus.Fields{
		"review_id":       review.ID,
		"connection_id":   conn.ID,
		"professional_id": conn.ProfessionalID,
		"score":           review.Score,
	}).Info("отзыв создан")

	s.invalidateProfessionals(ctx)
	return &CreatedReview{Review: review, Summary: summary}, nil
}

// validateReviewFields проверяет переданные поля и возвращает обрезанный комментарий.
func validateReviewFields(score *int, comment *string, positive, improvement []string) (string, error) {
	if score != nil && (*score < models.MinScore || *score > models.MaxScore) {
		return "", apperror.New(apperror.ErrCodeValidation, "la puntuación debe estar entre 1 y 5")
	}

	var trimmed string
	if comment != nil {
		trimmed = strings.TrimSpace(*comment)
		n := utf8.RuneCountInString(trimmed)
		if n < models.MinCommentLength || n > models.MaxCommentLength {
			return "", apperror.New(apperror.ErrCodeValidation, "el comentario debe tener entre 10 y 500 caracteres")
		}
	}

	if len(positive) > MaxAspects || len(improvement) > MaxAspects {
		return "", apperror.New(apperror.ErrCodeValidation, "demasiados aspectos")
	}
	return trimmed, nil
}

// Mine - отзывы, оставленные клиентом.
func (s *ReviewService) Mine(ctx context.Context, clientID uuid.UUID, role valueobject.Role, page, limit int) (*ReviewPage, error) {
	if role != valueobject.RoleClient {
		return nil, apperror.ErrClientsOnly
	}
	page, limit = normalizePage(page, limit, DefaultReviewPageLimit, MaxReviewPageLimit)

	reviews, total, err := s.repo.ListByClient(ctx, clientID, limit, offset(page, limit))
	if err != nil {
		return nil, err
	}
	return &ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit}, nil
}

// Received - отзывы о профессионале и его рейтинг.
func (s *ReviewService) Received(ctx context.Context, professionalID uuid.UUID, role valueobject.Role, page, limit int) (*ReceivedReviews, error) {
	if role != valueobject.RoleProfessional {
		return nil, apperror.ErrProfessionalsOnly
	}
	page, limit = normalizePage(page, limit, DefaultReviewPageLimit, MaxReviewPageLimit)

	user, err := s.users.GetByID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !user.IsProfessional() {
		return nil, apperror.ErrProfessionalsOnly
	}

	reviews, total, err := s.repo.ListByProfessional(ctx, professionalID, limit, offset(page, limit))
	if err != nil {
		return nil, err
	}
	return &ReceivedReviews{
		ReviewPage: ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit},
		Summary:    user.Professional.Rating,
	}, nil
}

// Pending - завершённые связи клиента, которые ещё ждут оценки.
func (s *ReviewService) Pending(ctx context.Context, clientID uuid.UUID, role valueobject.Role) ([]models.AwaitingReview, error) {
	if role != valueobject.RoleClient {
		return nil, apperror.ErrClientsOnly
	}

	conns, err := s.connections.ListAwaitingReview(ctx, clientID)
	if err != nil {
		return nil, err
	}

	pending := make([]models.AwaitingReview, 0, len(conns))
	for _, c := range conns {
		item := models.AwaitingReview{
			ConnectionID:       c.ID,
			ProfessionalID:     c.ProfessionalID,
			ProfessionalTrades: []string{},
			Description:        c.Description,
			WorkFinishedAt:     c.WorkFinishedAt,
		}
		if c.Professional != nil {
			item.ProfessionalName = c.Professional.Name
			if c.Professional.Trades != nil {
				item.ProfessionalTrades = c.Professional.Trades
			}
		}
		pending = append(pending, item)
	}
	return pending, nil
}

// Update меняет отзыв автора в течение EditWindowDays суток.
func (s *ReviewService) Update(ctx context.Context, reviewID, clientID uuid.UUID, in UpdateReviewInput) (*models.Review, error) {
	review, err := s.ownReview(ctx, reviewID, clientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !review.CanEdit(now) {
		return nil, apperror.ErrEditWindowExpired
	}

	comment, err := validateReviewFields(in.Score, in.Comment, in.PositiveAspects, in.ImprovementAspects)
	if err != nil {
		return nil, err
	}
	update := models.ReviewUpdate{
		Score:              in.Score,
		Recommend:          in.Recommend,
		WorkCompleted:      in.WorkCompleted,
		PositiveAspects:    in.PositiveAspects,
		ImprovementAspects: in.ImprovementAspects,
	}
	if in.Comment != nil {
		update.Comment = &comment
	}

	scoreChanged := review.Apply(update, now)
	if err := s.repo.Update(ctx, review, scoreChanged); err != nil {
		return nil, err
	}

	if scoreChanged {
		s.invalidateProfessionals(ctx)
	}
	return review, nil
}

// Delete удаляет отзыв автора в течение DeleteWindowDays суток и пересчитывает рейтинг.
func (s *ReviewService) Delete(ctx context.Context, reviewID, clientID uuid.UUID) error {
	review, err := s.ownReview(ctx, reviewID, clientID)
	if err != nil {
		return err
	}
	if !review.CanDelete(s.now()) {
		return apperror.ErrDeleteWindowExpired
	}

	if err := s.repo.Delete(ctx, review); err != nil {
		return err
	}

	logger.Component("reviews").WithFields(logrus.Fields{
		"review_id":       review.ID,
		"professional_id": review.ProfessionalID,
	}).Info("отзыв удалён")

	s.invalidateProfessionals(ctx)
	return nil
}

// ownReview скрывает чужие отзывы за ErrReviewNotFound.
func (s *ReviewService) ownReview(ctx context.Context, reviewID, clientID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ClientID != clientID {
		return nil, apperror.ErrReviewNotFound
	}
	return review, nil
}

// Recent - последние хорошие отзывы для главной страницы.
func (s *ReviewService) Recent(ctx context.Context, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	reviews, err := s.repo.Recent(ctx, RecentMinScore, limit)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		r := &reviews[i]
		r.Comment = truncateRunes(r.Comment, RecentCommentLength)
		if len(r.ProfessionalTrades) > recentTradesShown {
			r.ProfessionalTrades = r.ProfessionalTrades[:recentTradesShown]
		}
		if r.ClientName == "" {
			r.ClientName = AnonymousClientName
		}
	}
	return reviews, nil
}

// Stats - публичная статистика отзывов, месяц считается с первого числа.
func (s *ReviewService) Stats(ctx context.Context) (*models.ReviewStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.repo.Stats(ctx, monthStart)
}

// Recompute пересчитывает рейтинг профессионала по его проверенным отзывам.
func (s *ReviewService) Recompute(ctx context.Context, professionalID uuid.UUID) (models.RatingSummary, error) {
	summary, err := s.repo.Recompute(ctx, professionalID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	s.invalidateProfessionals(ctx)
	return summary, nil
}

func (s *ReviewService) invalidateProfessionals(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, cache.PrefixProfessionals); err != nil {
		logger.Component("reviews").WithError(err).Warn("не удалось сбросить кэш профессионалов")
	}
}

// truncateRunes обрезает s до max символов и добавляет многоточие.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}
