package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/conectacordoba/marketplace-backend/internal/cache"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

type mockProfessionalRepo struct {
	mock.Mock
}

func (m *mockProfessionalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProfessionalRepo) SearchProfessionals(ctx context.Context, filter models.ProfessionalSearch) ([]models.ProfessionalSummary, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.ProfessionalSummary), args.Int(1), args.Error(2)
}

func (m *mockProfessionalRepo) Featured(ctx context.Context, minAverage float64, minTotal, limit int) ([]models.ProfessionalSummary, error) {
	args := m.Called(ctx, minAverage, minTotal, limit)
	return args.Get(0).([]models.ProfessionalSummary), args.Error(1)
}

func (m *mockProfessionalRepo) ProfessionalStats(ctx context.Context) (*models.ProfessionalStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProfessionalStats), args.Error(1)
}

func newProfessionalFixture(t *testing.T, c cache.Cache) (*ProfessionalService, *mockProfessionalRepo, *mockReviewRepo) {
	t.Helper()
	repo := new(mockProfessionalRepo)
	reviews := new(mockReviewRepo)
	return NewProfessionalService(repo, reviews, c, time.Minute), repo, reviews
}

func TestProfessionalSearch_AppliesDefaults(t *testing.T) {
	svc, repo, _ := newProfessionalFixture(t, nil)

	repo.On("SearchProfessionals", mock.Anything, models.ProfessionalSearch{
		Search: "plomero",
		SortBy: models.SortByRating,
		Page:   1,
		Limit:  DefaultSearchLimit,
	}).Return([]models.ProfessionalSummary{{Name: "Luis"}}, 41, nil)

	result, err := svc.Search(context.Background(), models.ProfessionalSearch{Search: "  plomero "})

	require.NoError(t, err)
	assert.Equal(t, 41, result.Total)
	assert.Equal(t, 3, result.TotalPages)
	repo.AssertExpectations(t)
}

func TestProfessionalSearch_ClampsLimit(t *testing.T) {
	svc, repo, _ := newProfessionalFixture(t, nil)

	repo.On("SearchProfessionals", mock.Anything, mock.MatchedBy(func(f models.ProfessionalSearch) bool {
		return f.Limit == MaxSearchLimit && f.Page == 2 && f.SortBy == models.SortByAlphabetical
	})).Return([]models.ProfessionalSummary{}, 0, nil)

	result, err := svc.Search(context.Background(), models.ProfessionalSearch{Page: 2, Limit: 500, SortBy: models.SortByAlphabetical})

	require.NoError(t, err)
	assert.Zero(t, result.TotalPages)
}

func TestProfessionalGet(t *testing.T) {
	svc, repo, reviews := newProfessionalFixture(t, nil)
	pro := models.NewUser("luis@example.com", "hash", valueobject.RoleProfessional, "Luis")
	pro.ID = uuid.New()
	pro.Phone = "+5493511234567"
	pro.Professional.Trades = []string{"plomero"}

	repo.On("GetByID", mock.Anything, pro.ID).Return(pro, nil)
	reviews.On("ListByProfessional", mock.Anything, pro.ID, ProfileReviewsShown, 0).Return([]models.Review{
		{Score: 5, ClientName: "Ana"},
		{Score: 4},
	}, 2, nil)

	detail, err := svc.Get(context.Background(), pro.ID)

	require.NoError(t, err)
	assert.Equal(t, "Luis", detail.Name)
	assert.Equal(t, "+5493511234567", detail.Phone)
	assert.Equal(t, []string{"plomero"}, detail.Trades)
	require.Len(t, detail.Reviews, 2)
	assert.Equal(t, AnonymousClientName, detail.Reviews[1].ClientName)
}

func TestProfessionalGet_HidesClientsAndInactive(t *testing.T) {
	svc, repo, _ := newProfessionalFixture(t, nil)
	client := models.NewUser("ana@example.com", "hash", valueobject.RoleClient, "Ana")
	client.ID = uuid.New()
	inactive := models.NewUser("luis@example.com", "hash", valueobject.RoleProfessional, "Luis")
	inactive.ID = uuid.New()
	inactive.Active = false
	missing := uuid.New()

	repo.On("GetByID", mock.Anything, client.ID).Return(client, nil)
	repo.On("GetByID", mock.Anything, inactive.ID).Return(inactive, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, apperror.ErrUserNotFound)

	for _, id := range []uuid.UUID{client.ID, inactive.ID, missing} {
		_, err := svc.Get(context.Background(), id)
		assert.ErrorIs(t, err, apperror.ErrProfessionalNotFound)
	}
}

func TestProfessionalFeatured_CachedAndTruncated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, repo, _ := newProfessionalFixture(t, cache.NewMemoryCache(ctx, time.Minute))

	repo.On("Featured", mock.Anything, FeaturedMinAverage, FeaturedMinReviews, FeaturedLimit).
		Return([]models.ProfessionalSummary{{Name: "Luis", Description: strings.Repeat("x", 120)}}, nil).
		Once()

	first, err := svc.Featured(ctx)
	require.NoError(t, err)
	second, err := svc.Featured(ctx)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, strings.Repeat("x", featuredDescLength)+"...", second[0].Description)
	repo.AssertNumberOfCalls(t, "Featured", 1)
}

func TestProfessionalStats_Cached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, repo, _ := newProfessionalFixture(t, cache.NewMemoryCache(ctx, time.Minute))

	repo.On("ProfessionalStats", mock.Anything).Return(&models.ProfessionalStats{Total: 7, AverageRating: 4.2}, nil).Once()

	for i := 0; i < 3; i++ {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, stats.Total)
	}
	repo.AssertNumberOfCalls(t, "ProfessionalStats", 1)
}
