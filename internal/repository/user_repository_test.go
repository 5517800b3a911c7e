package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

var userRowColumns = []string{
	"id", "email", "password_hash", "role", "name", "phone", "photo_url", "description", "zone",
	"trades", "available", "verified", "rating_average", "rating_total", "rating_distribution",
	"email_verified", "profile_complete", "active", "settings", "last_login_at", "created_at", "updated_at",
}

func professionalRow(id uuid.UUID, name string, avg float64, total int) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id.String(), "luis@example.com", "hash", "professional", name, "3511234567", "", "Plomería general", "Alta Gracia",
		"{Plomero,Gasista}", true, true, avg, total, `{"1":0,"2":0,"3":0,"4":1,"5":4}`,
		true, true, true, `{"notificaciones":true}`, nil, now, now,
	}
}

func TestUserCreate_EmailTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	user := models.NewUser("ana@example.com", "hash", valueobject.RoleClient, "Ana")

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: usersEmailConstraint})

	err := repo.Create(context.Background(), user)
	assert.ErrorIs(t, err, apperror.ErrEmailTaken)
}

func TestUserCreate_ReturnsGeneratedFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	user := models.NewUser("luis@example.com", "hash", valueobject.RoleProfessional, "Luis")
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("luis@example.com", "hash", "professional", "Luis", "", "", "",
			sqlmock.AnyArg(), true, `{"1":0,"2":0,"3":0,"4":0,"5":0}`, false, true, `{}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id.String(), now, now))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, id, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID_MapsProfessionalVariant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(professionalRow(id, "Luis", 4.8, 5)...))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	require.True(t, user.IsProfessional())
	assert.Equal(t, []string{"Plomero", "Gasista"}, user.Professional.Trades)
	assert.Equal(t, 4.8, user.Professional.Rating.Average)
	assert.Equal(t, 4, user.Professional.Rating.Distribution[5])
	assert.Equal(t, true, user.Settings["notificaciones"])
}

func TestUserGetByID_ClientHasNoProfessionalProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()
	values := professionalRow(id, "Ana", 0, 0)
	values[3] = "client"

	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(values...))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, user.IsClient())
	assert.Nil(t, user.Professional)
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.GetByEmail(context.Background(), "nadie@example.com")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestUserSetAvailability_OnlyProfessionals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND role = 'professional'`)).
		WithArgs(id, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetAvailability(context.Background(), id, false)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestUserUpdateSettings_MergesInDatabase(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`settings = settings || $2::jsonb`)).
		WithArgs(id, `{"tema":"oscuro"}`).
		WillReturnRows(sqlmock.NewRows([]string{"settings"}).AddRow(`{"notificaciones":true,"tema":"oscuro"}`))

	settings, err := repo.UpdateSettings(context.Background(), id, map[string]interface{}{"tema": "oscuro"})
	require.NoError(t, err)
	assert.Equal(t, "oscuro", settings["tema"])
	assert.Equal(t, true, settings["notificaciones"])
}

func TestUserSearchProfessionals_BuildsFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	minRating := 4.0
	available := true
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM users WHERE role = 'professional' AND profile_complete AND active AND (name ILIKE $1 OR description ILIKE $1 OR array_to_string(trades, ' ') ILIKE $1) AND zone = $2 AND $3 = ANY(trades) AND rating_average >= $4 AND available = $5`)).
		WithArgs("%plom%", "Alta Gracia", "Plomero", 4.0, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY rating_total DESC, rating_average DESC, created_at DESC LIMIT $6 OFFSET $7`)).
		WithArgs("%plom%", "Alta Gracia", "Plomero", 4.0, true, 20, 20).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(professionalRow(id, "Luis", 4.8, 5)...))

	items, total, err := repo.SearchProfessionals(context.Background(), models.ProfessionalSearch{
		Search:    " plom ",
		Zone:      "Alta Gracia",
		Trade:     "Plomero",
		MinRating: &minRating,
		Available: &available,
		SortBy:    models.SortByReviews,
		Page:      2,
		Limit:     20,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, 5, items[0].Rating.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFeatured(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`AND verified AND available`)).
		WithArgs(4.0, 5, 8).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	items, err := repo.Featured(context.Background(), 4.0, 5, 8)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUserProfessionalStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT zone, trades, verified, available, rating_average`)).
		WillReturnRows(sqlmock.NewRows([]string{"zone", "trades", "verified", "available", "rating_average"}).
			AddRow("Alta Gracia", "{Plomero,Gasista}", true, true, 4.5).
			AddRow("Alta Gracia", "{Plomero}", false, true, 4.0).
			AddRow("", "{}", false, false, 0.0))

	stats, err := repo.ProfessionalStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Verified)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 2, stats.WithRatings)
	assert.Equal(t, 4.3, stats.AverageRating)
	assert.Equal(t, map[string]int{"Alta Gracia": 2}, stats.ByZone)
	assert.Equal(t, map[string]int{"Plomero": 2, "Gasista": 1}, stats.ByTrade)
}

func TestUserIsAvailableProfessional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND available AND role = 'professional' AND profile_complete AND active`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsAvailableProfessional(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
}

var lockClient = regexp.QuoteMeta(`SELECT id FROM users WHERE id = $1 AND role = 'client' FOR UPDATE`)

func TestUserDeleteClient_RecomputesReviewedProfessionals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	clientID := uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockClient).WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(clientID.String()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT professional_id FROM reviews`)).WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"professional_id"}).AddRow(first.String()).AddRow(second.String()))
	mock.ExpectQuery(lockQuery).WithArgs(first).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(first.String()))
	mock.ExpectQuery(lockQuery).WithArgs(second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(second.String()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).WithArgs(clientID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(groupedScores).WithArgs(first).
		WillReturnRows(sqlmock.NewRows([]string{"score", "count"}).AddRow(5, 1))
	mock.ExpectExec(saveRating).
		WithArgs(first, 5.0, 1, `{"1":0,"2":0,"3":0,"4":0,"5":1}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(groupedScores).WithArgs(second).
		WillReturnRows(sqlmock.NewRows([]string{"score", "count"}))
	mock.ExpectExec(saveRating).
		WithArgs(second, 0.0, 0, `{"1":0,"2":0,"3":0,"4":0,"5":0}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reviewed, err := repo.DeleteClient(context.Background(), clientID)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{first, second}, reviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteClient_RecomputeFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	clientID, professionalID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockClient).WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(clientID.String()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT professional_id FROM reviews`)).WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"professional_id"}).AddRow(professionalID.String()))
	mock.ExpectQuery(lockQuery).WithArgs(professionalID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(professionalID.String()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).WithArgs(clientID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(groupedScores).WithArgs(professionalID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.DeleteClient(context.Background(), clientID)
	assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteClient_NotAClient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockClient).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.DeleteClient(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
