package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

var rowColumns = []string{
	"id", "client_id", "professional_id", "connection_number", "payment_required", "payment_completed",
	"commission_amount", "commission_currency", "payment_info", "status", "description",
	"work_started_at", "work_finished_at", "location", "budget", "urgent", "messages",
	"rating_pending", "created_at", "updated_at",
}

var participantRowColumns = append(append([]string{}, rowColumns...),
	"client_name", "client_email", "client_phone", "client_zone",
	"professional_name", "professional_email", "professional_phone",
	"professional_zone", "professional_photo_url", "professional_trades",
)

func newTestRepo(t *testing.T) (*ConnectionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewConnectionRepository(sqlx.NewDb(db, "postgres"))
	repo.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return repo, mock
}

func newEntity(t *testing.T) *entity.Connection {
	t.Helper()
	commission, err := valueobject.NewMoney(decimal.NewFromInt(1500), "ARS")
	require.NoError(t, err)
	conn, err := entity.NewConnection(uuid.New(), uuid.New(), "Cambiar el cuerito de la canilla", commission, entity.ConnectionDetails{})
	require.NoError(t, err)
	return conn
}

func rowValues(conn *entity.Connection, status, messages string) []driver.Value {
	now := time.Now()
	return []driver.Value{
		conn.ID.String(), conn.ClientID.String(), conn.ProfessionalID.String(), 3, true, false,
		"1500.00", "ARS", nil, status, conn.Description,
		nil, nil, nil, nil, false, messages,
		false, now, now,
	}
}

var countQuery = regexp.QuoteMeta(`SELECT COUNT(*) FROM connections WHERE client_id = $1 AND professional_id = $2`)

func TestCreate_AssignsNextNumber(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)

	mock.ExpectBegin()
	mock.ExpectQuery(countQuery).
		WithArgs(conn.ClientID, conn.ProfessionalID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO connections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), conn))

	assert.Equal(t, 3, conn.Number)
	assert.True(t, conn.PaymentRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RetriesOnNumberConflict(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)
	conflict := &pq.Error{Code: "23505", Constraint: connectionPairNumberConstraint}

	mock.ExpectBegin()
	mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO connections").WillReturnError(conflict)
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO connections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), conn))

	assert.Equal(t, 2, conn.Number)
	assert.False(t, conn.PaymentRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_GivesUpAfterRetries(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)
	conflict := &pq.Error{Code: "23505", Constraint: connectionPairNumberConstraint}

	for i := 0; i <= maxNumberRetries; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("INSERT INTO connections").WillReturnError(conflict)
		mock.ExpectRollback()
	}

	err := repo.Create(context.Background(), conn)

	assert.True(t, apperror.IsConflict(err))
	assert.ErrorIs(t, err, apperror.ErrConnectionNumberRace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_OtherErrorsAreNotRetried(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)

	mock.ExpectBegin()
	mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO connections").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), conn)

	assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()

	mock.ExpectQuery("FROM connections c").WithArgs(id).WillReturnRows(sqlmock.NewRows(participantRowColumns))

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrConnectionNotFound)
}

func TestFindByID_MapsParticipants(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)

	values := append(rowValues(conn, "accepted", `[{"sender_id":"`+conn.ClientID.String()+`","text":"hola","sent_at":"2024-05-01T10:00:00Z","read":false}]`),
		"Ana", "ana@example.com", "+5493511234567", "Córdoba Capital",
		"Luis", "luis@example.com", "+5493517654321", "Villa Allende", "/media/luis.jpg", "{plomero,gasista}",
	)
	mock.ExpectQuery("FROM connections c").
		WithArgs(conn.ID).
		WillReturnRows(sqlmock.NewRows(participantRowColumns).AddRow(values...))

	got, err := repo.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ConnectionStatusAccepted, got.Status)
	assert.Equal(t, 3, got.Number)
	assert.True(t, got.Commission.Amount.Equal(decimal.NewFromInt(1500)))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, conn.ClientID, got.Messages[0].SenderID)
	assert.Equal(t, "Ana", got.Client.Name)
	assert.Equal(t, []string{"plomero", "gasista"}, got.Professional.Trades)
	assert.Nil(t, got.Location)
	assert.Nil(t, got.PaymentInfo)
}

func TestUpdate_LocksRowAndSaves(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 FOR UPDATE")).
		WithArgs(conn.ID).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(rowValues(conn, "pending", "[]")...))
	mock.ExpectExec("UPDATE connections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.Update(context.Background(), conn.ID, func(c *entity.Connection) error {
		_, err := c.AppendMessage(c.ProfessionalID, "Paso mañana a las 9", time.Now())
		return err
	})

	require.NoError(t, err)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, conn.ProfessionalID, updated.Messages[0].SenderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_CallbackErrorRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)
	conn := newEntity(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(rowValues(conn, "completed", "[]")...))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), conn.ID, func(c *entity.Connection) error {
		return c.ChangeStatus(c.ClientID, valueobject.ConnectionStatusCancelled, nil, nil, time.Now())
	})

	assert.True(t, apperror.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(rowColumns))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), id, func(c *entity.Connection) error { return nil })
	assert.ErrorIs(t, err, apperror.ErrConnectionNotFound)
}

func TestList_FiltersBySideAndStatus(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.New()
	status := valueobject.ConnectionStatusCompleted

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM connections c WHERE c.professional_id = $1 AND c.status = $2")).
		WithArgs(userID, "completed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs(userID, "completed", 10, 0).
		WillReturnRows(sqlmock.NewRows(participantRowColumns))

	items, total, err := repo.List(context.Background(), repository.ConnectionFilter{
		UserID: userID,
		Role:   valueobject.RoleProfessional,
		Status: &status,
		Limit:  10,
	})

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_FillsEveryStatus(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.New()
	since := time.Now().AddDate(0, -6, 0)

	mock.ExpectQuery("GROUP BY status").
		WithArgs(userID, since).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "paid", "recent"}).
			AddRow("completed", 4, 1, 2).
			AddRow("pending", 1, 0, 1))

	stats, err := repo.Stats(context.Background(), userID, valueobject.RoleClient, since)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.PaymentsCompleted)
	assert.Equal(t, 3, stats.RecentActivity)
	assert.Equal(t, 4, stats.ByStatus[valueobject.ConnectionStatusCompleted])
	assert.Equal(t, 0, stats.ByStatus[valueobject.ConnectionStatusCancelled])
	assert.Len(t, stats.ByStatus, len(valueobject.AllConnectionStatuses))
}
