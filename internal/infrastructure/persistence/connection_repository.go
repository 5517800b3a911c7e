package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/metrics"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/repository/common"
)

const (
	connectionPairNumberConstraint = "connections_pair_number_key"
	maxNumberRetries               = 5
)

const connectionColumns = `
	c.id, c.client_id, c.professional_id, c.connection_number, c.payment_required, c.payment_completed,
	c.commission_amount, c.commission_currency, c.payment_info, c.status, c.description,
	c.work_started_at, c.work_finished_at, c.location, c.budget, c.urgent, c.messages,
	c.rating_pending, c.created_at, c.updated_at`

const participantColumns = `
	cu.name AS client_name, cu.email AS client_email, cu.phone AS client_phone, cu.zone AS client_zone,
	pu.name AS professional_name, pu.email AS professional_email, pu.phone AS professional_phone,
	pu.zone AS professional_zone, pu.photo_url AS professional_photo_url, pu.trades AS professional_trades`

const participantJoins = `
	JOIN users cu ON cu.id = c.client_id
	JOIN users pu ON pu.id = c.professional_id`

type connectionRow struct {
	ID                 uuid.UUID       `db:"id"`
	ClientID           uuid.UUID       `db:"client_id"`
	ProfessionalID     uuid.UUID       `db:"professional_id"`
	Number             int             `db:"connection_number"`
	PaymentRequired    bool            `db:"payment_required"`
	PaymentCompleted   bool            `db:"payment_completed"`
	CommissionAmount   decimal.Decimal `db:"commission_amount"`
	CommissionCurrency string          `db:"commission_currency"`
	PaymentInfo        []byte          `db:"payment_info"`
	Status             string          `db:"status"`
	Description        string          `db:"description"`
	WorkStartedAt      *time.Time      `db:"work_started_at"`
	WorkFinishedAt     *time.Time      `db:"work_finished_at"`
	Location           []byte          `db:"location"`
	Budget             []byte          `db:"budget"`
	Urgent             bool            `db:"urgent"`
	Messages           []byte          `db:"messages"`
	RatingPending      bool            `db:"rating_pending"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type connectionWithParticipantsRow struct {
	connectionRow
	ClientName           string         `db:"client_name"`
	ClientEmail          string         `db:"client_email"`
	ClientPhone          string         `db:"client_phone"`
	ClientZone           string         `db:"client_zone"`
	ProfessionalName     string         `db:"professional_name"`
	ProfessionalEmail    string         `db:"professional_email"`
	ProfessionalPhone    string         `db:"professional_phone"`
	ProfessionalZone     string         `db:"professional_zone"`
	ProfessionalPhotoURL string         `db:"professional_photo_url"`
	ProfessionalTrades   pq.StringArray `db:"professional_trades"`
}

// ConnectionRepository хранит связи в PostgreSQL.
type ConnectionRepository struct {
	db *sqlx.DB
	// newBackOff создаёт политику повторов при гонке за номер связи.
	newBackOff func() backoff.BackOff
}

var _ repository.ConnectionRepository = (*ConnectionRepository)(nil)

func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{
		db: db,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 200 * time.Millisecond
			return b
		},
	}
}

// Create считает существующие связи пары и вставляет новую в одной транзакции.
// Конкурентная вставка с тем же номером упирается в connections_pair_number_key,
// проигравший запрос пересчитывает номер и повторяет попытку.
func (r *ConnectionRepository) Create(ctx context.Context, conn *entity.Connection) error {
	operation := func() error {
		err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			var count int
			if err := tx.GetContext(ctx, &count,
				`SELECT COUNT(*) FROM connections WHERE client_id = $1 AND professional_id = $2`,
				conn.ClientID, conn.ProfessionalID,
			); err != nil {
				return err
			}
			conn.AssignNumber(count + 1)
			return r.insert(ctx, tx, conn)
		})
		if err == nil {
			return nil
		}
		if common.IsUniqueViolation(err, connectionPairNumberConstraint) {
			metrics.ConnectionNumberRetries.Inc()
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), maxNumberRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if common.IsUniqueViolation(err, connectionPairNumberConstraint) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrConnectionNumberRace.Message)
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo crear la conexión")
	}
	return nil
}

func (r *ConnectionRepository) insert(ctx context.Context, tx *sqlx.Tx, conn *entity.Connection) error {
	location, err := jsonParam(conn.Location)
	if err != nil {
		return err
	}
	budget, err := jsonParam(conn.Budget)
	if err != nil {
		return err
	}
	messages, err := json.Marshal(conn.Messages)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO connections (
			id, client_id, professional_id, connection_number, payment_required, payment_completed,
			commission_amount, commission_currency, status, description, work_started_at, work_finished_at,
			location, budget, urgent, messages, rating_pending, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = tx.ExecContext(ctx, query,
		conn.ID,
		conn.ClientID,
		conn.ProfessionalID,
		conn.Number,
		conn.PaymentRequired,
		conn.PaymentCompleted,
		conn.Commission.Amount,
		conn.Commission.Currency,
		string(conn.Status),
		conn.Description,
		conn.WorkStartedAt,
		conn.WorkFinishedAt,
		location,
		budget,
		conn.Urgent,
		string(messages),
		conn.RatingPending,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

func (r *ConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error) {
	var row connectionWithParticipantsRow
	query := `SELECT ` + connectionColumns + `,` + participantColumns + `
		FROM connections c` + participantJoins + `
		WHERE c.id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrConnectionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo obtener la conexión")
	}

	return row.toEntity()
}

func (r *ConnectionRepository) List(ctx context.Context, filter repository.ConnectionFilter) ([]*entity.Connection, int, error) {
	column, err := sideColumn(filter.Role)
	if err != nil {
		return nil, 0, err
	}

	where := fmt.Sprintf("c.%s = $1", column)
	args := []interface{}{filter.UserID}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where += " AND c.status = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM connections c WHERE `+where, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron contar las conexiones")
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + connectionColumns + `,` + participantColumns + `
		FROM connections c` + participantJoins + `
		WHERE ` + where + `
		ORDER BY c.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []connectionWithParticipantsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las conexiones")
	}

	result, err := toEntities(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Update сериализует изменения одной связи через SELECT ... FOR UPDATE.
func (r *ConnectionRepository) Update(ctx context.Context, id uuid.UUID, fn func(conn *entity.Connection) error) (*entity.Connection, error) {
	var updated *entity.Connection

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var row connectionRow
		query := `SELECT ` + connectionColumns + ` FROM connections c WHERE c.id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrConnectionNotFound
			}
			return err
		}

		conn, err := row.toEntity()
		if err != nil {
			return err
		}

		if err := fn(conn); err != nil {
			return err
		}

		if err := r.save(ctx, tx, conn); err != nil {
			return err
		}
		updated = conn
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la conexión")
	}

	return updated, nil
}

func (r *ConnectionRepository) save(ctx context.Context, tx *sqlx.Tx, conn *entity.Connection) error {
	paymentInfo, err := jsonParam(conn.PaymentInfo)
	if err != nil {
		return err
	}
	messages, err := json.Marshal(conn.Messages)
	if err != nil {
		return err
	}

	query := `
		UPDATE connections
		SET payment_completed = $2, payment_info = $3, status = $4, work_started_at = $5,
		    work_finished_at = $6, messages = $7, rating_pending = $8, updated_at = $9
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		conn.ID,
		conn.PaymentCompleted,
		paymentInfo,
		string(conn.Status),
		conn.WorkStartedAt,
		conn.WorkFinishedAt,
		string(messages),
		conn.RatingPending,
		conn.UpdatedAt,
	)
	return err
}

// ListAwaitingReview возвращает завершённые связи клиента, по которым ещё нет отзыва.
func (r *ConnectionRepository) ListAwaitingReview(ctx context.Context, clientID uuid.UUID) ([]*entity.Connection, error) {
	query := `SELECT ` + connectionColumns + `,` + participantColumns + `
		FROM connections c` + participantJoins + `
		LEFT JOIN reviews rv ON rv.connection_id = c.id
		WHERE c.client_id = $1 AND c.status = 'completed' AND c.rating_pending AND rv.id IS NULL
		ORDER BY c.work_finished_at DESC NULLS LAST`

	var rows []connectionWithParticipantsRow
	if err := r.db.SelectContext(ctx, &rows, query, clientID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las conexiones sin reseña")
	}
	return toEntities(rows)
}

func (r *ConnectionRepository) Stats(ctx context.Context, userID uuid.UUID, role valueobject.Role, since time.Time) (*repository.ConnectionStats, error) {
	column, err := sideColumn(role)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
		Paid   int    `db:"paid"`
		Recent int    `db:"recent"`
	}
	query := fmt.Sprintf(`
		SELECT status,
		       COUNT(*) AS count,
		       COUNT(*) FILTER (WHERE payment_completed) AS paid,
		       COUNT(*) FILTER (WHERE created_at >= $2) AS recent
		FROM connections
		WHERE %s = $1
		GROUP BY status`, column)

	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las estadísticas de conexiones")
	}

	stats := &repository.ConnectionStats{ByStatus: make(map[valueobject.ConnectionStatus]int)}
	for _, s := range valueobject.AllConnectionStatuses {
		stats.ByStatus[s] = 0
	}
	for _, row := range rows {
		stats.ByStatus[valueobject.ConnectionStatus(row.Status)] = row.Count
		stats.Total += row.Count
		stats.PaymentsCompleted += row.Paid
		stats.RecentActivity += row.Recent
	}
	return stats, nil
}

func sideColumn(role valueobject.Role) (string, error) {
	switch role {
	case valueobject.RoleClient:
		return "client_id", nil
	case valueobject.RoleProfessional:
		return "professional_id", nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "rol de usuario desconocido")
}

// jsonParam сериализует необязательное JSONB значение, nil-указатель превращается в NULL.
func jsonParam[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (row connectionRow) toEntity() (*entity.Connection, error) {
	status, err := valueobject.NewConnectionStatus(row.Status)
	if err != nil {
		return nil, err
	}

	conn := &entity.Connection{
		ID:               row.ID,
		ClientID:         row.ClientID,
		ProfessionalID:   row.ProfessionalID,
		Number:           row.Number,
		PaymentRequired:  row.PaymentRequired,
		PaymentCompleted: row.PaymentCompleted,
		Commission:       valueobject.Money{Amount: row.CommissionAmount, Currency: row.CommissionCurrency},
		Status:           status,
		Description:      row.Description,
		WorkStartedAt:    row.WorkStartedAt,
		WorkFinishedAt:   row.WorkFinishedAt,
		Urgent:           row.Urgent,
		RatingPending:    row.RatingPending,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		Messages:         []entity.Message{},
	}

	if conn.PaymentInfo, err = decodeJSON[entity.PaymentInfo](row.PaymentInfo); err != nil {
		return nil, fmt.Errorf("payment_info: %w", err)
	}
	if conn.Location, err = decodeJSON[entity.Location](row.Location); err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	if conn.Budget, err = decodeJSON[valueobject.Budget](row.Budget); err != nil {
		return nil, fmt.Errorf("budget: %w", err)
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &conn.Messages); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	}

	return conn, nil
}

func (row connectionWithParticipantsRow) toEntity() (*entity.Connection, error) {
	conn, err := row.connectionRow.toEntity()
	if err != nil {
		return nil, err
	}

	conn.Client = &entity.Participant{
		ID:    row.ClientID,
		Name:  row.ClientName,
		Email: row.ClientEmail,
		Phone: row.ClientPhone,
		Zone:  row.ClientZone,
	}
	conn.Professional = &entity.Participant{
		ID:       row.ProfessionalID,
		Name:     row.ProfessionalName,
		Email:    row.ProfessionalEmail,
		Phone:    row.ProfessionalPhone,
		Zone:     row.ProfessionalZone,
		PhotoURL: row.ProfessionalPhotoURL,
		Trades:   []string(row.ProfessionalTrades),
	}
	return conn, nil
}

func toEntities(rows []connectionWithParticipantsRow) ([]*entity.Connection, error) {
	result := make([]*entity.Connection, 0, len(rows))
	for _, row := range rows {
		conn, err := row.toEntity()
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "registro de conexión dañado")
		}
		result = append(result, conn)
	}
	return result, nil
}
