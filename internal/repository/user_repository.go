package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/repository/common"
)

const (
	usersEmailConstraint = "users_email_key"

	userColumns = `id, email, password_hash, role, name, phone, photo_url, description, zone,
		trades, available, verified, rating_average, rating_total, rating_distribution,
		email_verified, profile_complete, active, settings, last_login_at, created_at, updated_at`

	// searchableProfessional - базовое условие для публичных выборок профессионалов.
	searchableProfessional = `role = 'professional' AND profile_complete AND active`
)

// userRow - строка таблицы users.
type userRow struct {
	ID                 uuid.UUID      `db:"id"`
	Email              string         `db:"email"`
	PasswordHash       string         `db:"password_hash"`
	Role               string         `db:"role"`
	Name               string         `db:"name"`
	Phone              string         `db:"phone"`
	PhotoURL           string         `db:"photo_url"`
	Description        string         `db:"description"`
	Zone               string         `db:"zone"`
	Trades             pq.StringArray `db:"trades"`
	Available          bool           `db:"available"`
	Verified           bool           `db:"verified"`
	RatingAverage      float64        `db:"rating_average"`
	RatingTotal        int            `db:"rating_total"`
	RatingDistribution []byte         `db:"rating_distribution"`
	EmailVerified      bool           `db:"email_verified"`
	ProfileComplete    bool           `db:"profile_complete"`
	Active             bool           `db:"active"`
	Settings           []byte         `db:"settings"`
	LastLoginAt        *time.Time     `db:"last_login_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row *userRow) toModel() (*models.User, error) {
	user := &models.User{
		ID:              row.ID,
		Email:           row.Email,
		PasswordHash:    row.PasswordHash,
		Role:            valueobject.Role(row.Role),
		Name:            row.Name,
		Phone:           row.Phone,
		PhotoURL:        row.PhotoURL,
		Description:     row.Description,
		Zone:            row.Zone,
		EmailVerified:   row.EmailVerified,
		ProfileComplete: row.ProfileComplete,
		Active:          row.Active,
		Settings:        map[string]interface{}{},
		LastLoginAt:     row.LastLoginAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if len(row.Settings) > 0 {
		if err := json.Unmarshal(row.Settings, &user.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	if user.Role == valueobject.RoleProfessional {
		rating, err := row.rating()
		if err != nil {
			return nil, err
		}
		user.Professional = &models.ProfessionalProfile{
			Trades:    nonNilStrings(row.Trades),
			Available: row.Available,
			Verified:  row.Verified,
			Rating:    rating,
		}
	}

	return user, nil
}

func (row *userRow) rating() (models.RatingSummary, error) {
	dist := models.NewRatingSummary(nil).Distribution
	if len(row.RatingDistribution) > 0 {
		if err := json.Unmarshal(row.RatingDistribution, &dist); err != nil {
			return models.RatingSummary{}, fmt.Errorf("decode rating distribution: %w", err)
		}
	}
	return models.RatingSummary{
		Average:      row.RatingAverage,
		Total:        row.RatingTotal,
		Distribution: dist,
	}, nil
}

func (row *userRow) toSummary() (models.ProfessionalSummary, error) {
	rating, err := row.rating()
	if err != nil {
		return models.ProfessionalSummary{}, err
	}
	return models.ProfessionalSummary{
		ID:          row.ID,
		Name:        row.Name,
		Zone:        row.Zone,
		Trades:      nonNilStrings(row.Trades),
		Description: row.Description,
		PhotoURL:    row.PhotoURL,
		Rating:      rating,
		Verified:    row.Verified,
		Available:   row.Available,
		MemberSince: row.CreatedAt,
	}, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет нового пользователя. Занятый email возвращает ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	settings, err := json.Marshal(user.Settings)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo guardar la configuración")
	}

	var (
		trades    []string
		available = true
		rating    = models.NewRatingSummary(nil)
	)
	if user.Professional != nil {
		trades = user.Professional.Trades
		available = user.Professional.Available
		rating = user.Professional.Rating
	}
	distribution, err := json.Marshal(rating.Distribution)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo guardar la calificación")
	}

	query := `
		INSERT INTO users (email, password_hash, role, name, phone, zone, description,
			trades, available, rating_distribution, profile_complete, active, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.Role.String(), user.Name, user.Phone, user.Zone, user.Description,
		pq.Array(nonNilStrings(trades)), available, string(distribution), user.ProfileComplete, user.Active, string(settings),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, usersEmailConstraint) {
			return apperror.ErrEmailTaken
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo crear el usuario")
	}
	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo obtener el usuario")
	}
	user, err := row.toModel()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo leer el usuario")
	}
	return user, nil
}

// UpdateProfile сохраняет редактируемые поля профиля и флаг profile_complete.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	var trades []string
	if user.Professional != nil {
		trades = user.Professional.Trades
	}

	query := `
		UPDATE users
		SET name = $2, phone = $3, zone = $4, description = $5, trades = $6,
			profile_complete = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Name, user.Phone, user.Zone, user.Description,
		pq.Array(nonNilStrings(trades)), user.ProfileComplete,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar el perfil")
	}
	return nil
}

// SetAvailability меняет флаг доступности профессионала.
func (r *UserRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return r.execOne(ctx, "no se pudo cambiar la disponibilidad",
		`UPDATE users SET available = $2, updated_at = NOW() WHERE id = $1 AND role = 'professional'`,
		id, available)
}

// UpdateSettings дописывает patch поверх сохранённых настроек и возвращает итог.
func (r *UserRepository) UpdateSettings(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "configuración inválida")
	}

	var raw []byte
	err = r.db.QueryRowxContext(ctx, `
		UPDATE users SET settings = settings || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING settings
	`, id, string(payload)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la configuración")
	}

	settings := map[string]interface{}{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo leer la configuración")
	}
	return settings, nil
}

// UpdatePhoto сохраняет ссылку на фото профиля.
func (r *UserRepository) UpdatePhoto(ctx context.Context, id uuid.UUID, photoURL string) error {
	return r.execOne(ctx, "no se pudo actualizar la foto",
		`UPDATE users SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, photoURL)
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "no se pudo actualizar la hora de acceso",
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "no se pudo confirmar el email",
		`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

// Delete удаляет аккаунт вместе со связями и отзывами (ON DELETE CASCADE).
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "no se pudo eliminar la cuenta", `DELETE FROM users WHERE id = $1`, id)
}

// DeleteClient удаляет клиента и в той же транзакции пересчитывает рейтинги профессионалов,
// чьи отзывы уходят вместе с ним. Строка клиента блокируется первой, поэтому новый отзыв
// этого клиента не появится между выборкой профессионалов и удалением.
func (r *UserRepository) DeleteClient(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var reviewed []uuid.UUID
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		err := tx.GetContext(ctx, &locked,
			`SELECT id FROM users WHERE id = $1 AND role = 'client' FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrUserNotFound
			}
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo eliminar la cuenta")
		}

		var candidates []uuid.UUID
		if err := tx.SelectContext(ctx, &candidates, `
			SELECT DISTINCT professional_id FROM reviews
			WHERE client_id = $1
			ORDER BY professional_id
		`, id); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo eliminar la cuenta")
		}

		// профессионалы блокируются по возрастанию id; удалённые параллельно пропускаются
		for _, professionalID := range candidates {
			err := lockProfessional(ctx, tx, professionalID)
			if errors.Is(err, apperror.ErrUserNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			reviewed = append(reviewed, professionalID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo eliminar la cuenta")
		}

		for _, professionalID := range reviewed {
			if _, err := recomputeRating(ctx, tx, professionalID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, passAppError(err, "no se pudo eliminar la cuenta")
	}
	return reviewed, nil
}

func (r *UserRepository) execOne(ctx context.Context, failure, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, failure)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, failure)
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

// IsAvailableProfessional сообщает, можно ли открыть связь с профессионалом.
func (r *UserRepository) IsAvailableProfessional(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE id = $1 AND available AND `+searchableProfessional+`
		)
	`, id)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo verificar al profesional")
	}
	return ok, nil
}

var professionalOrder = map[string]string{
	models.SortByRating:       "rating_average DESC, rating_total DESC, created_at DESC",
	models.SortByReviews:      "rating_total DESC, rating_average DESC, created_at DESC",
	models.SortByRecent:       "created_at DESC",
	models.SortByAlphabetical: "name ASC, created_at DESC",
}

// SearchProfessionals ищет профессионалов по фильтру и возвращает страницу и общее число.
func (r *UserRepository) SearchProfessionals(ctx context.Context, filter models.ProfessionalSearch) ([]models.ProfessionalSummary, int, error) {
	where := []string{searchableProfessional}
	args := []interface{}{}
	argNum := 1

	if term := strings.TrimSpace(filter.Search); term != "" {
		where = append(where, fmt.Sprintf(
			`(name ILIKE $%d OR description ILIKE $%d OR array_to_string(trades, ' ') ILIKE $%d)`,
			argNum, argNum, argNum))
		args = append(args, "%"+term+"%")
		argNum++
	}
	if filter.Zone != "" {
		where = append(where, fmt.Sprintf(`zone = $%d`, argNum))
		args = append(args, filter.Zone)
		argNum++
	}
	if filter.Trade != "" {
		where = append(where, fmt.Sprintf(`$%d = ANY(trades)`, argNum))
		args = append(args, filter.Trade)
		argNum++
	}
	if filter.MinRating != nil {
		where = append(where, fmt.Sprintf(`rating_average >= $%d`, argNum))
		args = append(args, *filter.MinRating)
		argNum++
	}
	if filter.Available != nil {
		where = append(where, fmt.Sprintf(`available = $%d`, argNum))
		args = append(args, *filter.Available)
		argNum++
	}
	if filter.Verified != nil {
		where = append(where, fmt.Sprintf(`verified = $%d`, argNum))
		args = append(args, *filter.Verified)
		argNum++
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE `+clause, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron contar los profesionales")
	}

	order, ok := professionalOrder[filter.SortBy]
	if !ok {
		order = professionalOrder[models.SortByRating]
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + clause +
		` ORDER BY ` + order +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, filter.Limit, common.Offset(filter.Page, filter.Limit))

	items, err := r.selectSummaries(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Featured возвращает проверенных доступных профессионалов с высоким рейтингом.
func (r *UserRepository) Featured(ctx context.Context, minAverage float64, minTotal, limit int) ([]models.ProfessionalSummary, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE ` + searchableProfessional + ` AND verified AND available
			AND rating_average >= $1 AND rating_total >= $2
		ORDER BY rating_average DESC, rating_total DESC
		LIMIT $3`
	return r.selectSummaries(ctx, query, minAverage, minTotal, limit)
}

func (r *UserRepository) selectSummaries(ctx context.Context, query string, args ...interface{}) ([]models.ProfessionalSummary, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener los profesionales")
	}

	items := make([]models.ProfessionalSummary, 0, len(rows))
	for i := range rows {
		summary, err := rows[i].toSummary()
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo leer al profesional")
		}
		items = append(items, summary)
	}
	return items, nil
}

// ProfessionalStats считает сводку по всем профессионалам платформы.
func (r *UserRepository) ProfessionalStats(ctx context.Context) (*models.ProfessionalStats, error) {
	var rows []struct {
		Zone          string         `db:"zone"`
		Trades        pq.StringArray `db:"trades"`
		Verified      bool           `db:"verified"`
		Available     bool           `db:"available"`
		RatingAverage float64        `db:"rating_average"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT zone, trades, verified, available, rating_average
		FROM users
		WHERE role = 'professional'
	`)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las estadísticas de profesionales")
	}

	stats := &models.ProfessionalStats{
		Total:   len(rows),
		ByZone:  map[string]int{},
		ByTrade: map[string]int{},
	}
	sum := decimal.Zero
	for _, row := range rows {
		if row.Verified {
			stats.Verified++
		}
		if row.Available {
			stats.Available++
		}
		if row.RatingAverage > 0 {
			stats.WithRatings++
			sum = sum.Add(decimal.NewFromFloat(row.RatingAverage))
		}
		if row.Zone != "" {
			stats.ByZone[row.Zone]++
		}
		for _, trade := range row.Trades {
			stats.ByTrade[trade]++
		}
	}
	if stats.WithRatings > 0 {
		stats.AverageRating = models.Round1(sum.Div(decimal.NewFromInt(int64(stats.WithRatings))))
	}
	return stats, nil
}
