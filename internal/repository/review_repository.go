package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/conectacordoba/marketplace-backend/internal/metrics"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/repository/common"
)

const (
	reviewsConnectionConstraint = "reviews_connection_id_key"

	reviewColumns = `rv.id, rv.connection_id, rv.client_id, rv.professional_id, rv.score, rv.comment,
		rv.recommend, rv.positive_aspects, rv.improvement_aspects, rv.work_completed, rv.verified,
		rv.moderated, rv.reported, rv.created_at, rv.updated_at,
		COALESCE(cu.name, '') AS client_name,
		COALESCE(pu.name, '') AS professional_name,
		COALESCE(pu.zone, '') AS professional_zone,
		COALESCE(pu.photo_url, '') AS professional_photo_url,
		COALESCE(pu.trades, '{}') AS professional_trades,
		COALESCE(c.description, '') AS connection_description`

	reviewJoins = `FROM reviews rv
		LEFT JOIN users cu ON cu.id = rv.client_id
		LEFT JOIN users pu ON pu.id = rv.professional_id
		LEFT JOIN connections c ON c.id = rv.connection_id`
)

type reviewRow struct {
	ID                    uuid.UUID      `db:"id"`
	ConnectionID          uuid.UUID      `db:"connection_id"`
	ClientID              uuid.UUID      `db:"client_id"`
	ProfessionalID        uuid.UUID      `db:"professional_id"`
	Score                 int            `db:"score"`
	Comment               string         `db:"comment"`
	Recommend             *bool          `db:"recommend"`
	PositiveAspects       pq.StringArray `db:"positive_aspects"`
	ImprovementAspects    pq.StringArray `db:"improvement_aspects"`
	WorkCompleted         bool           `db:"work_completed"`
	Verified              bool           `db:"verified"`
	Moderated             bool           `db:"moderated"`
	Reported              bool           `db:"reported"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
	ClientName            string         `db:"client_name"`
	ProfessionalName      string         `db:"professional_name"`
	ProfessionalZone      string         `db:"professional_zone"`
	ProfessionalPhotoURL  string         `db:"professional_photo_url"`
	ProfessionalTrades    pq.StringArray `db:"professional_trades"`
	ConnectionDescription string         `db:"connection_description"`
}

func (row *reviewRow) toModel() models.Review {
	return models.Review{
		ID:                    row.ID,
		ConnectionID:          row.ConnectionID,
		ClientID:              row.ClientID,
		ProfessionalID:        row.ProfessionalID,
		Score:                 row.Score,
		Comment:               row.Comment,
		Recommend:             row.Recommend,
		PositiveAspects:       nonNilStrings(row.PositiveAspects),
		ImprovementAspects:    nonNilStrings(row.ImprovementAspects),
		WorkCompleted:         row.WorkCompleted,
		Verified:              row.Verified,
		Moderated:             row.Moderated,
		Reported:              row.Reported,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
		ClientName:            row.ClientName,
		ProfessionalName:      row.ProfessionalName,
		ProfessionalZone:      row.ProfessionalZone,
		ProfessionalPhotoURL:  row.ProfessionalPhotoURL,
		ProfessionalTrades:    nonNilStrings(row.ProfessionalTrades),
		ConnectionDescription: row.ConnectionDescription,
	}
}

// ReviewRepository хранит отзывы и поддерживает агрегированный рейтинг профессионала.
// Каждая запись отзыва и пересчёт рейтинга выполняются в одной транзакции
// под блокировкой строки профессионала.
type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create снимает флаг ожидания оценки со связи, сохраняет отзыв и пересчитывает рейтинг.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (models.RatingSummary, error) {
	var summary models.RatingSummary
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockProfessional(ctx, tx, review.ProfessionalID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE connections SET rating_pending = FALSE, updated_at = NOW() WHERE id = $1 AND rating_pending`,
			review.ConnectionID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la conexión")
		}
		if affected, err := res.RowsAffected(); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la conexión")
		} else if affected == 0 {
			return apperror.ErrReviewExists
		}

		query := `
			INSERT INTO reviews (connection_id, client_id, professional_id, score, comment, recommend,
				positive_aspects, improvement_aspects, work_completed, verified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
			RETURNING id, verified, created_at, updated_at
		`
		err = tx.QueryRowxContext(ctx, query,
			review.ConnectionID, review.ClientID, review.ProfessionalID, review.Score, review.Comment, review.Recommend,
			pq.Array(nonNilStrings(review.PositiveAspects)), pq.Array(nonNilStrings(review.ImprovementAspects)),
			review.WorkCompleted,
		).Scan(&review.ID, &review.Verified, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			if common.IsUniqueViolation(err, reviewsConnectionConstraint) {
				return apperror.ErrReviewExists
			}
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo guardar la reseña")
		}

		summary, err = recomputeRating(ctx, tx, review.ProfessionalID)
		return err
	})
	if err != nil {
		return models.RatingSummary{}, passAppError(err, "no se pudo guardar la reseña")
	}

	metrics.ReviewsWritten.WithLabelValues("create").Inc()
	return summary, nil
}

// Update сохраняет изменённый отзыв. Рейтинг пересчитывается только при смене оценки.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review, scoreChanged bool) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if scoreChanged {
			if err := lockProfessional(ctx, tx, review.ProfessionalID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE reviews
			SET score = $2, comment = $3, recommend = $4, positive_aspects = $5,
				improvement_aspects = $6, work_completed = $7, updated_at = $8
			WHERE id = $1
		`, review.ID, review.Score, review.Comment, review.Recommend,
			pq.Array(nonNilStrings(review.PositiveAspects)), pq.Array(nonNilStrings(review.ImprovementAspects)),
			review.WorkCompleted, review.UpdatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la reseña")
		}
		if affected, err := res.RowsAffected(); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo actualizar la reseña")
		} else if affected == 0 {
			return apperror.ErrReviewNotFound
		}

		if scoreChanged {
			_, err = recomputeRating(ctx, tx, review.ProfessionalID)
			return err
		}
		return nil
	})
	if err != nil {
		return passAppError(err, "no se pudo actualizar la reseña")
	}

	metrics.ReviewsWritten.WithLabelValues("update").Inc()
	return nil
}

// Delete удаляет отзыв и пересчитывает рейтинг профессионала.
func (r *ReviewRepository) Delete(ctx context.Context, review *models.Review) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockProfessional(ctx, tx, review.ProfessionalID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, review.ID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo eliminar la reseña")
		}
		if affected, err := res.RowsAffected(); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo eliminar la reseña")
		} else if affected == 0 {
			return apperror.ErrReviewNotFound
		}

		_, err = recomputeRating(ctx, tx, review.ProfessionalID)
		return err
	})
	if err != nil {
		return passAppError(err, "no se pudo eliminar la reseña")
	}

	metrics.ReviewsWritten.WithLabelValues("delete").Inc()
	return nil
}

// Recompute пересчитывает рейтинг профессионала в отдельной транзакции.
func (r *ReviewRepository) Recompute(ctx context.Context, professionalID uuid.UUID) (models.RatingSummary, error) {
	var summary models.RatingSummary
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockProfessional(ctx, tx, professionalID); err != nil {
			return err
		}
		var err error
		summary, err = recomputeRating(ctx, tx, professionalID)
		return err
	})
	if err != nil {
		return models.RatingSummary{}, passAppError(err, "no se pudo recalcular la calificación")
	}
	return summary, nil
}

// lockProfessional сериализует пересчёты рейтинга одного профессионала.
func lockProfessional(ctx context.Context, tx *sqlx.Tx, professionalID uuid.UUID) error {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, professionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo bloquear al profesional")
	}
	return nil
}

// recomputeRating перечитывает все проверенные отзывы и записывает агрегат в строку профессионала.
func recomputeRating(ctx context.Context, tx *sqlx.Tx, professionalID uuid.UUID) (models.RatingSummary, error) {
	counts, err := scoreCounts(ctx, tx, `WHERE professional_id = $1 AND verified`, professionalID)
	if err != nil {
		return models.RatingSummary{}, err
	}

	summary := models.NewRatingSummary(counts)
	distribution, err := json.Marshal(summary.Distribution)
	if err != nil {
		return models.RatingSummary{}, apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo guardar la calificación")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET rating_average = $2, rating_total = $3, rating_distribution = $4, updated_at = NOW()
		WHERE id = $1
	`, professionalID, summary.Average, summary.Total, string(distribution))
	if err != nil {
		return models.RatingSummary{}, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo guardar la calificación")
	}

	metrics.RatingRecomputations.Inc()
	return summary, nil
}

func scoreCounts(ctx context.Context, q common.Querier, where string, args ...interface{}) (map[int]int, error) {
	var rows []struct {
		Score int `db:"score"`
		Count int `db:"count"`
	}
	query := `SELECT score, COUNT(*) AS count FROM reviews ` + where + ` GROUP BY score`
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron contar las puntuaciones")
	}

	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.Score] = row.Count
	}
	return counts, nil
}

// passAppError пропускает доменные ошибки как есть, остальное считает ошибкой БД.
func passAppError(err error, message string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var row reviewRow
	err := r.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` `+reviewJoins+` WHERE rv.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo obtener la reseña")
	}
	review := row.toModel()
	return &review, nil
}

// ExistsForConnection сообщает, оставлен ли уже отзыв по связи.
func (r *ReviewRepository) ExistsForConnection(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reviews WHERE connection_id = $1)`, connectionID)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudo verificar la reseña")
	}
	return exists, nil
}

// ListByClient возвращает отзывы, оставленные клиентом, новые первыми.
func (r *ReviewRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	return r.listPage(ctx, `rv.client_id = $1`, clientID, limit, offset)
}

// ListByProfessional возвращает проверенные отзывы о профессионале, новые первыми.
func (r *ReviewRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	return r.listPage(ctx, `rv.professional_id = $1 AND rv.verified`, professionalID, limit, offset)
}

func (r *ReviewRepository) listPage(ctx context.Context, where string, id uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews rv WHERE `+where, id); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron contar las reseñas")
	}

	query := `SELECT ` + reviewColumns + ` ` + reviewJoins + ` WHERE ` + where +
		` ORDER BY rv.created_at DESC LIMIT $2 OFFSET $3`
	reviews, err := r.selectReviews(ctx, query, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// Recent возвращает последние проверенные отзывы с оценкой не ниже minScore.
func (r *ReviewRepository) Recent(ctx context.Context, minScore, limit int) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + ` ` + reviewJoins + `
		WHERE rv.verified AND rv.score >= $1
		ORDER BY rv.created_at DESC
		LIMIT $2`
	return r.selectReviews(ctx, query, minScore, limit)
}

func (r *ReviewRepository) selectReviews(ctx context.Context, query string, args ...interface{}) ([]models.Review, error) {
	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las reseñas")
	}
	reviews := make([]models.Review, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, rows[i].toModel())
	}
	return reviews, nil
}

// Stats считает публичную статистику проверенных отзывов.
func (r *ReviewRepository) Stats(ctx context.Context, monthStart time.Time) (*models.ReviewStats, error) {
	counts, err := scoreCounts(ctx, r.db, `WHERE verified`)
	if err != nil {
		return nil, err
	}

	var extra struct {
		Recommended int `db:"recommended"`
		ThisMonth   int `db:"this_month"`
	}
	err = r.db.GetContext(ctx, &extra, `
		SELECT COUNT(*) FILTER (WHERE recommend) AS recommended,
			COUNT(*) FILTER (WHERE created_at >= $1) AS this_month
		FROM reviews
		WHERE verified
	`, monthStart)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "no se pudieron obtener las estadísticas de reseñas")
	}

	summary := models.NewRatingSummary(counts)
	stats := &models.ReviewStats{
		Total:        summary.Total,
		Average:      summary.Average,
		Distribution: summary.Distribution,
		ThisMonth:    extra.ThisMonth,
	}
	if summary.Total > 0 {
		stats.RecommendationPercentage = models.Percent(extra.Recommended, summary.Total)
	}
	return stats, nil
}
