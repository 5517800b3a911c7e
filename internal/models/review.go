package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinCommentLength = 10
	MaxCommentLength = 500

	// EditWindowDays и DeleteWindowDays считаются полными сутками с момента создания.
	EditWindowDays   = 30
	DeleteWindowDays = 7
)

// Review - отзыв клиента о профессионале по завершённой связи.
type Review struct {
	ID                 uuid.UUID `json:"id"`
	ConnectionID       uuid.UUID `json:"connection_id"`
	ClientID           uuid.UUID `json:"client_id"`
	ProfessionalID     uuid.UUID `json:"professional_id"`
	Score              int       `json:"score"`
	Comment            string    `json:"comment"`
	Recommend          *bool     `json:"recommend"`
	PositiveAspects    []string  `json:"positive_aspects"`
	ImprovementAspects []string  `json:"improvement_aspects"`
	WorkCompleted      bool      `json:"work_completed"`
	Verified           bool      `json:"verified"`
	Moderated          bool      `json:"moderated"`
	Reported           bool      `json:"reported"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	ClientName            string   `json:"client_name,omitempty"`
	ProfessionalName      string   `json:"professional_name,omitempty"`
	ProfessionalZone      string   `json:"professional_zone,omitempty"`
	ProfessionalPhotoURL  string   `json:"professional_photo_url,omitempty"`
	ProfessionalTrades    []string `json:"professional_trades,omitempty"`
	ConnectionDescription string   `json:"connection_description,omitempty"`
}

// AgeDays - число полных суток с момента создания отзыва.
func (r *Review) AgeDays(now time.Time) int {
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

func (r *Review) CanEdit(now time.Time) bool {
	return r.AgeDays(now) <= EditWindowDays
}

func (r *Review) CanDelete(now time.Time) bool {
	return r.AgeDays(now) <= DeleteWindowDays
}

// ReviewUpdate - изменяемые поля отзыва, nil поля не меняются.
type ReviewUpdate struct {
	Score              *int
	Comment            *string
	Recommend          *bool
	WorkCompleted      *bool
	PositiveAspects    []string
	ImprovementAspects []string
}

// Apply применяет изменения и сообщает, поменялась ли оценка.
func (r *Review) Apply(update ReviewUpdate, now time.Time) (scoreChanged bool) {
	if update.Score != nil && *update.Score != r.Score {
		r.Score = *update.Score
		scoreChanged = true
	}
	if update.Comment != nil {
		r.Comment = *update.Comment
	}
	if update.Recommend != nil {
		r.Recommend = update.Recommend
	}
	if update.WorkCompleted != nil {
		r.WorkCompleted = *update.WorkCompleted
	}
	if update.PositiveAspects != nil {
		r.PositiveAspects = update.PositiveAspects
	}
	if update.ImprovementAspects != nil {
		r.ImprovementAspects = update.ImprovementAspects
	}
	r.UpdatedAt = now
	return scoreChanged
}

// ReviewStats - публичная статистика отзывов платформы.
type ReviewStats struct {
	Total                    int                `json:"total"`
	Average                  float64            `json:"average"`
	Distribution             RatingDistribution `json:"distribution"`
	RecommendationPercentage int                `json:"recommendation_percentage"`
	ThisMonth                int                `json:"this_month"`
}

// AwaitingReview - завершённая связь, по которой клиент ещё не оставил отзыв.
type AwaitingReview struct {
	ConnectionID       uuid.UUID  `json:"connection_id"`
	ProfessionalID     uuid.UUID  `json:"professional_id"`
	ProfessionalName   string     `json:"professional_name"`
	ProfessionalTrades []string   `json:"professional_trades"`
	Description        string     `json:"description"`
	WorkFinishedAt     *time.Time `json:"work_finished_at"`
}
