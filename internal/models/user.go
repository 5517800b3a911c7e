package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
)

// User описывает пользователя платформы. Для профессионала заполнен Professional,
// для клиента он всегда nil.
type User struct {
	ID              uuid.UUID              `json:"id"`
	Email           string                 `json:"email"`
	PasswordHash    string                 `json:"-"`
	Role            valueobject.Role       `json:"role"`
	Name            string                 `json:"name"`
	Phone           string                 `json:"phone"`
	PhotoURL        string                 `json:"photo_url"`
	Description     string                 `json:"description"`
	Zone            string                 `json:"zone"`
	EmailVerified   bool                   `json:"email_verified"`
	ProfileComplete bool                   `json:"profile_complete"`
	Active          bool                   `json:"active"`
	Settings        map[string]interface{} `json:"settings"`
	LastLoginAt     *time.Time             `json:"last_login_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`

	Professional *ProfessionalProfile `json:"professional,omitempty"`
}

// ProfessionalProfile - данные, которые есть только у профессионалов.
type ProfessionalProfile struct {
	Trades    []string      `json:"trades"`
	Available bool          `json:"available"`
	Verified  bool          `json:"verified"`
	Rating    RatingSummary `json:"rating"`
}

// NewUser создаёт пользователя с ролью role. Профессионал получает пустой профиль и нулевой рейтинг.
func NewUser(email, passwordHash string, role valueobject.Role, name string) *User {
	user := &User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         name,
		Active:       true,
		Settings:     map[string]interface{}{},
	}
	if role == valueobject.RoleProfessional {
		user.Professional = &ProfessionalProfile{
			Trades:    []string{},
			Available: true,
			Rating:    NewRatingSummary(nil),
		}
	}
	user.ProfileComplete = user.ComputeProfileComplete()
	return user
}

func (u *User) IsProfessional() bool {
	return u.Role == valueobject.RoleProfessional && u.Professional != nil
}

func (u *User) IsClient() bool {
	return u.Role == valueobject.RoleClient
}

// ComputeProfileComplete: имя, телефон и зона обязательны всем, профессионалу нужна хотя бы одна специальность.
func (u *User) ComputeProfileComplete() bool {
	if u.Name == "" || u.Phone == "" || u.Zone == "" {
		return false
	}
	if u.Role == valueobject.RoleProfessional {
		return u.Professional != nil && len(u.Professional.Trades) > 0
	}
	return true
}

// ProfileUpdate - частичное обновление профиля, nil поля не меняются.
type ProfileUpdate struct {
	Name        *string
	Phone       *string
	Zone        *string
	Description *string
	Trades      []string
}

// Apply применяет изменения и пересчитывает ProfileComplete.
func (u *User) Apply(update ProfileUpdate) {
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Zone != nil {
		u.Zone = *update.Zone
	}
	if update.Description != nil {
		u.Description = *update.Description
	}
	if update.Trades != nil && u.Professional != nil {
		u.Professional.Trades = update.Trades
	}
	u.ProfileComplete = u.ComputeProfileComplete()
}

// MergeSettings дописывает ключи patch поверх текущих настроек.
func (u *User) MergeSettings(patch map[string]interface{}) {
	if u.Settings == nil {
		u.Settings = make(map[string]interface{}, len(patch))
	}
	for k, v := range patch {
		u.Settings[k] = v
	}
}

// ProfessionalSummary - карточка профессионала в поиске и подборках.
type ProfessionalSummary struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Zone        string        `json:"zone"`
	Trades      []string      `json:"trades"`
	Description string        `json:"description"`
	PhotoURL    string        `json:"photo_url"`
	Rating      RatingSummary `json:"rating"`
	Verified    bool          `json:"verified"`
	Available   bool          `json:"available"`
	MemberSince time.Time     `json:"member_since"`
}

// Summary строит публичную карточку профессионала. Для клиента профиль остаётся пустым.
func (u *User) Summary() ProfessionalSummary {
	summary := ProfessionalSummary{
		ID:          u.ID,
		Name:        u.Name,
		Zone:        u.Zone,
		Trades:      []string{},
		Description: u.Description,
		PhotoURL:    u.PhotoURL,
		Rating:      NewRatingSummary(nil),
		MemberSince: u.CreatedAt,
	}
	if p := u.Professional; p != nil {
		if p.Trades != nil {
			summary.Trades = p.Trades
		}
		summary.Rating = p.Rating
		summary.Verified = p.Verified
		summary.Available = p.Available
	}
	return summary
}

// ProfessionalSearch - фильтр поиска профессионалов.
type ProfessionalSearch struct {
	Search    string
	Zone      string
	Trade     string
	MinRating *float64
	Available *bool
	Verified  *bool
	SortBy    string
	Page      int
	Limit     int
}

const (
	SortByRating       = "calificacion"
	SortByReviews      = "reviews"
	SortByRecent       = "reciente"
	SortByAlphabetical = "alfabetico"
)

// ProfessionalStats - сводка по всем профессионалам платформы.
type ProfessionalStats struct {
	Total         int            `json:"total"`
	Verified      int            `json:"verified"`
	Available     int            `json:"available"`
	WithRatings   int            `json:"with_ratings"`
	ByZone        map[string]int `json:"by_zone"`
	ByTrade       map[string]int `json:"by_trade"`
	AverageRating float64        `json:"average_rating"`
}
