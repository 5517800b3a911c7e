package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
)

type ConnectionRepository interface {
	// Create присваивает связи следующий номер внутри пары (клиент, профессионал) и сохраняет её.
	Create(ctx context.Context, conn *entity.Connection) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error)
	List(ctx context.Context, filter ConnectionFilter) ([]*entity.Connection, int, error)
	// Update блокирует строку связи, применяет fn и сохраняет результат в одной транзакции.
	// Если fn возвращает ошибку, изменения не сохраняются.
	Update(ctx context.Context, id uuid.UUID, fn func(conn *entity.Connection) error) (*entity.Connection, error)
	ListAwaitingReview(ctx context.Context, clientID uuid.UUID) ([]*entity.Connection, error)
	Stats(ctx context.Context, userID uuid.UUID, role valueobject.Role, since time.Time) (*ConnectionStats, error)
}

type ConnectionFilter struct {
	UserID uuid.UUID
	Role   valueobject.Role
	Status *valueobject.ConnectionStatus
	Limit  int
	Offset int
}

type ConnectionStats struct {
	Total             int
	ByStatus          map[valueobject.ConnectionStatus]int
	PaymentsCompleted int
	RecentActivity    int
}

// ProfessionalDirectory отвечает на вопрос, можно ли открыть связь с профессионалом.
type ProfessionalDirectory interface {
	IsAvailableProfessional(ctx context.Context, professionalID uuid.UUID) (bool, error)
}
