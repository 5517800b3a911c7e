package connection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

// recentActivityMonths - окно "недавней активности" в месяцах, считая текущий.
const recentActivityMonths = 6

type StatsUseCase struct {
	connRepo repository.ConnectionRepository
	now      func() time.Time
}

func NewStatsUseCase(connRepo repository.ConnectionRepository) *StatsUseCase {
	return &StatsUseCase{connRepo: connRepo, now: time.Now}
}

func (uc *StatsUseCase) Execute(ctx context.Context, userID uuid.UUID, role valueobject.Role) (*repository.ConnectionStats, error) {
	if !role.IsValid() {
		return nil, apperror.ErrForbidden
	}
	return uc.connRepo.Stats(ctx, userID, role, RecentActivitySince(uc.now()))
}

// RecentActivitySince возвращает первое число месяца шесть месяцев назад.
func RecentActivitySince(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()-recentActivityMonths, 1, 0, 0, 0, 0, now.Location())
}
