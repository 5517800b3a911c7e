package valueobject

import "github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"

type ConnectionStatus string

const (
	ConnectionStatusPending    ConnectionStatus = "pending"
	ConnectionStatusAccepted   ConnectionStatus = "accepted"
	ConnectionStatusInProgress ConnectionStatus = "in_progress"
	ConnectionStatusCompleted  ConnectionStatus = "completed"
	ConnectionStatusCancelled  ConnectionStatus = "cancelled"
)

// AllConnectionStatuses перечисляет статусы в порядке жизненного цикла.
var AllConnectionStatuses = []ConnectionStatus{
	ConnectionStatusPending,
	ConnectionStatusAccepted,
	ConnectionStatusInProgress,
	ConnectionStatusCompleted,
	ConnectionStatusCancelled,
}

func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusPending, ConnectionStatusAccepted, ConnectionStatusInProgress,
		ConnectionStatusCompleted, ConnectionStatusCancelled:
		return true
	}
	return false
}

func (s ConnectionStatus) IsTerminal() bool {
	return s == ConnectionStatusCompleted || s == ConnectionStatusCancelled
}

// CanTransitionTo разрешает только движение вперёд по жизненному циклу.
// Пропуск промежуточных статусов допустим, возврат назад и повтор текущего статуса нет.
func (s ConnectionStatus) CanTransitionTo(newStatus ConnectionStatus) bool {
	transitions := map[ConnectionStatus][]ConnectionStatus{
		ConnectionStatusPending: {
			ConnectionStatusAccepted, ConnectionStatusInProgress, ConnectionStatusCompleted, ConnectionStatusCancelled,
		},
		ConnectionStatusAccepted: {
			ConnectionStatusInProgress, ConnectionStatusCompleted, ConnectionStatusCancelled,
		},
		ConnectionStatusInProgress: {
			ConnectionStatusCompleted, ConnectionStatusCancelled,
		},
		ConnectionStatusCompleted: {},
		ConnectionStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// CanBeSetBy сообщает, может ли участник с ролью role перевести связь в статус s.
func (s ConnectionStatus) CanBeSetBy(role Role) bool {
	switch role {
	case RoleProfessional:
		return s == ConnectionStatusAccepted || s == ConnectionStatusInProgress || s == ConnectionStatusCompleted
	case RoleClient:
		return s == ConnectionStatusCancelled || s == ConnectionStatusCompleted
	}
	return false
}

func NewConnectionStatus(status string) (ConnectionStatus, error) {
	s := ConnectionStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "estado de conexión inválido")
	}
	return s, nil
}
