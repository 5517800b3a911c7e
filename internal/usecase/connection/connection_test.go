package connection_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/infrastructure/payment"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/usecase/connection"
)

type mockConnectionRepository struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*entity.Connection
	order []uuid.UUID
}

func newMockConnectionRepository() *mockConnectionRepository {
	return &mockConnectionRepository{conns: make(map[uuid.UUID]*entity.Connection)}
}

func clone(c *entity.Connection) *entity.Connection {
	cp := *c
	cp.Messages = append([]entity.Message{}, c.Messages...)
	return &cp
}

func (m *mockConnectionRepository) Create(ctx context.Context, conn *entity.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, c := range m.conns {
		if c.ClientID == conn.ClientID && c.ProfessionalID == conn.ProfessionalID {
			count++
		}
	}
	conn.AssignNumber(count + 1)
	m.conns[conn.ID] = clone(conn)
	m.order = append(m.order, conn.ID)
	return nil
}

func (m *mockConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[id]; ok {
		return clone(c), nil
	}
	return nil, apperror.ErrConnectionNotFound
}

func (m *mockConnectionRepository) List(ctx context.Context, filter repository.ConnectionFilter) ([]*entity.Connection, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*entity.Connection
	for i := len(m.order) - 1; i >= 0; i-- {
		c := m.conns[m.order[i]]
		side := c.ClientID
		if filter.Role == valueobject.RoleProfessional {
			side = c.ProfessionalID
		}
		if side != filter.UserID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		matched = append(matched, clone(c))
	}

	total := len(matched)
	if filter.Offset >= total {
		return []*entity.Connection{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m *mockConnectionRepository) Update(ctx context.Context, id uuid.UUID, fn func(conn *entity.Connection) error) (*entity.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.conns[id]
	if !ok {
		return nil, apperror.ErrConnectionNotFound
	}
	working := clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.conns[id] = working
	return clone(working), nil
}

func (m *mockConnectionRepository) ListAwaitingReview(ctx context.Context, clientID uuid.UUID) ([]*entity.Connection, error) {
	return nil, nil
}

func (m *mockConnectionRepository) Stats(ctx context.Context, userID uuid.UUID, role valueobject.Role, since time.Time) (*repository.ConnectionStats, error) {
	return &repository.ConnectionStats{ByStatus: map[valueobject.ConnectionStatus]int{}}, nil
}

type staticDirectory map[uuid.UUID]bool

func (d staticDirectory) IsAvailableProfessional(ctx context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

type failingProcessor struct{}

func (failingProcessor) Charge(ctx context.Context, charge payment.Charge) (*payment.Receipt, error) {
	return nil, errors.New("gateway down")
}

type fixture struct {
	repo         *mockConnectionRepository
	clientID     uuid.UUID
	professional uuid.UUID
	create       *connection.CreateConnectionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockConnectionRepository()
	professional := uuid.New()
	commission, err := valueobject.NewMoney(decimal.RequireFromString("1500.00"), "ARS")
	require.NoError(t, err)

	return &fixture{
		repo:         repo,
		clientID:     uuid.New(),
		professional: professional,
		create:       connection.NewCreateConnectionUseCase(repo, staticDirectory{professional: true}, commission),
	}
}

func (f *fixture) connect(t *testing.T) *entity.Connection {
	t.Helper()
	conn, err := f.create.Execute(context.Background(), connection.CreateConnectionInput{
		ClientID:       f.clientID,
		Role:           valueobject.RoleClient,
		ProfessionalID: f.professional,
		Description:    "Pintar dos habitaciones y el living",
	})
	require.NoError(t, err)
	return conn
}

func TestCreateConnection_ThirdRequiresPayment(t *testing.T) {
	f := newFixture(t)

	first := f.connect(t)
	second := f.connect(t)
	third := f.connect(t)
	fourth := f.connect(t)

	assert.Equal(t, []int{1, 2, 3, 4}, []int{first.Number, second.Number, third.Number, fourth.Number})
	assert.False(t, first.PaymentRequired)
	assert.False(t, second.PaymentRequired)
	assert.True(t, third.PaymentRequired)
	assert.False(t, fourth.PaymentRequired)
	assert.Equal(t, "ARS 1500.00", third.Commission.String())

	pay := connection.NewRecordPaymentUseCase(f.repo, payment.NewSimulatedProcessor())
	info, err := pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID,
		ClientID:     f.clientID,
		Role:         valueobject.RoleClient,
		Method:       "tarjeta",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, info.TransactionID)

	stored, _ := f.repo.FindByID(context.Background(), third.ID)
	assert.True(t, stored.PaymentCompleted)
	assert.False(t, stored.RequiresPayment())
}

func TestCreateConnection_Rules(t *testing.T) {
	f := newFixture(t)

	_, err := f.create.Execute(context.Background(), connection.CreateConnectionInput{
		ClientID:       f.clientID,
		Role:           valueobject.RoleProfessional,
		ProfessionalID: f.professional,
		Description:    "Pintar dos habitaciones y el living",
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.create.Execute(context.Background(), connection.CreateConnectionInput{
		ClientID:       f.clientID,
		Role:           valueobject.RoleClient,
		ProfessionalID: uuid.New(),
		Description:    "Pintar dos habitaciones y el living",
	})
	assert.ErrorIs(t, err, apperror.ErrProfessionalUnavailable)

	_, err = f.create.Execute(context.Background(), connection.CreateConnectionInput{
		ClientID:       f.clientID,
		Role:           valueobject.RoleClient,
		ProfessionalID: f.professional,
		Description:    "corto",
	})
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, f.repo.conns)
}

func TestRecordPayment_Errors(t *testing.T) {
	f := newFixture(t)
	first := f.connect(t)
	_ = f.connect(t)
	third := f.connect(t)
	pay := connection.NewRecordPaymentUseCase(f.repo, payment.NewSimulatedProcessor())

	_, err := pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID, ClientID: f.professional, Role: valueobject.RoleProfessional, Method: "tarjeta",
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID, ClientID: uuid.New(), Role: valueobject.RoleClient, Method: "tarjeta",
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: first.ID, ClientID: f.clientID, Role: valueobject.RoleClient, Method: "tarjeta",
	})
	assert.ErrorIs(t, err, apperror.ErrPaymentNotRequired)

	_, err = connection.NewRecordPaymentUseCase(f.repo, failingProcessor{}).Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID, ClientID: f.clientID, Role: valueobject.RoleClient, Method: "tarjeta",
	})
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))

	_, err = pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID, ClientID: f.clientID, Role: valueobject.RoleClient, Method: "tarjeta",
	})
	require.NoError(t, err)

	_, err = pay.Execute(context.Background(), connection.RecordPaymentInput{
		ConnectionID: third.ID, ClientID: f.clientID, Role: valueobject.RoleClient, Method: "tarjeta",
	})
	assert.ErrorIs(t, err, apperror.ErrPaymentCompleted)
}

func TestGetConnection_MarksOwnUnreadMessages(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)
	send := connection.NewSendMessageUseCase(f.repo)

	_, err := send.Execute(context.Background(), conn.ID, f.clientID, "¿Tenés disponibilidad el sábado?")
	require.NoError(t, err)
	_, err = send.Execute(context.Background(), conn.ID, f.professional, "Sí, a la mañana")
	require.NoError(t, err)

	get := connection.NewGetConnectionUseCase(f.repo)
	detail, err := get.Execute(context.Background(), conn.ID, f.professional)
	require.NoError(t, err)

	require.Len(t, detail.Messages, 2)
	assert.True(t, detail.Messages[0].Read)
	assert.False(t, detail.Messages[1].Read)

	_, err = get.Execute(context.Background(), conn.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrConnectionNotFound)
}

func TestSendMessage_NonParticipant(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	_, err := connection.NewSendMessageUseCase(f.repo).Execute(context.Background(), conn.ID, uuid.New(), "hola")
	assert.True(t, apperror.IsNotFound(err))

	stored, _ := f.repo.FindByID(context.Background(), conn.ID)
	assert.Empty(t, stored.Messages)
}

func TestSendMessage_ConcurrentAppendsAreKept(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)
	send := connection.NewSendMessageUseCase(f.repo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := f.clientID
			if i%2 == 0 {
				sender = f.professional
			}
			_, err := send.Execute(context.Background(), conn.ID, sender, "mensaje")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, _ := f.repo.FindByID(context.Background(), conn.ID)
	assert.Len(t, stored.Messages, 20)
}

func TestMarkRead_Idempotent(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)
	_, _ = connection.NewSendMessageUseCase(f.repo).Execute(context.Background(), conn.ID, f.clientID, "hola")

	markRead := connection.NewMarkReadUseCase(f.repo)

	n, err := markRead.Execute(context.Background(), conn.ID, f.clientID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = markRead.Execute(context.Background(), conn.ID, f.professional)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = markRead.Execute(context.Background(), conn.ID, f.professional)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = markRead.Execute(context.Background(), conn.ID, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)
	update := connection.NewUpdateStatusUseCase(f.repo)

	_, err := update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: f.clientID, Status: "accepted",
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: f.professional, Status: "archived",
	})
	assert.True(t, apperror.IsValidation(err))

	started := time.Now().Add(-48 * time.Hour)
	updated, err := update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: f.professional, Status: "in_progress", WorkStartedAt: &started,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ConnectionStatusInProgress, updated.Status)

	finished := started.Add(36 * time.Hour)
	updated, err = update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: f.clientID, Status: "completed", WorkFinishedAt: &finished,
	})
	require.NoError(t, err)
	assert.True(t, updated.RatingPending)
	require.NotNil(t, updated.WorkDurationDays())
	assert.Equal(t, 2, *updated.WorkDurationDays())

	_, err = update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: f.clientID, Status: "cancelled",
	})
	assert.True(t, apperror.IsConflict(err))

	_, err = update.Execute(context.Background(), connection.UpdateStatusInput{
		ConnectionID: conn.ID, UserID: uuid.New(), Status: "cancelled",
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestListConnections_UnreadCountsAndPaging(t *testing.T) {
	f := newFixture(t)
	var last *entity.Connection
	for i := 0; i < 3; i++ {
		last = f.connect(t)
	}
	_, _ = connection.NewSendMessageUseCase(f.repo).Execute(context.Background(), last.ID, f.professional, "Te paso presupuesto")

	list := connection.NewListConnectionsUseCase(f.repo)
	out, err := list.Execute(context.Background(), connection.ListConnectionsInput{
		UserID: f.clientID, Role: valueobject.RoleClient, Limit: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Total)
	require.Len(t, out.Items, 2)
	assert.Equal(t, last.ID, out.Items[0].Connection.ID)
	assert.Equal(t, 1, out.Items[0].UnreadCount)

	out, err = list.Execute(context.Background(), connection.ListConnectionsInput{
		UserID: f.professional, Role: valueobject.RoleProfessional, Status: "completed",
	})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
	assert.Equal(t, 10, out.Limit)

	_, err = list.Execute(context.Background(), connection.ListConnectionsInput{
		UserID: f.clientID, Role: valueobject.RoleClient, Status: "unknown",
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestRecentActivitySince(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC), connection.RecentActivitySince(now))
}

// countingProcessor считает списания и задерживает ответ, чтобы запросы пересеклись.
type countingProcessor struct {
	mu      sync.Mutex
	charges int
}

func (p *countingProcessor) Charge(ctx context.Context, charge payment.Charge) (*payment.Receipt, error) {
	p.mu.Lock()
	p.charges++
	p.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	return &payment.Receipt{TransactionID: "TX_" + uuid.NewString(), PaidAt: time.Now(), Amount: charge.Amount}, nil
}

func TestRecordPayment_ConcurrentRequestsChargeOnce(t *testing.T) {
	f := newFixture(t)
	_ = f.connect(t)
	_ = f.connect(t)
	third := f.connect(t)

	processor := &countingProcessor{}
	pay := connection.NewRecordPaymentUseCase(f.repo, processor)

	const attempts = 5
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pay.Execute(context.Background(), connection.RecordPaymentInput{
				ConnectionID: third.ID, ClientID: f.clientID, Role: valueobject.RoleClient, Method: "tarjeta",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrPaymentCompleted)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, processor.charges)
}
