package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository/memory"
	"github.com/fretehub/credit-ledger/internal/services"
	"github.com/fretehub/credit-ledger/internal/shipment"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type statusMock struct{ mock.Mock }

func (m *statusMock) Status(ctx context.Context, ref string) (shipment.Status, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(shipment.Status), args.Error(1)
}

type mirrorMock struct{ mock.Mock }

func (m *mirrorMock) SyncBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	return m.Called(ctx, accountID, balance).Error(0)
}

// inline runs background tasks synchronously so tests can assert on them.
type inline struct{}

func (inline) Submit(f func()) bool { f(); return true }

type env struct {
	repos    memory.Repositories
	clock    *fakeClock
	status   *statusMock
	mirror   *mirrorMock
	clientID string
	account  string

	bal      *services.BalanceService
	recharge *services.RechargeService
	reserve  *services.ReservationService
	strict   *services.ReservationService
	sweep    *services.SweepService
	backfill *services.BackfillService
	webhook  *services.WebhookService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	e := &env{
		repos:    memory.NewRepositories(clk.Now),
		clock:    clk,
		status:   &statusMock{},
		mirror:   &mirrorMock{},
		clientID: uuid.NewString(),
		account:  "acc-1",
	}
	acc := e.account
	e.repos.Clients.Add(models.Client{ID: e.clientID, Name: "Loja Teste", ExternalAccountID: &acc})
	e.mirror.On("SyncBalance", mock.Anything, e.account, mock.Anything).Return(nil).Maybe()

	log := discardLogger()
	clock := services.Clock(clk.Now)
	r := e.repos
	e.bal = services.NewBalanceService(r.Transactions, r.Clients)
	syncer := services.NewBalanceSyncer(e.mirror, r.Clients, e.bal, inline{}, log)
	e.recharge = services.NewRechargeService(r.Transactions, e.bal, syncer, r.AuditLogs, log)
	e.reserve = services.NewReservationService(r.Transactions, e.bal, r.AuditLogs, clock, false, log)
	e.strict = services.NewReservationService(r.Transactions, e.bal, r.AuditLogs, clock, true, log)
	e.sweep = services.NewSweepService(r.Transactions, e.status, syncer, r.AuditLogs, clock, log)
	e.backfill = services.NewBackfillService(r.Transactions, e.status, syncer, r.AuditLogs, clock, log)
	e.webhook = services.NewWebhookService(r.Invoices, e.recharge, clock, log)
	return e
}

func (e *env) addCredit(t *testing.T, amount string) services.RechargeResult {
	t.Helper()
	res, err := e.recharge.AddCredit(context.Background(), services.RechargeInput{
		ClientID: e.clientID,
		Amount:   decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return res
}

func (e *env) balance(t *testing.T) models.Balance {
	t.Helper()
	b, err := e.bal.Current(context.Background(), e.clientID)
	require.NoError(t, err)
	return b
}

func mustStatus(t *testing.T, raw string) shipment.Status {
	t.Helper()
	st, err := shipment.ParseStatus(raw)
	require.NoError(t, err)
	return st
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func strPtr(s string) *string { return &s }
