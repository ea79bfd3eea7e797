// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness and conditional-transition
// rules as the PostgreSQL schema and is used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repositories struct {
	Transactions *Transactions
	Clients      *Clients
	Invoices     *Invoices
	AuditLogs    *AuditLogs
}

func NewRepositories(now func() time.Time) Repositories {
	if now == nil {
		now = time.Now
	}
	return Repositories{
		Transactions: &Transactions{now: now, rows: map[string]models.CreditTransaction{}},
		Clients:      &Clients{rows: map[string]models.Client{}},
		Invoices:     &Invoices{rows: map[string]models.Invoice{}},
		AuditLogs:    &AuditLogs{},
	}
}

// Transactions

type Transactions struct {
	mu    sync.RWMutex
	now   func() time.Time
	rows  map[string]models.CreditTransaction
	order []string
}

var _ repository.CreditTransactions = (*Transactions)(nil)

// Put stores t as-is, bypassing constraint checks. Tests use it to seed
// historical rows.
func (s *Transactions) Put(t models.CreditTransaction) models.CreditTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if _, ok := s.rows[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.rows[t.ID] = t
	return t
}

func (s *Transactions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Transactions) checkUnique(t models.CreditTransaction) error {
	for _, id := range s.order {
		r, ok := s.rows[id]
		if !ok || r.Kind != t.Kind {
			continue
		}
		if t.Kind == models.KindRecharge && r.ClientID == t.ClientID &&
			t.ExternalReference != nil && r.ExternalReference != nil &&
			*t.ExternalReference == *r.ExternalReference {
			return fmt.Errorf("%w: uq_recarga_referencia", repository.ErrConflict)
		}
		if t.Kind == models.KindConsumption &&
			t.ShipmentRef != nil && r.ShipmentRef != nil && *t.ShipmentRef == *r.ShipmentRef {
			return fmt.Errorf("%w: uq_consumo_shipment", repository.ErrConflict)
		}
	}
	return nil
}

func (s *Transactions) insertLocked(t models.CreditTransaction) (models.CreditTransaction, error) {
	if !t.Amount.IsPositive() {
		return models.CreditTransaction{}, fmt.Errorf("valor must be > 0")
	}
	if err := s.checkUnique(t); err != nil {
		return models.CreditTransaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.rows[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *Transactions) Insert(_ context.Context, t models.CreditTransaction) (models.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t)
}

func (s *Transactions) InsertIfAvailable(_ context.Context, t models.CreditTransaction) (models.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var client []models.CreditTransaction
	for _, id := range s.order {
		if r, ok := s.rows[id]; ok && r.ClientID == t.ClientID {
			client = append(client, r)
		}
	}
	if models.ComputeBalance(t.ClientID, client).Available.LessThan(t.Amount) {
		return models.CreditTransaction{}, repository.ErrInsufficientFunds
	}
	return s.insertLocked(t)
}

func (s *Transactions) GetByID(_ context.Context, id string) (models.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.rows[id]
	if !ok {
		return t, repository.ErrNotFound
	}
	return t, nil
}

func (s *Transactions) FindRecharge(_ context.Context, clientID, externalRef string) (models.CreditTransaction, error) {
	found := s.filter(func(t models.CreditTransaction) bool {
		return t.ClientID == clientID && t.Kind == models.KindRecharge &&
			t.ExternalReference != nil && *t.ExternalReference == externalRef
	})
	if len(found) == 0 {
		return models.CreditTransaction{}, repository.ErrNotFound
	}
	return found[0], nil
}

func (s *Transactions) filter(keep func(models.CreditTransaction) bool) []models.CreditTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CreditTransaction
	for _, id := range s.order {
		if t, ok := s.rows[id]; ok && keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Transactions) ListByClient(_ context.Context, clientID string) ([]models.CreditTransaction, error) {
	out := s.filter(func(t models.CreditTransaction) bool { return t.ClientID == clientID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Transactions) ListBlocked(_ context.Context) ([]models.CreditTransaction, error) {
	return s.filter(models.CreditTransaction.IsBlocked), nil
}

func (s *Transactions) ListConsumedPastHold(_ context.Context, now time.Time) ([]models.CreditTransaction, error) {
	return s.filter(func(t models.CreditTransaction) bool {
		return t.IsConsumed() && t.BlockedUntil != nil && t.BlockedUntil.Before(now)
	}), nil
}

func (s *Transactions) MarkConsumed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || !t.IsBlocked() {
		return false, nil
	}
	t.Status = models.StatusConsumed
	s.rows[id] = t
	return true, nil
}

func (s *Transactions) deleteIf(id string, cond func(models.CreditTransaction) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || !cond(t) {
		return false
	}
	delete(s.rows, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Transactions) DeleteBlocked(_ context.Context, id string) (bool, error) {
	return s.deleteIf(id, models.CreditTransaction.IsBlocked), nil
}

func (s *Transactions) DeleteConsumed(_ context.Context, id string) (bool, error) {
	return s.deleteIf(id, models.CreditTransaction.IsConsumed), nil
}

// Clients

type Clients struct {
	mu   sync.RWMutex
	rows map[string]models.Client
}

var _ repository.Clients = (*Clients)(nil)

func (s *Clients) Add(c models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = c
}

func (s *Clients) GetByID(_ context.Context, id string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[id]
	if !ok {
		return c, repository.ErrNotFound
	}
	return c, nil
}

func (s *Clients) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[id]
	return ok, nil
}

// Invoices

type Invoices struct {
	mu   sync.RWMutex
	rows map[string]models.Invoice
}

var _ repository.Invoices = (*Invoices)(nil)

func (s *Invoices) Add(inv models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.Status == "" {
		inv.Status = models.InvoicePending
	}
	s.rows[inv.ID] = inv
}

func (s *Invoices) GetByReference(_ context.Context, ref string) (models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.rows {
		if inv.Reference == ref {
			return inv, nil
		}
	}
	return models.Invoice{}, repository.ErrNotFound
}

func (s *Invoices) MarkPaid(_ context.Context, id string, paidAt time.Time, _ decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok || inv.Status == models.InvoicePaid {
		return nil
	}
	inv.Status = models.InvoicePaid
	inv.PaidAt = &paidAt
	s.rows[id] = inv
	return nil
}

// AuditLogs

type AuditLogs struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

var _ repository.AuditLogs = (*AuditLogs)(nil)

func (s *AuditLogs) Create(_ context.Context, l models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = fmt.Sprint(len(s.entries) + 1)
	s.entries = append(s.entries, l)
	return nil
}

func (s *AuditLogs) Entries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.entries...)
}
