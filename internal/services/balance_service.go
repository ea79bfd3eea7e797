package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fretehub/credit-ledger/internal/models"
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/google/uuid"
)

// BalanceService is the ledger's single write path and its balance calculator.
type BalanceService struct {
	trx     repo.CreditTransactions
	clients repo.Clients
}

func NewBalanceService(t repo.CreditTransactions, c repo.Clients) *BalanceService {
	return &BalanceService{trx: t, clients: c}
}

func validateClientID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: clienteId", ErrMissingParameter)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: clienteId must be a uuid", ErrInvalidParameter)
	}
	return nil
}

func (s *BalanceService) ensureClient(ctx context.Context, id string) error {
	if err := validateClientID(id); err != nil {
		return err
	}
	ok, err := s.clients.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrClientNotFound
	}
	return nil
}

// Record validates and appends one entry to the ledger.
func (s *BalanceService) Record(ctx context.Context, t models.CreditTransaction) (models.CreditTransaction, error) {
	if !t.Amount.IsPositive() {
		return models.CreditTransaction{}, ErrInvalidAmount
	}
	switch t.Kind {
	case models.KindRecharge:
		if t.Status != "" || t.BlockedUntil != nil {
			return models.CreditTransaction{}, fmt.Errorf("%w: recharge carries no status", ErrInvalidParameter)
		}
	case models.KindConsumption:
		if t.Status != models.StatusBlocked && t.Status != models.StatusConsumed {
			return models.CreditTransaction{}, fmt.Errorf("%w: status %q", ErrInvalidParameter, t.Status)
		}
	default:
		return models.CreditTransaction{}, fmt.Errorf("%w: tipo %q", ErrInvalidParameter, t.Kind)
	}
	return s.trx.Insert(ctx, t)
}

// Current recomputes the client's balance from the full log.
func (s *BalanceService) Current(ctx context.Context, clientID string) (models.Balance, error) {
	if err := s.ensureClient(ctx, clientID); err != nil {
		return models.Balance{}, err
	}
	return s.compute(ctx, clientID)
}

func (s *BalanceService) compute(ctx context.Context, clientID string) (models.Balance, error) {
	txs, err := s.trx.ListByClient(ctx, clientID)
	if err != nil {
		return models.Balance{}, err
	}
	return models.ComputeBalance(clientID, txs), nil
}

func (s *BalanceService) History(ctx context.Context, clientID string) ([]models.CreditTransaction, error) {
	if err := s.ensureClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.trx.ListByClient(ctx, clientID)
}

func (s *BalanceService) Transaction(ctx context.Context, id string) (models.CreditTransaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.CreditTransaction{}, fmt.Errorf("%w: id", ErrInvalidParameter)
	}
	t, err := s.trx.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return t, fmt.Errorf("transaction %s: %w", id, repo.ErrNotFound)
	}
	return t, err
}
