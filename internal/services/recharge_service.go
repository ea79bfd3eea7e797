package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fretehub/credit-ledger/internal/metrics"
	"github.com/fretehub/credit-ledger/internal/models"
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/shopspring/decimal"
)

// MaxRechargeAmount is the anti-fraud ceiling of a single recharge call.
var MaxRechargeAmount = decimal.NewFromInt(50000)

type RechargeInput struct {
	ClientID          string
	Amount            decimal.Decimal
	Description       string
	ExternalReference string // optional idempotency key
	Actor             string // api, webhook, partner...
	// SkipCeiling lifts MaxRechargeAmount for money the payment gateway has
	// already settled.
	SkipCeiling bool
}

type RechargeResult struct {
	TransactionID string          `json:"transacaoId"`
	ClientID      string          `json:"clienteId"`
	Amount        decimal.Decimal `json:"valor"`
	NewBalance    decimal.Decimal `json:"novoSaldo"`
	Reference     *string         `json:"referencia"`
	Duplicated    bool            `json:"duplicado,omitempty"`
}

type RechargeService struct {
	trx   repo.CreditTransactions
	bal   *BalanceService
	sync  *BalanceSyncer
	audit auditor
	log   *slog.Logger
}

func (r RechargeResult) MarshalJSON() ([]byte, error) {
	type plain RechargeResult
	return json.Marshal(struct {
		plain
		Amount     models.Number `json:"valor"`
		NewBalance models.Number `json:"novoSaldo"`
	}{plain(r), models.Number(r.Amount), models.Number(r.NewBalance)})
}

func NewRechargeService(t repo.CreditTransactions, b *BalanceService, sync *BalanceSyncer, a repo.AuditLogs, log *slog.Logger) *RechargeService {
	return &RechargeService{trx: t, bal: b, sync: sync, audit: auditor{logs: a, log: log}, log: log}
}

func (in RechargeInput) validate() error {
	if err := validateClientID(in.ClientID); err != nil {
		return err
	}
	if in.Amount.IsZero() {
		return fmt.Errorf("%w: valor", ErrMissingParameter)
	}
	if in.Amount.IsNegative() {
		return fmt.Errorf("%w: valor must be > 0", ErrInvalidParameter)
	}
	if !in.SkipCeiling && in.Amount.GreaterThan(MaxRechargeAmount) {
		return fmt.Errorf("%w: max %s", ErrLimitExceeded, MaxRechargeAmount)
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return fmt.Errorf("%w: valor has more than 2 decimal places", ErrInvalidParameter)
	}
	return nil
}

// AddCredit appends a recharge. A call repeating a known
// (ClientID, ExternalReference) returns the original entry with
// Duplicated set and writes nothing.
func (s *RechargeService) AddCredit(ctx context.Context, in RechargeInput) (RechargeResult, error) {
	in.ExternalReference = strings.TrimSpace(in.ExternalReference)
	if err := in.validate(); err != nil {
		metrics.RechargesTotal.WithLabelValues("rejected").Inc()
		return RechargeResult{}, err
	}
	if err := s.bal.ensureClient(ctx, in.ClientID); err != nil {
		metrics.RechargesTotal.WithLabelValues("rejected").Inc()
		return RechargeResult{}, err
	}

	if in.ExternalReference != "" {
		prior, err := s.trx.FindRecharge(ctx, in.ClientID, in.ExternalReference)
		switch {
		case err == nil:
			return s.duplicate(ctx, prior)
		case !errors.Is(err, repo.ErrNotFound):
			return RechargeResult{}, err
		}
	}

	t := models.CreditTransaction{
		ClientID:    in.ClientID,
		Kind:        models.KindRecharge,
		Amount:      in.Amount,
		Description: in.Description,
	}
	if in.ExternalReference != "" {
		ref := in.ExternalReference
		t.ExternalReference = &ref
	}
	t, err := s.bal.Record(ctx, t)
	if errors.Is(err, repo.ErrConflict) && in.ExternalReference != "" {
		// lost an insert race against a concurrent delivery of the same reference
		prior, ferr := s.trx.FindRecharge(ctx, in.ClientID, in.ExternalReference)
		if ferr != nil {
			return RechargeResult{}, ferr
		}
		return s.duplicate(ctx, prior)
	}
	if err != nil {
		return RechargeResult{}, err
	}

	metrics.RechargesTotal.WithLabelValues("created").Inc()
	actor := in.Actor
	if actor == "" {
		actor = "api"
	}
	s.audit.record(ctx, t, models.AuditRecharged, actor, nil)
	s.log.Info("recharge recorded", "transaction_id", t.ID, "client_id", t.ClientID, "amount", t.Amount.String())

	b, err := s.bal.compute(ctx, in.ClientID)
	if err != nil {
		return RechargeResult{}, err
	}
	s.sync.SyncAsync(in.ClientID)

	return RechargeResult{
		TransactionID: t.ID,
		ClientID:      t.ClientID,
		Amount:        t.Amount,
		NewBalance:    b.Available,
		Reference:     t.ExternalReference,
	}, nil
}

func (s *RechargeService) duplicate(ctx context.Context, prior models.CreditTransaction) (RechargeResult, error) {
	metrics.RechargesTotal.WithLabelValues("duplicated").Inc()
	s.log.Info("duplicate recharge ignored", "transaction_id", prior.ID, "client_id", prior.ClientID)
	b, err := s.bal.compute(ctx, prior.ClientID)
	if err != nil {
		return RechargeResult{}, err
	}
	return RechargeResult{
		TransactionID: prior.ID,
		ClientID:      prior.ClientID,
		Amount:        prior.Amount,
		NewBalance:    b.Available,
		Reference:     prior.ExternalReference,
		Duplicated:    true,
	}, nil
}
