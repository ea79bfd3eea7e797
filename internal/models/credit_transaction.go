package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindRecharge    TransactionKind = "recarga"
	KindConsumption TransactionKind = "consumo"
)

type TransactionStatus string

const (
	StatusBlocked  TransactionStatus = "bloqueado"
	StatusConsumed TransactionStatus = "consumido"
)

// HoldWindow is how long a reservation waits for carrier acceptance before
// the sweep is allowed to release it.
const HoldWindow = 72 * time.Hour

// CreditTransaction is one row of the prepaid ledger. Recharges carry no
// status; consumptions are either blocked (reserved) or consumed.
type CreditTransaction struct {
	ID                string            `json:"id"`
	ClientID          string            `json:"clienteId"`
	Kind              TransactionKind   `json:"tipo"`
	Amount            decimal.Decimal   `json:"valor"`
	Status            TransactionStatus `json:"status,omitempty"`
	BlockedUntil      *time.Time        `json:"blockedUntil,omitempty"`
	ExternalReference *string           `json:"referenciaExterna,omitempty"`
	ShipmentRef       *string           `json:"shipmentRef,omitempty"`
	Description       string            `json:"descricao,omitempty"`
	CreatedAt         time.Time         `json:"criadoEm"`
}

func (t CreditTransaction) IsBlocked() bool {
	return t.Kind == KindConsumption && t.Status == StatusBlocked
}

func (t CreditTransaction) IsConsumed() bool {
	return t.Kind == KindConsumption && t.Status == StatusConsumed
}

// HoldExpired reports whether the hold window of a blocked entry has elapsed at now.
func (t CreditTransaction) HoldExpired(now time.Time) bool {
	return t.BlockedUntil != nil && !now.Before(*t.BlockedUntil)
}

func (t CreditTransaction) MarshalJSON() ([]byte, error) {
	type plain CreditTransaction
	return json.Marshal(struct {
		plain
		Amount Number `json:"valor"`
	}{plain(t), Number(t.Amount)})
}
