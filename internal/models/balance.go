package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Balance is derived from the ledger on every read and never stored.
type Balance struct {
	ClientID       string          `json:"-"`
	Available      decimal.Decimal `json:"saldoDisponivel"`
	Blocked        decimal.Decimal `json:"creditosBloqueados"`
	Consumed       decimal.Decimal `json:"creditosConsumidos"`
	TotalRecharges decimal.Decimal `json:"totalRecargas"`
}

// ComputeBalance aggregates a client's full transaction log.
// available = recharges - blocked - consumed.
func ComputeBalance(clientID string, txs []CreditTransaction) Balance {
	b := Balance{
		ClientID:       clientID,
		Available:      decimal.Zero,
		Blocked:        decimal.Zero,
		Consumed:       decimal.Zero,
		TotalRecharges: decimal.Zero,
	}
	for _, t := range txs {
		switch {
		case t.Kind == KindRecharge:
			b.TotalRecharges = b.TotalRecharges.Add(t.Amount)
		case t.IsBlocked():
			b.Blocked = b.Blocked.Add(t.Amount)
		case t.IsConsumed():
			b.Consumed = b.Consumed.Add(t.Amount)
		}
	}
	b.Available = b.TotalRecharges.Sub(b.Blocked).Sub(b.Consumed)
	return b
}

func (b Balance) MarshalJSON() ([]byte, error) {
	type plain Balance
	return json.Marshal(struct {
		plain
		Available      Number `json:"saldoDisponivel"`
		Blocked        Number `json:"creditosBloqueados"`
		Consumed       Number `json:"creditosConsumidos"`
		TotalRecharges Number `json:"totalRecargas"`
	}{plain(b), Number(b.Available), Number(b.Blocked), Number(b.Consumed), Number(b.TotalRecharges)})
}
