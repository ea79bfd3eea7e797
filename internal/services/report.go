package services

import (
	"encoding/json"
	"time"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type ItemError struct {
	TransactionID string `json:"transacaoId"`
	ShipmentRef   string `json:"shipmentRef,omitempty"`
	Error         string `json:"erro"`
}

type SweepReport struct {
	Analyzed   int         `json:"analisadas"`
	Consumed   int         `json:"consumidas"`
	Released   int         `json:"liberadas"`
	Pending    int         `json:"pendentes"`
	Skipped    int         `json:"ignoradas"` // resolved by someone else since the snapshot
	Failed     int         `json:"falhas"`
	Errors     []ItemError `json:"erros,omitempty"`
	StartedAt  time.Time   `json:"iniciadoEm"`
	FinishedAt time.Time   `json:"finalizadoEm"`
}

type BackfillReport struct {
	Analyzed       int             `json:"analisadas"`
	Corrected      int             `json:"corrigidas"`
	Kept           int             `json:"mantidas"`
	Failed         int             `json:"falhas"`
	RefundedAmount decimal.Decimal `json:"valorEstornado"`
	DryRun         bool            `json:"dryRun"`
	Errors         []ItemError     `json:"erros,omitempty"`
	StartedAt      time.Time       `json:"iniciadoEm"`
	FinishedAt     time.Time       `json:"finalizadoEm"`
}

func (r BackfillReport) MarshalJSON() ([]byte, error) {
	type plain BackfillReport
	return json.Marshal(struct {
		plain
		RefundedAmount models.Number `json:"valorEstornado"`
	}{plain(r), models.Number(r.RefundedAmount)})
}

func itemError(id string, ref *string, err error) ItemError {
	e := ItemError{TransactionID: id, Error: err.Error()}
	if ref != nil {
		e.ShipmentRef = *ref
	}
	return e
}
