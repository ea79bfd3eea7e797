package models

import "time"

type Client struct {
	ID                string    `json:"id"`
	Name              string    `json:"nome"`
	ExternalAccountID *string   `json:"contaExterna,omitempty"` // account in the shipment-issuance system
	CreatedAt         time.Time `json:"criadoEm"`
}

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pendente"
	InvoicePaid    InvoiceStatus = "paga"
)

// Invoice is a charge issued to a client (e.g. boleto) whose payment
// confirmation turns into a recharge.
type Invoice struct {
	ID        string        `json:"id"`
	Reference string        `json:"referencia"`
	ClientID  string        `json:"clienteId"`
	Status    InvoiceStatus `json:"status"`
	PaidAt    *time.Time    `json:"pagoEm,omitempty"`
	CreatedAt time.Time     `json:"criadoEm"`
}
