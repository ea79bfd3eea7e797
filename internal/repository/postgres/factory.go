package postgres

import (
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Transactions repo.CreditTransactions
	Clients      repo.Clients
	Invoices     repo.Invoices
	AuditLogs    repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Transactions: NewCreditTransactions(pool),
		Clients:      NewClients(pool),
		Invoices:     NewInvoices(pool),
		AuditLogs:    NewAuditLogs(pool),
	}
}
