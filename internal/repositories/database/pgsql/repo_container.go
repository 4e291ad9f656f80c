package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     newPgxAccountRepository(dbPool),
		TransactionRepo: newPgxTransactionRepository(dbPool),
		AdvanceRepo:     newPgxAdvanceRepository(dbPool),
		SummaryRepo:     newPgxSummaryRepository(dbPool),
		OrderRepo:       newPgxOrderRepository(dbPool),
		ReportingRepo:   newPgxReportingRepository(dbPool),
	}
}
