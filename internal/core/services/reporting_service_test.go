package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	"github.com/zakeetahawi/ledgercore/internal/core/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
)

type ReportingServiceTestSuite struct {
	suite.Suite
	mockReportingRepo *MockReportingRepository
	mockAccountRepo   *MockAccountRepository
	service           *services.ReportingService
}

func (suite *ReportingServiceTestSuite) SetupTest() {
	suite.mockReportingRepo = new(MockReportingRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewReportingService(suite.mockReportingRepo, suite.mockAccountRepo)
}

func (suite *ReportingServiceTestSuite) TestTrialBalance_ExplicitAsOf() {
	ctx := context.Background()
	asOf := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	tb := &domain.TrialBalance{
		TotalDebit:  decimal.NewFromInt(1000),
		TotalCredit: decimal.NewFromInt(1000),
		AsOf:        asOf,
	}

	suite.mockReportingRepo.On("TrialBalance", ctx, asOf).Return(tb, nil).Once()

	result, err := suite.service.TrialBalance(ctx, dto.TrialBalanceRequest{AsOf: &asOf})

	suite.Require().NoError(err)
	suite.True(result.Balanced())
	suite.mockReportingRepo.AssertExpectations(suite.T())
}

func (suite *ReportingServiceTestSuite) TestAccountStatement_ClosingFromLastLine() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := &domain.Account{
		AccountID:      accountID,
		Code:           "1101",
		Name:           "Cash",
		OpeningBalance: decimal.NewFromInt(100),
		CurrentBalance: decimal.NewFromInt(150),
	}
	lines := []domain.StatementLine{
		{TransactionNumber: "PAY-202503-00001", Debit: decimal.NewFromInt(30), RunningBalance: decimal.NewFromInt(130)},
		{TransactionNumber: "PAY-202503-00002", Debit: decimal.NewFromInt(20), RunningBalance: decimal.NewFromInt(150)},
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockReportingRepo.On("AccountStatement", ctx, accountID, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), 100, 0).Return(lines, nil).Once()

	statement, err := suite.service.AccountStatement(ctx, accountID, dto.StatementRequest{})

	suite.Require().NoError(err)
	suite.Equal("1101", statement.Code)
	suite.True(statement.OpeningBalance.Equal(decimal.NewFromInt(100)))
	suite.True(statement.ClosingBalance.Equal(decimal.NewFromInt(150)))
	suite.Len(statement.Lines, 2)
}

func (suite *ReportingServiceTestSuite) TestAccountStatement_EmptyFallsBackToCached() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := &domain.Account{
		AccountID:      accountID,
		Code:           "1101",
		CurrentBalance: decimal.NewFromInt(75),
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockReportingRepo.On("AccountStatement", ctx, accountID, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), 100, 0).Return([]domain.StatementLine{}, nil).Once()

	statement, err := suite.service.AccountStatement(ctx, accountID, dto.StatementRequest{})

	suite.Require().NoError(err)
	suite.True(statement.ClosingBalance.Equal(decimal.NewFromInt(75)))
	suite.Empty(statement.Lines)
}

func (suite *ReportingServiceTestSuite) TestCustomerStatement_UsesReceivableAccount() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := &domain.Account{
		AccountID:  accountID,
		Code:       "1201-cust-42",
		CustomerID: "cust-42",
	}

	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, "cust-42").Return(account, nil).Once()
	suite.mockReportingRepo.On("AccountStatement", ctx, accountID, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), 100, 0).Return([]domain.StatementLine{}, nil).Once()

	statement, err := suite.service.CustomerStatement(ctx, "cust-42", dto.StatementRequest{})

	suite.Require().NoError(err)
	suite.Equal("1201-cust-42", statement.Code)
}

func (suite *ReportingServiceTestSuite) TestCustomerStatement_NoReceivableAccount() {
	ctx := context.Background()

	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, "cust-unknown").Return(nil, apperrors.ErrNotFound).Once()

	statement, err := suite.service.CustomerStatement(ctx, "cust-unknown", dto.StatementRequest{})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(statement)
}

func TestReportingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportingServiceTestSuite))
}
