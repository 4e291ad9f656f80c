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
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	"github.com/zakeetahawi/ledgercore/internal/core/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
)

// --- Mock AdvanceRepository ---

type MockAdvanceRepository struct {
	mock.Mock
}

var _ portsrepo.AdvanceRepository = (*MockAdvanceRepository)(nil)

func (m *MockAdvanceRepository) CreateAdvance(ctx context.Context, advance domain.CustomerAdvance, companion domain.Transaction) error {
	args := m.Called(ctx, advance, companion)
	return args.Error(0)
}

func (m *MockAdvanceRepository) FindAdvanceByID(ctx context.Context, advanceID string) (*domain.CustomerAdvance, error) {
	args := m.Called(ctx, advanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerAdvance), args.Error(1)
}

func (m *MockAdvanceRepository) ListAdvancesByCustomer(ctx context.Context, customerID string) ([]domain.CustomerAdvance, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomerAdvance), args.Error(1)
}

func (m *MockAdvanceRepository) FindUsagesByAdvanceID(ctx context.Context, advanceID string) ([]domain.AdvanceUsage, error) {
	args := m.Called(ctx, advanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdvanceUsage), args.Error(1)
}

func (m *MockAdvanceRepository) ConsumeAmount(ctx context.Context, advanceID string, usage domain.AdvanceUsage, companion domain.Transaction) (decimal.Decimal, error) {
	args := m.Called(ctx, advanceID, usage, companion)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAdvanceRepository) CloseAdvance(ctx context.Context, advanceID string, status domain.AdvanceStatus, companion domain.Transaction, actor string, now time.Time) error {
	args := m.Called(ctx, advanceID, status, companion, actor, now)
	return args.Error(0)
}

// --- Test Suite Setup ---

type AdvanceServiceTestSuite struct {
	suite.Suite
	mockAdvanceRepo *MockAdvanceRepository
	mockTxnRepo     *MockTransactionRepository
	mockAccountRepo *MockAccountRepository
	service         *services.AdvanceService

	cashAccount      *domain.Account
	liabilityAccount *domain.Account
}

func (suite *AdvanceServiceTestSuite) SetupTest() {
	suite.mockAdvanceRepo = new(MockAdvanceRepository)
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	accountSvc := services.NewAccountService(suite.mockAccountRepo, testDefaults())
	suite.service = services.NewAdvanceService(suite.mockAdvanceRepo, suite.mockTxnRepo, accountSvc, testDefaults())

	suite.cashAccount = &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "1101",
		AccountType:       domain.Asset,
		IsActive:          true,
		AllowTransactions: true,
	}
	suite.liabilityAccount = &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "2301",
		AccountType:       domain.Liability,
		IsActive:          true,
		AllowTransactions: true,
	}
}

// --- Test Cases ---

func (suite *AdvanceServiceTestSuite) TestIssueAdvance_Success() {
	ctx := context.Background()
	req := dto.IssueAdvanceRequest{
		CustomerID:    "cust-42",
		Amount:        decimal.NewFromInt(500),
		PaymentMethod: "cash",
	}

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1101").Return(suite.cashAccount, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "2301").Return(suite.liabilityAccount, nil).Once()
	suite.mockTxnRepo.On("NextTransactionNumber", ctx, "ADV", mock.AnythingOfType("time.Time")).Return("ADV-202503-00001", nil).Once()
	suite.mockTxnRepo.On("NextTransactionNumber", ctx, "ADV", mock.AnythingOfType("time.Time")).Return("ADV-202503-00002", nil).Once()
	suite.mockAdvanceRepo.On("CreateAdvance", ctx,
		mock.MatchedBy(func(adv domain.CustomerAdvance) bool {
			return adv.CustomerID == "cust-42" &&
				adv.Status == domain.AdvanceActive &&
				adv.Amount.Equal(decimal.NewFromInt(500)) &&
				adv.RemainingAmount.Equal(decimal.NewFromInt(500))
		}),
		mock.MatchedBy(func(txn domain.Transaction) bool {
			if txn.Status != domain.Posted || len(txn.Lines) != 2 {
				return false
			}
			return txn.Lines[0].AccountID == suite.cashAccount.AccountID &&
				txn.Lines[0].Debit.Equal(decimal.NewFromInt(500)) &&
				txn.Lines[1].AccountID == suite.liabilityAccount.AccountID &&
				txn.Lines[1].Credit.Equal(decimal.NewFromInt(500))
		}),
	).Return(nil).Once()

	advance, err := suite.service.IssueAdvance(ctx, req, "tester")

	suite.Require().NoError(err)
	suite.Require().NotNil(advance)
	suite.Equal("ADV-202503-00001", advance.AdvanceNumber)
	suite.NotEmpty(advance.TransactionID)
	suite.mockAdvanceRepo.AssertExpectations(suite.T())
}

func (suite *AdvanceServiceTestSuite) TestIssueAdvance_NonPositiveAmount() {
	ctx := context.Background()
	req := dto.IssueAdvanceRequest{
		CustomerID:    "cust-42",
		Amount:        decimal.Zero,
		PaymentMethod: "cash",
	}

	advance, err := suite.service.IssueAdvance(ctx, req, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrNonPositiveAmount)
	suite.Nil(advance)
	suite.mockAdvanceRepo.AssertNotCalled(suite.T(), "CreateAdvance")
}

func (suite *AdvanceServiceTestSuite) TestIssueAdvance_MissingDefaultAccount() {
	ctx := context.Background()
	req := dto.IssueAdvanceRequest{
		CustomerID:    "cust-42",
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "bank",
	}

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1102").Return(nil, apperrors.ErrNotFound).Once()

	advance, err := suite.service.IssueAdvance(ctx, req, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrDefaultAccountMissing)
	suite.Nil(advance)
}

func (suite *AdvanceServiceTestSuite) TestUseAmount_Success() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	receivable := &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "1201-cust-42",
		CustomerID:        "cust-42",
		IsActive:          true,
		AllowTransactions: true,
	}
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		AdvanceNumber:   "ADV-202503-00001",
		CustomerID:      "cust-42",
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(500),
		Status:          domain.AdvanceActive,
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "2301").Return(suite.liabilityAccount, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, "cust-42").Return(receivable, nil).Once()
	suite.mockTxnRepo.On("NextTransactionNumber", ctx, "PAY", mock.AnythingOfType("time.Time")).Return("PAY-202503-00008", nil).Once()
	suite.mockAdvanceRepo.On("ConsumeAmount", ctx, advanceID,
		mock.MatchedBy(func(u domain.AdvanceUsage) bool {
			return u.AdvanceID == advanceID && u.OrderID == "order-7" && u.Amount.Equal(decimal.NewFromInt(200))
		}),
		mock.MatchedBy(func(txn domain.Transaction) bool {
			if txn.Status != domain.Posted || len(txn.Lines) != 2 {
				return false
			}
			return txn.Lines[0].AccountID == suite.liabilityAccount.AccountID &&
				txn.Lines[0].Debit.Equal(decimal.NewFromInt(200)) &&
				txn.Lines[1].AccountID == receivable.AccountID &&
				txn.Lines[1].Credit.Equal(decimal.NewFromInt(200))
		}),
	).Return(decimal.NewFromInt(300), nil).Once()

	remaining, err := suite.service.UseAmount(ctx, advanceID, dto.UseAdvanceRequest{
		Amount:  decimal.NewFromInt(200),
		OrderID: "order-7",
	}, "tester")

	suite.Require().NoError(err)
	suite.True(remaining.Equal(decimal.NewFromInt(300)))
	suite.mockAdvanceRepo.AssertExpectations(suite.T())
}

func (suite *AdvanceServiceTestSuite) TestUseAmount_ExceedsRemaining() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		CustomerID:      "cust-42",
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(50),
		Status:          domain.AdvancePartiallyUsed,
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()

	remaining, err := suite.service.UseAmount(ctx, advanceID, dto.UseAdvanceRequest{
		Amount: decimal.NewFromInt(200),
	}, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrInsufficientAdvance)
	suite.True(remaining.IsZero())
	suite.mockAdvanceRepo.AssertNotCalled(suite.T(), "ConsumeAmount")
}

func (suite *AdvanceServiceTestSuite) TestUseAmount_NotConsumable() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.Zero,
		Status:          domain.AdvanceFullyUsed,
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()

	_, err := suite.service.UseAmount(ctx, advanceID, dto.UseAdvanceRequest{
		Amount: decimal.NewFromInt(10),
	}, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAdvanceNotConsumable)
}

func (suite *AdvanceServiceTestSuite) TestUseAmount_ConcurrentOverdrawSurfacesConflict() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	receivable := &domain.Account{
		AccountID:         uuid.NewString(),
		CustomerID:        "cust-42",
		IsActive:          true,
		AllowTransactions: true,
	}
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		CustomerID:      "cust-42",
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(300),
		Status:          domain.AdvancePartiallyUsed,
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "2301").Return(suite.liabilityAccount, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, "cust-42").Return(receivable, nil).Once()
	suite.mockTxnRepo.On("NextTransactionNumber", ctx, "PAY", mock.AnythingOfType("time.Time")).Return("PAY-202503-00009", nil).Once()
	suite.mockAdvanceRepo.On("ConsumeAmount", ctx, advanceID, mock.AnythingOfType("domain.AdvanceUsage"), mock.AnythingOfType("domain.Transaction")).
		Return(decimal.Zero, apperrors.ErrConflict).Once()

	_, err := suite.service.UseAmount(ctx, advanceID, dto.UseAdvanceRequest{
		Amount: decimal.NewFromInt(250),
	}, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *AdvanceServiceTestSuite) TestRefundAdvance_Success() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		AdvanceNumber:   "ADV-202503-00001",
		CustomerID:      "cust-42",
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(300),
		Status:          domain.AdvancePartiallyUsed,
		PaymentMethod:   "cash",
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "2301").Return(suite.liabilityAccount, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1101").Return(suite.cashAccount, nil).Once()
	suite.mockTxnRepo.On("NextTransactionNumber", ctx, "REF", mock.AnythingOfType("time.Time")).Return("REF-202503-00001", nil).Once()
	suite.mockAdvanceRepo.On("CloseAdvance", ctx, advanceID, domain.AdvanceRefunded,
		mock.MatchedBy(func(txn domain.Transaction) bool {
			if len(txn.Lines) != 2 {
				return false
			}
			return txn.Lines[0].Debit.Equal(decimal.NewFromInt(300)) &&
				txn.Lines[1].Credit.Equal(decimal.NewFromInt(300))
		}),
		"tester", mock.AnythingOfType("time.Time"),
	).Return(nil).Once()

	err := suite.service.RefundAdvance(ctx, advanceID, "tester")

	suite.Require().NoError(err)
	suite.mockAdvanceRepo.AssertExpectations(suite.T())
}

func (suite *AdvanceServiceTestSuite) TestCancelAdvance_AlreadyClosed() {
	ctx := context.Background()
	advanceID := uuid.NewString()
	advance := &domain.CustomerAdvance{
		AdvanceID:       advanceID,
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.Zero,
		Status:          domain.AdvanceRefunded,
	}

	suite.mockAdvanceRepo.On("FindAdvanceByID", ctx, advanceID).Return(advance, nil).Once()

	err := suite.service.CancelAdvance(ctx, advanceID, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAdvanceAlreadyClosed)
	suite.mockAdvanceRepo.AssertNotCalled(suite.T(), "CloseAdvance")
}

func TestAdvanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AdvanceServiceTestSuite))
}
