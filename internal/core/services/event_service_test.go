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
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/core/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
)

// --- Mock OrderRepository ---

type MockOrderRepository struct {
	mock.Mock
}

var _ portsrepo.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) SaveOrder(ctx context.Context, order domain.Order) (bool, error) {
	args := m.Called(ctx, order)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SavePayment(ctx context.Context, payment domain.Payment) (bool, error) {
	args := m.Called(ctx, payment)
	return args.Bool(0), args.Error(1)
}

// --- Mock PostingSvcFacade ---

type MockPostingService struct {
	mock.Mock
}

var _ portssvc.PostingSvcFacade = (*MockPostingService)(nil)

func (m *MockPostingService) CreateDraft(ctx context.Context, req dto.CreateTransactionRequest, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPostingService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPostingService) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockPostingService) ReplaceDraftLines(ctx context.Context, transactionID string, req dto.ReplaceLinesRequest, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPostingService) DeleteDraft(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func (m *MockPostingService) Post(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPostingService) CreateReversal(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPostingService) Cancel(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- Mock SummarySvcFacade ---

type MockSummaryService struct {
	mock.Mock
}

var _ portssvc.SummarySvcFacade = (*MockSummaryService)(nil)

func (m *MockSummaryService) GetSummary(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerFinancialSummary), args.Error(1)
}

func (m *MockSummaryService) Refresh(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerFinancialSummary), args.Error(1)
}

func (m *MockSummaryService) RefreshAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Test Suite Setup ---

type EventServiceTestSuite struct {
	suite.Suite
	mockTxnRepo     *MockTransactionRepository
	mockOrderRepo   *MockOrderRepository
	mockAccountRepo *MockAccountRepository
	mockPostingSvc  *MockPostingService
	mockSummarySvc  *MockSummaryService
	service         *services.EventService

	receivable *domain.Account
	revenue    *domain.Account
	cash       *domain.Account
}

func (suite *EventServiceTestSuite) SetupTest() {
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockOrderRepo = new(MockOrderRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockPostingSvc = new(MockPostingService)
	suite.mockSummarySvc = new(MockSummaryService)
	accountSvc := services.NewAccountService(suite.mockAccountRepo, testDefaults())
	suite.service = services.NewEventService(
		suite.mockTxnRepo,
		suite.mockOrderRepo,
		accountSvc,
		suite.mockPostingSvc,
		suite.mockSummarySvc,
		testDefaults(),
	)

	suite.receivable = &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "1201-cust-42",
		CustomerID:        "cust-42",
		IsActive:          true,
		AllowTransactions: true,
	}
	suite.revenue = &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "4101",
		AccountType:       domain.Revenue,
		IsActive:          true,
		AllowTransactions: true,
	}
	suite.cash = &domain.Account{
		AccountID:         uuid.NewString(),
		Code:              "1101",
		AccountType:       domain.Asset,
		IsActive:          true,
		AllowTransactions: true,
	}
}

func orderEvent() dto.OrderCreatedEvent {
	return dto.OrderCreatedEvent{
		OrderID:    "order-7",
		CustomerID: "cust-42",
		FinalPrice: decimal.NewFromInt(350),
		OrderDate:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func paymentEvent() dto.PaymentReceivedEvent {
	return dto.PaymentReceivedEvent{
		PaymentID:   "pay-3",
		CustomerID:  "cust-42",
		OrderID:     "order-7",
		Amount:      decimal.NewFromInt(150),
		Method:      "cash",
		PaymentDate: time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
	}
}

// --- Test Cases ---

func (suite *EventServiceTestSuite) TestOrderCreated_PostsReceivable() {
	ctx := context.Background()
	ev := orderEvent()
	draft := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft}
	posted := &domain.Transaction{TransactionID: draft.TransactionID, Status: domain.Posted, OrderID: ev.OrderID}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, ev.CustomerID).Return(suite.receivable, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "4101").Return(suite.revenue, nil).Once()
	suite.mockOrderRepo.On("SaveOrder", ctx, mock.MatchedBy(func(o domain.Order) bool {
		return o.OrderID == ev.OrderID && o.FinalPrice.Equal(ev.FinalPrice) && !o.CreatedAt.IsZero()
	})).Return(true, nil).Once()
	suite.mockPostingSvc.On("CreateDraft", ctx, mock.MatchedBy(func(req dto.CreateTransactionRequest) bool {
		if req.TransactionType != domain.TypeInvoice || req.OrderID != ev.OrderID || len(req.Lines) != 2 {
			return false
		}
		return req.Lines[0].AccountID == suite.receivable.AccountID &&
			req.Lines[0].Debit.Equal(ev.FinalPrice) &&
			req.Lines[1].AccountID == suite.revenue.AccountID &&
			req.Lines[1].Credit.Equal(ev.FinalPrice)
	}), "tester").Return(draft, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, draft.TransactionID, "tester").Return(posted, nil).Once()
	suite.mockSummarySvc.On("Refresh", ctx, ev.CustomerID).Return(&domain.CustomerFinancialSummary{}, nil).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal(domain.Posted, txn.Status)
	suite.mockPostingSvc.AssertExpectations(suite.T())
	suite.mockSummarySvc.AssertExpectations(suite.T())
}

func (suite *EventServiceTestSuite) TestOrderCreated_Redelivery() {
	ctx := context.Background()
	ev := orderEvent()
	existing := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Posted, OrderID: ev.OrderID}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(existing, nil).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(existing.TransactionID, txn.TransactionID)
	suite.mockOrderRepo.AssertNotCalled(suite.T(), "SaveOrder")
	suite.mockPostingSvc.AssertNotCalled(suite.T(), "CreateDraft")
}

func (suite *EventServiceTestSuite) TestOrderCreated_RedeliveryPostsStrandedDraft() {
	ctx := context.Background()
	ev := orderEvent()
	stranded := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft, OrderID: ev.OrderID}
	posted := &domain.Transaction{TransactionID: stranded.TransactionID, Status: domain.Posted, OrderID: ev.OrderID}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(stranded, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, stranded.TransactionID, "tester").Return(posted, nil).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(domain.Posted, txn.Status)
	suite.mockPostingSvc.AssertExpectations(suite.T())
	suite.mockOrderRepo.AssertNotCalled(suite.T(), "SaveOrder")
	suite.mockPostingSvc.AssertNotCalled(suite.T(), "CreateDraft")
}

func (suite *EventServiceTestSuite) TestOrderCreated_StrandedDraftLosesPostRace() {
	ctx := context.Background()
	ev := orderEvent()
	stranded := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft, OrderID: ev.OrderID}
	posted := &domain.Transaction{TransactionID: stranded.TransactionID, Status: domain.Posted, OrderID: ev.OrderID}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(stranded, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, stranded.TransactionID, "tester").Return(nil, services.ErrAlreadyPosted).Once()
	suite.mockPostingSvc.On("GetTransaction", ctx, stranded.TransactionID).Return(posted, nil).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(domain.Posted, txn.Status)
	suite.mockPostingSvc.AssertExpectations(suite.T())
}

func (suite *EventServiceTestSuite) TestOrderCreated_NonPositivePrice() {
	ctx := context.Background()
	ev := orderEvent()
	ev.FinalPrice = decimal.Zero

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(nil, apperrors.ErrNotFound).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.False(created)
	suite.Nil(txn)
}

func (suite *EventServiceTestSuite) TestOrderCreated_ConcurrentDuplicateCollapses() {
	ctx := context.Background()
	ev := orderEvent()
	winner := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Posted, OrderID: ev.OrderID}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, ev.CustomerID).Return(suite.receivable, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "4101").Return(suite.revenue, nil).Once()
	suite.mockOrderRepo.On("SaveOrder", ctx, mock.AnythingOfType("domain.Order")).Return(false, nil).Once()
	suite.mockPostingSvc.On("CreateDraft", ctx, mock.AnythingOfType("dto.CreateTransactionRequest"), "tester").Return(nil, apperrors.ErrDuplicate).Once()
	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(winner, nil).Once()
	suite.mockSummarySvc.On("Refresh", ctx, ev.CustomerID).Return(&domain.CustomerFinancialSummary{}, nil).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(winner.TransactionID, txn.TransactionID)
	suite.mockPostingSvc.AssertNotCalled(suite.T(), "Post")
}

func (suite *EventServiceTestSuite) TestOrderCreated_SummaryRefreshFailureTolerated() {
	ctx := context.Background()
	ev := orderEvent()
	draft := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft}
	posted := &domain.Transaction{TransactionID: draft.TransactionID, Status: domain.Posted}

	suite.mockTxnRepo.On("FindTransactionByOrderID", ctx, ev.OrderID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, ev.CustomerID).Return(suite.receivable, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "4101").Return(suite.revenue, nil).Once()
	suite.mockOrderRepo.On("SaveOrder", ctx, mock.AnythingOfType("domain.Order")).Return(true, nil).Once()
	suite.mockPostingSvc.On("CreateDraft", ctx, mock.AnythingOfType("dto.CreateTransactionRequest"), "tester").Return(draft, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, draft.TransactionID, "tester").Return(posted, nil).Once()
	suite.mockSummarySvc.On("Refresh", ctx, ev.CustomerID).Return(nil, apperrors.ErrInternal).Once()

	txn, created, err := suite.service.OrderCreated(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.True(created)
	suite.NotNil(txn)
}

func (suite *EventServiceTestSuite) TestPaymentReceived_PostsPayment() {
	ctx := context.Background()
	ev := paymentEvent()
	draft := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft}
	posted := &domain.Transaction{TransactionID: draft.TransactionID, Status: domain.Posted, PaymentID: ev.PaymentID}

	suite.mockTxnRepo.On("FindTransactionByPaymentID", ctx, ev.PaymentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1101").Return(suite.cash, nil).Once()
	suite.mockAccountRepo.On("FindAccountByCustomerID", ctx, ev.CustomerID).Return(suite.receivable, nil).Once()
	suite.mockOrderRepo.On("SavePayment", ctx, mock.MatchedBy(func(p domain.Payment) bool {
		return p.PaymentID == ev.PaymentID && p.Amount.Equal(ev.Amount) && !p.CreatedAt.IsZero()
	})).Return(true, nil).Once()
	suite.mockPostingSvc.On("CreateDraft", ctx, mock.MatchedBy(func(req dto.CreateTransactionRequest) bool {
		if req.TransactionType != domain.TypePayment || req.PaymentID != ev.PaymentID || len(req.Lines) != 2 {
			return false
		}
		return req.Lines[0].AccountID == suite.cash.AccountID &&
			req.Lines[0].Debit.Equal(ev.Amount) &&
			req.Lines[1].AccountID == suite.receivable.AccountID &&
			req.Lines[1].Credit.Equal(ev.Amount)
	}), "tester").Return(draft, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, draft.TransactionID, "tester").Return(posted, nil).Once()
	suite.mockSummarySvc.On("Refresh", ctx, ev.CustomerID).Return(&domain.CustomerFinancialSummary{}, nil).Once()

	txn, created, err := suite.service.PaymentReceived(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal(domain.Posted, txn.Status)
	suite.mockPostingSvc.AssertExpectations(suite.T())
}

func (suite *EventServiceTestSuite) TestPaymentReceived_Redelivery() {
	ctx := context.Background()
	ev := paymentEvent()
	existing := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Posted, PaymentID: ev.PaymentID}

	suite.mockTxnRepo.On("FindTransactionByPaymentID", ctx, ev.PaymentID).Return(existing, nil).Once()

	txn, created, err := suite.service.PaymentReceived(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(existing.TransactionID, txn.TransactionID)
	suite.mockOrderRepo.AssertNotCalled(suite.T(), "SavePayment")
}

func (suite *EventServiceTestSuite) TestPaymentReceived_RedeliveryPostsStrandedDraft() {
	ctx := context.Background()
	ev := paymentEvent()
	stranded := &domain.Transaction{TransactionID: uuid.NewString(), Status: domain.Draft, PaymentID: ev.PaymentID}
	posted := &domain.Transaction{TransactionID: stranded.TransactionID, Status: domain.Posted, PaymentID: ev.PaymentID}

	suite.mockTxnRepo.On("FindTransactionByPaymentID", ctx, ev.PaymentID).Return(stranded, nil).Once()
	suite.mockPostingSvc.On("Post", ctx, stranded.TransactionID, "tester").Return(posted, nil).Once()

	txn, created, err := suite.service.PaymentReceived(ctx, ev, "tester")

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(domain.Posted, txn.Status)
	suite.mockPostingSvc.AssertExpectations(suite.T())
	suite.mockOrderRepo.AssertNotCalled(suite.T(), "SavePayment")
}

func TestEventServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EventServiceTestSuite))
}
