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

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepository = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCustomerID(ctx context.Context, customerID string) (*domain.Account, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListChildren(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	args := m.Called(ctx, parentAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, actor string, now time.Time) error {
	args := m.Called(ctx, accountID, actor, now)
	return args.Error(0)
}

func (m *MockAccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) RecomputedBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) RefreshCachedBalances(ctx context.Context, accountIDs []string, actor string, now time.Time) error {
	args := m.Called(ctx, accountIDs, actor, now)
	return args.Error(0)
}

func testDefaults() domain.DefaultAccounts {
	return domain.DefaultAccounts{
		CashCode:             "1101",
		BankCode:             "1102",
		ReceivableRootCode:   "1201",
		RevenueCode:          "4101",
		AdvanceLiabilityCode: "2301",
	}
}

// --- Test Suite Setup ---

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockAccountRepository
	service  *services.AccountService
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.service = services.NewAccountService(suite.mockRepo, testDefaults())
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	actor := uuid.NewString()
	req := dto.CreateAccountRequest{
		Code:           "1105",
		Name:           "Petty Cash",
		AccountType:    domain.Asset,
		OpeningBalance: decimal.NewFromInt(250),
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	created, err := suite.service.CreateAccount(ctx, req, actor)

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.NotEmpty(created.AccountID)
	suite.Equal("1105", created.Code)
	suite.Equal(req.Name, created.Name)
	suite.Equal(domain.Asset, created.AccountType)
	suite.True(created.IsActive)
	suite.True(created.AllowTransactions)
	suite.True(created.CurrentBalance.Equal(req.OpeningBalance))
	suite.Equal(actor, created.CreatedBy)
	suite.WithinDuration(time.Now(), created.CreatedAt, time.Second)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_TrimsCode() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "  1105  ",
		Name:        "Petty Cash",
		AccountType: domain.Asset,
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Code == "1105"
	})).Return(nil).Once()

	created, err := suite.service.CreateAccount(ctx, req, "tester")

	suite.Require().NoError(err)
	suite.Equal("1105", created.Code)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_EmptyCode() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "   ",
		Name:        "Nameless",
		AccountType: domain.Asset,
	}

	created, err := suite.service.CreateAccount(ctx, req, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(created)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount")
}

func (suite *AccountServiceTestSuite) TestCreateAccount_UnknownCategory() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "9999",
		Name:        "Mystery",
		AccountType: domain.AccountCategory("MYSTERY"),
	}

	created, err := suite.service.CreateAccount(ctx, req, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrUnknownCategory)
	suite.Nil(created)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_DuplicateCode() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "1105",
		Name:        "Petty Cash",
		AccountType: domain.Asset,
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()

	created, err := suite.service.CreateAccount(ctx, req, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.Nil(created)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_ReparentRejectsCycle() {
	ctx := context.Background()
	rootID := uuid.NewString()
	childID := uuid.NewString()

	root := &domain.Account{AccountID: rootID, Code: "1000", Name: "Assets"}
	child := &domain.Account{AccountID: childID, Code: "1100", Name: "Cash", ParentAccountID: rootID}

	suite.mockRepo.On("FindAccountByID", ctx, rootID).Return(root, nil)
	suite.mockRepo.On("FindAccountByID", ctx, childID).Return(child, nil)

	newParent := childID
	updated, err := suite.service.UpdateAccount(ctx, rootID, dto.UpdateAccountRequest{ParentAccountID: &newParent}, "tester")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAccountCycle)
	suite.Nil(updated)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateAccount")
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_Success() {
	ctx := context.Background()
	accountID := uuid.NewString()
	existing := &domain.Account{AccountID: accountID, Code: "1100", Name: "Cash", IsActive: true}

	suite.mockRepo.On("FindAccountByID", ctx, accountID).Return(existing, nil).Once()
	suite.mockRepo.On("UpdateAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Name == "Cash on Hand"
	})).Return(nil).Once()

	newName := "Cash on Hand"
	updated, err := suite.service.UpdateAccount(ctx, accountID, dto.UpdateAccountRequest{Name: &newName}, "tester")

	suite.Require().NoError(err)
	suite.Equal("Cash on Hand", updated.Name)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestGetBalance_Cached() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CurrentBalance: decimal.NewFromInt(420)}

	suite.mockRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()

	balance, err := suite.service.GetBalance(ctx, accountID, false)

	suite.Require().NoError(err)
	suite.True(balance.Equal(decimal.NewFromInt(420)))
	suite.mockRepo.AssertNotCalled(suite.T(), "RecomputedBalance")
}

func (suite *AccountServiceTestSuite) TestGetBalance_Recompute() {
	ctx := context.Background()
	accountID := uuid.NewString()

	suite.mockRepo.On("RecomputedBalance", ctx, accountID).Return(decimal.NewFromInt(415), nil).Once()

	balance, err := suite.service.GetBalance(ctx, accountID, true)

	suite.Require().NoError(err)
	suite.True(balance.Equal(decimal.NewFromInt(415)))
	suite.mockRepo.AssertNotCalled(suite.T(), "FindAccountByID")
}

func (suite *AccountServiceTestSuite) TestFullPathAndLevel() {
	ctx := context.Background()
	rootID := uuid.NewString()
	midID := uuid.NewString()
	leafID := uuid.NewString()

	suite.mockRepo.On("FindAccountByID", ctx, rootID).Return(&domain.Account{AccountID: rootID, Name: "Assets"}, nil)
	suite.mockRepo.On("FindAccountByID", ctx, midID).Return(&domain.Account{AccountID: midID, Name: "Receivables", ParentAccountID: rootID}, nil)
	suite.mockRepo.On("FindAccountByID", ctx, leafID).Return(&domain.Account{AccountID: leafID, Name: "Customer 42", ParentAccountID: midID}, nil)

	path, err := suite.service.FullPath(ctx, leafID)
	suite.Require().NoError(err)
	suite.Equal("Assets / Receivables / Customer 42", path)

	level, err := suite.service.Level(ctx, leafID)
	suite.Require().NoError(err)
	suite.Equal(2, level)

	rootLevel, err := suite.service.Level(ctx, rootID)
	suite.Require().NoError(err)
	suite.Equal(0, rootLevel)
}

func (suite *AccountServiceTestSuite) TestListChildren() {
	ctx := context.Background()
	parentID := uuid.NewString()
	parent := &domain.Account{AccountID: parentID, Code: "1200", Name: "Receivables"}
	children := []domain.Account{
		{AccountID: uuid.NewString(), ParentAccountID: parentID, Code: "1201"},
		{AccountID: uuid.NewString(), ParentAccountID: parentID, Code: "1202"},
	}

	suite.mockRepo.On("FindAccountByID", ctx, parentID).Return(parent, nil).Once()
	suite.mockRepo.On("ListChildren", ctx, parentID).Return(children, nil).Once()

	got, err := suite.service.ListChildren(ctx, parentID)

	suite.Require().NoError(err)
	suite.Require().Len(got, 2)
	suite.Equal("1201", got[0].Code)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestListChildren_UnknownParent() {
	ctx := context.Background()
	parentID := uuid.NewString()

	suite.mockRepo.On("FindAccountByID", ctx, parentID).Return(nil, apperrors.ErrNotFound).Once()

	got, err := suite.service.ListChildren(ctx, parentID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
	suite.mockRepo.AssertNotCalled(suite.T(), "ListChildren")
}

func (suite *AccountServiceTestSuite) TestGetOrCreateCustomerAccount_Existing() {
	ctx := context.Background()
	customerID := uuid.NewString()
	existing := &domain.Account{AccountID: uuid.NewString(), CustomerID: customerID}

	suite.mockRepo.On("FindAccountByCustomerID", ctx, customerID).Return(existing, nil).Once()

	account, err := suite.service.GetOrCreateCustomerAccount(ctx, customerID, "tester")

	suite.Require().NoError(err)
	suite.Equal(existing.AccountID, account.AccountID)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount")
}

func (suite *AccountServiceTestSuite) TestGetOrCreateCustomerAccount_CreatesUnderRoot() {
	ctx := context.Background()
	customerID := "cust-42"
	rootID := uuid.NewString()
	root := &domain.Account{AccountID: rootID, Code: "1201", Name: "Receivables"}

	suite.mockRepo.On("FindAccountByCustomerID", ctx, customerID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("FindAccountByCode", ctx, "1201").Return(root, nil).Once()
	suite.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Code == "1201-cust-42" && a.CustomerID == customerID && a.ParentAccountID == rootID && a.AccountType == domain.Asset
	})).Return(nil).Once()

	account, err := suite.service.GetOrCreateCustomerAccount(ctx, customerID, "tester")

	suite.Require().NoError(err)
	suite.Equal("1201-cust-42", account.Code)
	suite.True(account.AllowTransactions)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestGetOrCreateCustomerAccount_LosesCreationRace() {
	ctx := context.Background()
	customerID := "cust-42"
	winner := &domain.Account{AccountID: uuid.NewString(), Code: "1201-cust-42", CustomerID: customerID}

	suite.mockRepo.On("FindAccountByCustomerID", ctx, customerID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("FindAccountByCode", ctx, "1201").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()
	suite.mockRepo.On("FindAccountByCustomerID", ctx, customerID).Return(winner, nil).Once()

	account, err := suite.service.GetOrCreateCustomerAccount(ctx, customerID, "tester")

	suite.Require().NoError(err)
	suite.Equal(winner.AccountID, account.AccountID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
