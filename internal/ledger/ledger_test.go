package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	ledger *InMemory
	ctx    context.Context
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = NewInMemory()
	s.ctx = context.Background()
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestDepositAndBalance() {
	s.Run("deposits accumulate", func() {
		s.Require().NoError(s.ledger.Deposit(s.ctx, "alice", 100))
		s.Require().NoError(s.ledger.Deposit(s.ctx, "alice", 50))

		balance, err := s.ledger.Balance(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(domain.Amount(150), balance)
	})

	s.Run("unknown account reports zero", func() {
		balance, err := s.ledger.Balance(s.ctx, "nobody")
		s.Require().NoError(err)
		s.Equal(domain.Amount(0), balance)
	})

	s.Run("rejects empty account", func() {
		s.Require().Error(s.ledger.Deposit(s.ctx, "", 10))
	})
}

func (s *LedgerSuite) TestTransfer() {
	s.Run("moves funds between accounts", func() {
		s.Require().NoError(s.ledger.Deposit(s.ctx, "alice", 100))
		s.Require().NoError(s.ledger.Transfer(s.ctx, "alice", "bob", 60))

		aliceBalance, _ := s.ledger.Balance(s.ctx, "alice")
		bobBalance, _ := s.ledger.Balance(s.ctx, "bob")
		s.Equal(domain.Amount(40), aliceBalance)
		s.Equal(domain.Amount(60), bobBalance)
	})

	s.Run("fails on insufficient balance leaving both sides untouched", func() {
		s.Require().NoError(s.ledger.Deposit(s.ctx, "carol", 30))

		err := s.ledger.Transfer(s.ctx, "carol", "dave", 31)
		s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)

		carolBalance, _ := s.ledger.Balance(s.ctx, "carol")
		daveBalance, _ := s.ledger.Balance(s.ctx, "dave")
		s.Equal(domain.Amount(30), carolBalance)
		s.Equal(domain.Amount(0), daveBalance)
	})

	s.Run("zero amount is a no-op", func() {
		s.Require().NoError(s.ledger.Transfer(s.ctx, "empty", "bob", 0))
	})
}
