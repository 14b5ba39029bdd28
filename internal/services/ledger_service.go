package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wallet/internal/db"
	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/store"
	"wallet/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
)

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	SetTransferReference(ctx context.Context, tx store.Tx, transactionID, siblingID string, metadata []byte) error
	SumByType(ctx context.Context, q store.Getter, userID, txType string) (int64, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// LedgerService owns every balance-affecting write. All mutations run in
// a single serializable transaction: ledger row, materialized balance and
// domain events commit together or not at all.
type LedgerService struct {
	txRunner     db.TxRunner
	q            store.Getter
	users        UserStore
	transactions TransactionStore
	events       EventStore
	hub          BalanceHub
}

func NewLedgerService(txRunner db.TxRunner, q store.Getter, users UserStore, transactions TransactionStore, events EventStore, hub BalanceHub) *LedgerService {
	return &LedgerService{
		txRunner:     txRunner,
		q:            q,
		users:        users,
		transactions: transactions,
		events:       events,
		hub:          hub,
	}
}

type ledgerEntry struct {
	transactionID string
	balanceBefore int64
	balanceAfter  int64
}

// recordEntry writes one ledger row against a user whose row lock the
// caller already holds, updates the materialized balance, and emits
// TransactionCreated plus BalanceUpdated. Debits are refused when the
// locked balance cannot cover them.
func (s *LedgerService) recordEntry(ctx context.Context, tx *sqlx.Tx, user models.User, actorID, txType string, amountMinor int64, description string, ref models.Reference, metadata []byte) (ledgerEntry, error) {
	balanceBefore := user.Balance
	var balanceAfter int64
	switch txType {
	case models.TransactionTypeDebit:
		if balanceBefore < amountMinor {
			return ledgerEntry{}, ErrInsufficientFunds
		}
		balanceAfter = balanceBefore - amountMinor
	default:
		balanceAfter = balanceBefore + amountMinor
	}
	transactionID := uuid.NewString()
	if err := s.transactions.Create(ctx, tx, store.TransactionInput{
		ID:            transactionID,
		UserID:        user.ID,
		CreatedBy:     actorID,
		Type:          txType,
		Amount:        amountMinor,
		Description:   description,
		Reference:     ref,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Metadata:      metadata,
	}); err != nil {
		return ledgerEntry{}, err
	}
	if err := s.users.UpdateBalance(ctx, tx, user.ID, balanceAfter); err != nil {
		return ledgerEntry{}, err
	}
	if err := appendEvent(ctx, tx, s.events, models.AggregateTransaction, transactionID, EventTransactionCreated, TransactionCreatedPayload{
		TransactionID: transactionID,
		UserID:        user.ID,
		Type:          txType,
		Amount:        money.FormatMinor(amountMinor),
		Description:   description,
		ReferenceType: string(ref.Kind),
		ReferenceID:   ref.ID,
		BalanceBefore: money.FormatMinor(balanceBefore),
		BalanceAfter:  money.FormatMinor(balanceAfter),
		BalanceChange: money.FormatMinor(balanceAfter - balanceBefore),
		CreatedBy:     actorID,
		CreatedAt:     time.Now().UTC(),
	}, nil); err != nil {
		return ledgerEntry{}, err
	}
	if err := appendEvent(ctx, tx, s.events, models.AggregateUser, user.ID, EventBalanceUpdated, BalanceUpdatedPayload{
		UserID:        user.ID,
		BalanceBefore: money.FormatMinor(balanceBefore),
		BalanceAfter:  money.FormatMinor(balanceAfter),
		TransactionID: transactionID,
	}, nil); err != nil {
		return ledgerEntry{}, err
	}
	return ledgerEntry{
		transactionID: transactionID,
		balanceBefore: balanceBefore,
		balanceAfter:  balanceAfter,
	}, nil
}

func (s *LedgerService) broadcast(userID string, balanceMinor int64) {
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		UserID:  userID,
		Balance: money.FormatMinor(balanceMinor),
	})
}

// AddMoney credits a user's wallet outside the order flow (manual top-up
// or adjustment by an admin).
func (s *LedgerService) AddMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error) {
	if amountMinor <= 0 {
		return "", ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet credit"
	}
	var entry ledgerEntry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		entry, err = s.recordEntry(ctx, tx, user, actorID, models.TransactionTypeCredit, amountMinor, description, models.Reference{}, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	s.broadcast(userID, entry.balanceAfter)
	return entry.transactionID, nil
}

// RemoveMoney debits a user's wallet outside the order flow.
func (s *LedgerService) RemoveMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error) {
	if amountMinor <= 0 {
		return "", ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet debit"
	}
	var entry ledgerEntry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		entry, err = s.recordEntry(ctx, tx, user, actorID, models.TransactionTypeDebit, amountMinor, description, models.Reference{}, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	s.broadcast(userID, entry.balanceAfter)
	return entry.transactionID, nil
}

type TransferResult struct {
	DebitTransactionID  string
	CreditTransactionID string
	FromBalanceAfter    int64
	ToBalanceAfter      int64
}

// TransferMoney moves funds between two wallets: a debit on the sender, a
// credit on the receiver, cross-referenced to each other. Both legs and
// their events are one atomic transaction.
func (s *LedgerService) TransferMoney(ctx context.Context, fromUserID, toUserID, actorID string, amountMinor int64, description string) (TransferResult, error) {
	if amountMinor <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if fromUserID == toUserID {
		return TransferResult{}, ErrSelfTransfer
	}
	if description == "" {
		description = "Wallet transfer"
	}
	var result TransferResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		fromUser, toUser, err := lockTwoUsers(ctx, tx, s.users, fromUserID, toUserID)
		if err != nil {
			return err
		}
		debitMeta := mustJSON(map[string]string{"transfer_to": toUserID})
		debit, err := s.recordEntry(ctx, tx, fromUser, actorID, models.TransactionTypeDebit, amountMinor, description, models.Reference{}, debitMeta)
		if err != nil {
			return err
		}
		creditMeta := mustJSON(map[string]string{"transfer_from": fromUserID})
		credit, err := s.recordEntry(ctx, tx, toUser, actorID, models.TransactionTypeCredit, amountMinor, description, models.Reference{}, creditMeta)
		if err != nil {
			return err
		}
		if err := s.transactions.SetTransferReference(ctx, tx, debit.transactionID, credit.transactionID, nil); err != nil {
			return err
		}
		if err := s.transactions.SetTransferReference(ctx, tx, credit.transactionID, debit.transactionID, nil); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateTransaction, debit.transactionID, EventMoneyTransferred, MoneyTransferredPayload{
			FromUserID:          fromUserID,
			ToUserID:            toUserID,
			Amount:              money.FormatMinor(amountMinor),
			DebitTransactionID:  debit.transactionID,
			CreditTransactionID: credit.transactionID,
		}, nil); err != nil {
			return err
		}
		result = TransferResult{
			DebitTransactionID:  debit.transactionID,
			CreditTransactionID: credit.transactionID,
			FromBalanceAfter:    debit.balanceAfter,
			ToBalanceAfter:      credit.balanceAfter,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.broadcast(fromUserID, result.FromBalanceAfter)
	s.broadcast(toUserID, result.ToBalanceAfter)
	return result, nil
}

// Balance derives the balance from the ledger: credits minus debits.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	credits, err := s.transactions.SumByType(ctx, s.q, userID, models.TransactionTypeCredit)
	if err != nil {
		return 0, err
	}
	debits, err := s.transactions.SumByType(ctx, s.q, userID, models.TransactionTypeDebit)
	if err != nil {
		return 0, err
	}
	return credits - debits, nil
}

type BalanceSummary struct {
	UserID     string `json:"user_id"`
	Computed   int64  `json:"computed_balance"`
	Cached     int64  `json:"cached_balance"`
	Consistent bool   `json:"consistent"`
}

// Reconcile compares the derived balance against the materialized column
// on the user row. A mismatch means a write bypassed the ledger path.
func (s *LedgerService) Reconcile(ctx context.Context, userID string) (BalanceSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return BalanceSummary{}, err
	}
	computed, err := s.Balance(ctx, userID)
	if err != nil {
		return BalanceSummary{}, err
	}
	return BalanceSummary{
		UserID:     userID,
		Computed:   computed,
		Cached:     user.Balance,
		Consistent: computed == user.Balance,
	}, nil
}

// lockTwoUsers takes both row locks in ascending ID order so concurrent
// transfers between the same pair cannot deadlock.
func lockTwoUsers(ctx context.Context, tx store.Getter, users UserStore, firstID, secondID string) (models.User, models.User, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	leftUser, err := users.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	rightUser, err := users.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	if firstID == leftID {
		return leftUser, rightUser, nil
	}
	return rightUser, leftUser, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func mustJSON(value any) []byte {
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return data
}
