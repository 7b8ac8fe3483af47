package resources

import (
	"context"
	"fmt"
	"log/slog"

	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	GetBalance(ctx context.Context, userID int, resource Type) (int64, error)
	GetBalances(ctx context.Context, userID int) ([]Balance, error)
	Credit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64, capacity int64) error
	Debit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64) (bool, error)
}

// Ledger tracks per-player resource balances. Credits clamp to the player's
// storage capacity; debits are all-or-nothing and fail with a validation
// error when the balance is insufficient. Multi-resource mutations rely on
// the caller's transaction for atomicity.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	logger.Debug("Initializing resource ledger")

	return &Ledger{
		store:  store,
		logger: logger,
	}
}

func (l *Ledger) Balance(ctx context.Context, userID int, resource Type) (int64, error) {
	return l.store.GetBalance(ctx, userID, resource)
}

func (l *Ledger) Balances(ctx context.Context, userID int) ([]Balance, error) {
	return l.store.GetBalances(ctx, userID)
}

func (l *Ledger) Credit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64, capacity int64) error {
	if amount < 0 {
		return apperrors.Validationf("cannot credit negative amount %d of %s", amount, resource)
	}
	if amount == 0 {
		return nil
	}
	return l.store.Credit(ctx, tx, userID, resource, amount, capacity)
}

// CreditAll credits a bundle of resources, each clamped to capacity.
func (l *Ledger) CreditAll(ctx context.Context, tx *database.Tx, userID int, amounts map[Type]int64, capacity int64) error {
	for resource, amount := range amounts {
		if err := l.Credit(ctx, tx, userID, resource, amount, capacity); err != nil {
			return fmt.Errorf("failed to credit %s: %w", resource, err)
		}
	}
	return nil
}

func (l *Ledger) Debit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64) error {
	if amount < 0 {
		return apperrors.Validationf("cannot debit negative amount %d of %s", amount, resource)
	}
	if amount == 0 {
		return nil
	}

	ok, err := l.store.Debit(ctx, tx, userID, resource, amount)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validationf("insufficient %s balance for user %d", resource, userID)
	}
	return nil
}

// DebitAll debits a bundle of resources. The caller's transaction makes the
// bundle all-or-nothing; a partial debit must never survive a failure.
func (l *Ledger) DebitAll(ctx context.Context, tx *database.Tx, userID int, costs map[Type]int64) error {
	for resource, amount := range costs {
		if err := l.Debit(ctx, tx, userID, resource, amount); err != nil {
			return err
		}
	}
	return nil
}
