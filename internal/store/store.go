package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/SaltyJahmale/week5/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Every user starts with the same grubstake.
var defaultGold = decimal.RequireFromString("50.00")

// Store is the logical operation contract shared by both query-construction
// strategies. The ledger engine only ever talks to this interface, so the
// same engine code runs against the bound and the interpolated variant.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (uint, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	// AdjustGold applies delta to the user's balance. It fails with
	// ErrInsufficientFunds when the result would be negative, and is safe to
	// call twice inside one Transact (debit one user, credit another).
	AdjustGold(ctx context.Context, id uint, delta decimal.Decimal) error

	CreateItem(ctx context.Context, name string, price decimal.Decimal, imageRef string, ownerID uint) (uint, error)
	ItemByID(ctx context.Context, id uint) (*models.Item, error)
	ListPage(ctx context.Context, page, pageSize int) ([]models.ItemListing, error)
	DeleteItem(ctx context.Context, id uint) error

	// Transact runs fn against a transaction-scoped view of the same store.
	// Everything fn does becomes visible together or not at all.
	Transact(ctx context.Context, fn func(Store) error) error
}
