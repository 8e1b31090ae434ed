package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SaltyJahmale/week5/internal/images"
	"github.com/SaltyJahmale/week5/internal/models"
	"github.com/SaltyJahmale/week5/internal/store"
)

// dummyHash is compared against when a username does not exist, so a failed
// login costs the same whether or not the account is real.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// goldGrant is the fixed amount the grant operation injects.
var goldGrant = decimal.RequireFromString("5.00")

// Identity is the resolved acting user handed in by the session boundary.
// The safe variant derives it from a verified token; the unsafe variant
// accepts whatever the request claims, by design.
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// Options configure one engine variant.
type Options struct {
	// PageSize is the dashboard page length. Zero means the default of 4.
	PageSize int
	// ValidateUploads gates the image extension check. Only the bound
	// variant turns it on; the interpolated variant omits the check as part
	// of the vulnerability demonstration.
	ValidateUploads bool
}

// Engine executes the marketplace operations against whichever
// query-construction strategy it was built with.
type Engine struct {
	store           store.Store
	images          *images.Dir
	log             *zap.Logger
	pageSize        int
	validateUploads bool
}

func New(st store.Store, imgs *images.Dir, log *zap.Logger, opts Options) *Engine {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 4
	}
	return &Engine{
		store:           st,
		images:          imgs,
		log:             log,
		pageSize:        pageSize,
		validateUploads: opts.ValidateUploads,
	}
}

func (e *Engine) unavailable(op string, err error) error {
	e.log.Error("store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Register creates an account with the starting gold balance.
func (e *Engine) Register(ctx context.Context, username, password string) (uint, error) {
	if l := utf8.RuneCountInString(username); l < 4 || l > 20 {
		return 0, ErrInvalidInput
	}
	if l := len(password); l < 6 || l > 80 {
		return 0, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, errors.Wrap(err, "hash password")
	}

	id, err := e.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return 0, ErrDuplicateUsername
		}
		return 0, e.unavailable("register", err)
	}
	e.log.Info("user registered", zap.Uint("user_id", id), zap.String("username", username))
	return id, nil
}

// Authenticate verifies the supplied password against the stored credential.
// Unknown usernames and wrong passwords are indistinguishable by error and
// by timing.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	u, err := e.store.UserByName(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, e.unavailable("authenticate", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}

// Buy moves the item's price from buyer to seller and removes the item, all
// inside one store transaction. When two buys race on the same item exactly
// one commits; the loser's delete finds nothing and the whole attempt rolls
// back as ErrItemNotFound.
func (e *Engine) Buy(ctx context.Context, itemID, buyerID uint) error {
	item, err := e.store.ItemByID(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return e.unavailable("buy", err)
	}

	buyer, err := e.store.UserByID(ctx, buyerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.unavailable("buy", err)
	}
	seller, err := e.store.UserByID(ctx, item.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.unavailable("buy", err)
	}

	// A balance exactly equal to the price does not clear the purchase.
	if buyer.Gold.LessThanOrEqual(item.Price) {
		return ErrInsufficientFunds
	}

	err = e.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.AdjustGold(ctx, buyer.ID, item.Price.Neg()); err != nil {
			return err
		}
		if err := tx.AdjustGold(ctx, seller.ID, item.Price); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, item.ID)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrNotFound):
		return ErrItemNotFound
	default:
		return e.unavailable("buy", err)
	}

	e.log.Info("purchase completed",
		zap.Uint("item_id", item.ID),
		zap.Uint("buyer_id", buyer.ID),
		zap.Uint("seller_id", seller.ID),
		zap.String("price", item.Price.String()),
	)
	return nil
}

// ListPage returns one dashboard page, ordered by item name. Pages are
// 1-based; anything below 1 is clamped.
func (e *Engine) ListPage(ctx context.Context, page int) ([]models.ItemListing, error) {
	if page < 1 {
		page = 1
	}
	rows, err := e.store.ListPage(ctx, page, e.pageSize)
	if err != nil {
		return nil, e.unavailable("list", err)
	}
	return rows, nil
}

// CreateListing stores the uploaded image and inserts the listing row. If the
// insert fails the file may be left behind on disk; the sweep job reclaims it.
func (e *Engine) CreateListing(ctx context.Context, name string, price decimal.Decimal, filename string, image []byte, ownerID uint) (uint, error) {
	if l := utf8.RuneCountInString(name); l < 1 || l > 50 {
		return 0, ErrInvalidInput
	}
	if price.IsNegative() {
		return 0, ErrInvalidInput
	}
	if e.validateUploads && !images.Allowed(filename) {
		return 0, ErrInvalidImageType
	}

	ref, err := e.images.Save(filename, image)
	if err != nil {
		return 0, errors.Wrap(err, "save image")
	}
	id, err := e.store.CreateItem(ctx, name, price, ref, ownerID)
	if err != nil {
		return 0, e.unavailable("create listing", err)
	}
	e.log.Info("listing created", zap.Uint("item_id", id), zap.Uint("owner_id", ownerID))
	return id, nil
}

// GrantGold injects the fixed grant into the user's balance and returns the
// new total.
func (e *Engine) GrantGold(ctx context.Context, userID uint) (decimal.Decimal, error) {
	if err := e.store.AdjustGold(ctx, userID, goldGrant); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, e.unavailable("grant gold", err)
	}
	u, err := e.store.UserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, e.unavailable("grant gold", err)
	}
	return u.Gold, nil
}

// GenerateItem lists a synthetic item for the owner: a random pre-existing
// asset and a random whole-gold price between 1 and 5.
func (e *Engine) GenerateItem(ctx context.Context, ownerID uint) (uint, error) {
	if _, err := e.store.UserByID(ctx, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, e.unavailable("generate item", err)
	}

	name, data, err := e.images.PickRandom()
	if err != nil {
		return 0, errors.Wrap(err, "pick asset")
	}
	ref, err := e.images.Save(name, data)
	if err != nil {
		return 0, errors.Wrap(err, "save image")
	}

	price := decimal.NewFromInt(int64(1 + rand.Intn(5)))
	id, err := e.store.CreateItem(ctx, "Generated", price, ref, ownerID)
	if err != nil {
		return 0, e.unavailable("generate item", err)
	}
	return id, nil
}

// Account returns the user's profile view: username and current balance.
func (e *Engine) Account(ctx context.Context, userID uint) (*models.User, error) {
	u, err := e.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, e.unavailable("account", err)
	}
	return u, nil
}
