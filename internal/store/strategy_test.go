package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var strategies = []struct {
	name string
	make func(db *gorm.DB) Store
}{
	{"bound", func(db *gorm.DB) Store { return NewBound(db) }},
	{"interpolated", func(db *gorm.DB) Store { return NewInterpolated(db) }},
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "market.db") + "?_busy_timeout=10000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func mustCreateUser(t *testing.T, s Store, name string) uint {
	t.Helper()
	id, err := s.CreateUser(context.Background(), name, "hash")
	require.NoError(t, err)
	return id
}

func mustGold(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateAndFindUser(t *testing.T) {
	for _, tc := range strategies {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := tc.make(openTestDB(t))

			id := mustCreateUser(t, s, "alice")

			byName, err := s.UserByName(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, id, byName.ID)
			assert.True(t, byName.Gold.Equal(mustGold("50.00")), "new users start with 50.00 gold, got %s", byName.Gold)

			byID, err := s.UserByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "alice", byID.Username)

			_, err = s.UserByName(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.CreateUser(ctx, "alice", "otherhash")
			assert.ErrorIs(t, err, ErrDuplicateUsername)
		})
	}
}

func TestAdjustGold(t *testing.T) {
	for _, tc := range strategies {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := tc.make(openTestDB(t))
			id := mustCreateUser(t, s, "alice")

			require.NoError(t, s.AdjustGold(ctx, id, mustGold("-20.00")))
			u, err := s.UserByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, u.Gold.Equal(mustGold("30.00")), "got %s", u.Gold)

			err = s.AdjustGold(ctx, id, mustGold("-40.00"))
			assert.ErrorIs(t, err, ErrInsufficientFunds)
			u, err = s.UserByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, u.Gold.Equal(mustGold("30.00")), "failed debit must not move gold, got %s", u.Gold)

			err = s.AdjustGold(ctx, 9999, mustGold("5.00"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTransactAllOrNothing(t *testing.T) {
	for _, tc := range strategies {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := tc.make(openTestDB(t))
			buyer := mustCreateUser(t, s, "buyer")
			seller := mustCreateUser(t, s, "seller")

			// Both adjustments visible together on success.
			err := s.Transact(ctx, func(tx Store) error {
				if err := tx.AdjustGold(ctx, buyer, mustGold("-10.00")); err != nil {
					return err
				}
				return tx.AdjustGold(ctx, seller, mustGold("10.00"))
			})
			require.NoError(t, err)

			b, _ := s.UserByID(ctx, buyer)
			sl, _ := s.UserByID(ctx, seller)
			assert.True(t, b.Gold.Equal(mustGold("40.00")), "got %s", b.Gold)
			assert.True(t, sl.Gold.Equal(mustGold("60.00")), "got %s", sl.Gold)

			// A failure partway leaves the pre-transaction state intact.
			boom := fmt.Errorf("boom")
			err = s.Transact(ctx, func(tx Store) error {
				if err := tx.AdjustGold(ctx, buyer, mustGold("-10.00")); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			b, _ = s.UserByID(ctx, buyer)
			assert.True(t, b.Gold.Equal(mustGold("40.00")), "rolled-back debit leaked: %s", b.Gold)
		})
	}
}

func TestItemLifecycle(t *testing.T) {
	for _, tc := range strategies {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := tc.make(openTestDB(t))
			alice := mustCreateUser(t, s, "alice")
			bob := mustCreateUser(t, s, "bob")

			names := []string{"Dagger", "Axe", "Cloak", "Bow", "Elixir"}
			for i, n := range names {
				owner := alice
				if i%2 == 1 {
					owner = bob
				}
				_, err := s.CreateItem(ctx, n, mustGold("5.00"), "img/"+n+".png", owner)
				require.NoError(t, err)
			}

			// Pages are ordered by name and restartable by page number.
			page1, err := s.ListPage(ctx, 1, 2)
			require.NoError(t, err)
			require.Len(t, page1, 2)
			assert.Equal(t, "Axe", page1[0].Name)
			assert.Equal(t, "Bow", page1[1].Name)
			assert.Equal(t, "bob", page1[0].OwnerName)

			page2, err := s.ListPage(ctx, 2, 2)
			require.NoError(t, err)
			require.Len(t, page2, 2)
			assert.Equal(t, "Cloak", page2[0].Name)
			assert.Equal(t, "Dagger", page2[1].Name)

			page3, err := s.ListPage(ctx, 3, 2)
			require.NoError(t, err)
			require.Len(t, page3, 1)
			assert.Equal(t, "Elixir", page3[0].Name)

			id, err := s.CreateItem(ctx, "Sword", mustGold("20.00"), "img/sword.png", alice)
			require.NoError(t, err)

			item, err := s.ItemByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, alice, item.UserID)
			assert.True(t, item.Price.Equal(mustGold("20.00")))

			require.NoError(t, s.DeleteItem(ctx, id))
			assert.ErrorIs(t, s.DeleteItem(ctx, id), ErrNotFound)
			_, err = s.ItemByID(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

const injectionPayload = "nosuch' OR '1'='1"

func TestBoundResistsInjection(t *testing.T) {
	ctx := context.Background()
	s := NewBound(openTestDB(t))
	mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "bob")

	// The payload is treated as plain data: no row matches it.
	_, err := s.UserByName(ctx, injectionPayload)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInterpolatedLeaksRowsUnderInjection(t *testing.T) {
	ctx := context.Background()
	s := NewInterpolated(openTestDB(t))
	mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "bob")

	// Known-vulnerable contrast: the spliced predicate becomes
	// username = 'nosuch' OR '1'='1' and matches every row.
	u, err := s.UserByName(ctx, injectionPayload)
	require.NoError(t, err, "interpolated lookup should have been subverted")
	assert.NotZero(t, u.ID, "injection should return a row it must not")
}

// stackedPayload closes the VALUES list and smuggles in an UPDATE against an
// unrelated row.
const stackedPayload = "pommel', 0, 'img/x.png', 1); UPDATE users SET gold = 0 WHERE username = 'alice'; --"

func TestBoundKeepsStackedPayloadAsData(t *testing.T) {
	ctx := context.Background()
	s := NewBound(openTestDB(t))
	alice := mustCreateUser(t, s, "alice")

	id, err := s.CreateItem(ctx, stackedPayload, mustGold("1.00"), "img/real.png", alice)
	require.NoError(t, err)

	item, err := s.ItemByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stackedPayload, item.Name, "payload must be stored verbatim, not executed")

	u, err := s.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.True(t, u.Gold.Equal(mustGold("50.00")), "unrelated row corrupted: %s", u.Gold)
}

func TestInterpolatedExecutesStackedPayload(t *testing.T) {
	ctx := context.Background()
	s := NewInterpolated(openTestDB(t))
	alice := mustCreateUser(t, s, "alice")

	_, err := s.CreateItem(ctx, stackedPayload, mustGold("1.00"), "img/real.png", alice)
	require.NoError(t, err)

	// Known-vulnerable contrast: the smuggled UPDATE ran and zeroed alice.
	u, err := s.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.True(t, u.Gold.Equal(decimal.Zero), "expected corrupted balance, got %s", u.Gold)
}
