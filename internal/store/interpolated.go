package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/models"
)

// Interpolated renders every argument straight into the query text before
// execution. Nothing escapes anything: any value carrying SQL metacharacters
// can change which rows are read or written, or smuggle in extra statements.
// This variant exists to be attacked by the test suite. Do not "fix" it, and
// do not point it at the safe schema.
type Interpolated struct {
	db *gorm.DB
}

func NewInterpolated(db *gorm.DB) *Interpolated {
	return &Interpolated{db: db}
}

func (s *Interpolated) CreateUser(ctx context.Context, username, passwordHash string) (uint, error) {
	var count int64
	check := fmt.Sprintf("SELECT count(*) FROM users WHERE username = '%s'", username)
	if err := s.db.WithContext(ctx).Raw(check).Scan(&count).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateUser")
	}
	if count > 0 {
		return 0, ErrDuplicateUsername
	}

	q := fmt.Sprintf(
		"INSERT INTO users (created_at, updated_at, username, password, gold) VALUES (CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, '%s', '%s', %s)",
		username, passwordHash, defaultGold.String(),
	)
	if err := s.db.WithContext(ctx).Exec(q).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateUser")
	}

	var id uint
	lookup := fmt.Sprintf("SELECT id FROM users WHERE username = '%s' ORDER BY id DESC LIMIT 1", username)
	if err := s.db.WithContext(ctx).Raw(lookup).Scan(&id).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateUser")
	}
	return id, nil
}

func (s *Interpolated) UserByName(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	q := fmt.Sprintf("SELECT * FROM users WHERE username = '%s'", username)
	res := s.db.WithContext(ctx).Raw(q).Scan(&u)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "store: UserByName")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *Interpolated) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	q := fmt.Sprintf("SELECT * FROM users WHERE id = %d", id)
	res := s.db.WithContext(ctx).Raw(q).Scan(&u)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "store: UserByID")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *Interpolated) AdjustGold(ctx context.Context, id uint, delta decimal.Decimal) error {
	q := fmt.Sprintf("UPDATE users SET gold = gold + %s WHERE id = %d AND gold + %s >= 0",
		delta.String(), id, delta.String())
	res := s.db.WithContext(ctx).Exec(q)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: AdjustGold")
	}
	if res.RowsAffected == 0 {
		if _, err := s.UserByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Interpolated) CreateItem(ctx context.Context, name string, price decimal.Decimal, imageRef string, ownerID uint) (uint, error) {
	q := fmt.Sprintf(
		"INSERT INTO items (created_at, updated_at, name, price, image_ref, user_id) VALUES (CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, '%s', %s, '%s', %d)",
		name, price.String(), imageRef, ownerID,
	)
	if err := s.db.WithContext(ctx).Exec(q).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateItem")
	}

	var id uint
	if err := s.db.WithContext(ctx).Raw("SELECT id FROM items ORDER BY id DESC LIMIT 1").Scan(&id).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateItem")
	}
	return id, nil
}

func (s *Interpolated) ItemByID(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	q := fmt.Sprintf("SELECT * FROM items WHERE id = %d", id)
	res := s.db.WithContext(ctx).Raw(q).Scan(&it)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "store: ItemByID")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (s *Interpolated) ListPage(ctx context.Context, page, pageSize int) ([]models.ItemListing, error) {
	var rows []models.ItemListing
	q := fmt.Sprintf(
		"SELECT items.id, items.name, items.price, items.image_ref, users.username AS owner_name FROM items JOIN users ON users.id = items.user_id ORDER BY items.name ASC LIMIT %d OFFSET %d",
		pageSize, (page-1)*pageSize,
	)
	if err := s.db.WithContext(ctx).Raw(q).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "store: ListPage")
	}
	return rows, nil
}

func (s *Interpolated) DeleteItem(ctx context.Context, id uint) error {
	q := fmt.Sprintf("DELETE FROM items WHERE id = %d", id)
	res := s.db.WithContext(ctx).Exec(q)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: DeleteItem")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Interpolated) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Interpolated{db: tx})
	})
}
