package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/models"
)

// Bound resolves every logical operation through placeholders: values travel
// out-of-band to the driver and can never alter the shape of a query,
// whatever quotes, operators or comments they contain.
type Bound struct {
	db *gorm.DB
}

func NewBound(db *gorm.DB) *Bound {
	return &Bound{db: db}
}

func (s *Bound) CreateUser(ctx context.Context, username, passwordHash string) (uint, error) {
	u := models.User{Username: username, Password: passwordHash, Gold: defaultGold}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrDuplicateUsername
		}
		return 0, errors.Wrap(err, "store: CreateUser")
	}
	return u.ID, nil
}

func (s *Bound) UserByName(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: UserByName")
	}
	return &u, nil
}

func (s *Bound) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: UserByID")
	}
	return &u, nil
}

func (s *Bound) AdjustGold(ctx context.Context, id uint, delta decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND gold + ? >= 0", id, delta).
		Update("gold", gorm.Expr("gold + ?", delta))
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: AdjustGold")
	}
	if res.RowsAffected == 0 {
		// Zero rows means either the user is gone or the balance would
		// have gone negative.
		if _, err := s.UserByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Bound) CreateItem(ctx context.Context, name string, price decimal.Decimal, imageRef string, ownerID uint) (uint, error) {
	it := models.Item{Name: name, Price: price, ImageRef: imageRef, UserID: ownerID}
	if err := s.db.WithContext(ctx).Create(&it).Error; err != nil {
		return 0, errors.Wrap(err, "store: CreateItem")
	}
	return it.ID, nil
}

func (s *Bound) ItemByID(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	err := s.db.WithContext(ctx).First(&it, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: ItemByID")
	}
	return &it, nil
}

func (s *Bound) ListPage(ctx context.Context, page, pageSize int) ([]models.ItemListing, error) {
	var rows []models.ItemListing
	err := s.db.WithContext(ctx).
		Table("items").
		Select("items.id, items.name, items.price, items.image_ref, users.username AS owner_name").
		Joins("JOIN users ON users.id = items.user_id").
		Order("items.name ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "store: ListPage")
	}
	return rows, nil
}

func (s *Bound) DeleteItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.Item{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: DeleteItem")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Bound) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Bound{db: tx})
	})
}
