package store

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/models"
)

// Open connects to one of the two marketplace databases. Each strategy owns
// its own handle; the schemas never share storage, so injection damage in the
// unsafe schema cannot leak into the safe one.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Item{})
}
