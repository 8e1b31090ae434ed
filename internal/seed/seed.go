package seed

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/logger"
	"github.com/SaltyJahmale/week5/internal/models"
)

const seedPassword = "password123"

var testUsers = []string{"alice", "bob", "carol"}

var starterItems = []struct {
	Name  string
	Price string
	Ref   string
	Owner string
}{
	{"Sword", "20.00", "img/sword.png", "alice"},
	{"Shield", "15.00", "img/shield.png", "bob"},
}

// Run loads the demo users and starter listings into one schema. It is called
// once per database so both variants start from identical state.
func Run(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username IN ?", testUsers).Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(len(testUsers)) {
		logger.Log.Info("seed already applied, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashed := string(hash)
	startingGold := decimal.RequireFromString("50.00")

	err = db.Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(testUsers))
		for _, name := range testUsers {
			user := models.User{Username: name, Password: hashed, Gold: startingGold}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			ids[name] = user.ID
		}

		for _, it := range starterItems {
			item := models.Item{
				Name:     it.Name,
				Price:    decimal.RequireFromString(it.Price),
				ImageRef: it.Ref,
				UserID:   ids[it.Owner],
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("seeded demo users", zap.Strings("usernames", testUsers), zap.String("password", seedPassword))
	return nil
}
