package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/images"
	"github.com/SaltyJahmale/week5/internal/models"
	"github.com/SaltyJahmale/week5/internal/store"
)

func TestSweepRemovesOnlyStaleOrphans(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "market.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	root := t.TempDir()
	imgs, err := images.NewDir(root, t.TempDir())
	require.NoError(t, err)

	writeAged := func(name string, age time.Duration) {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, old, old))
	}
	writeAged("keep.png", time.Hour)
	writeAged("orphan.png", time.Hour)
	writeAged("fresh.png", 0)

	item := models.Item{
		Name:     "Sword",
		Price:    decimal.RequireFromString("20.00"),
		ImageRef: "img/keep.png",
		UserID:   1,
	}
	require.NoError(t, db.Create(&item).Error)

	s := NewScheduler(imgs, zap.NewNop(), db)
	require.NoError(t, s.Sweep())

	_, err = os.Stat(filepath.Join(root, "keep.png"))
	assert.NoError(t, err, "referenced file must survive")
	_, err = os.Stat(filepath.Join(root, "fresh.png"))
	assert.NoError(t, err, "fresh file is inside the grace window")
	_, err = os.Stat(filepath.Join(root, "orphan.png"))
	assert.True(t, os.IsNotExist(err), "stale orphan must be reclaimed")
}
