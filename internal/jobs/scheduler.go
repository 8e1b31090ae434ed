// Package jobs runs the background maintenance work: a periodic sweep that
// reclaims uploaded image files no longer referenced by either schema.
// A rejected listing never leaves a dangling ref in the store, but it can
// leave a file on disk; the sweep is how those get cleaned up.
package jobs

import (
	"path"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/internal/images"
	"github.com/SaltyJahmale/week5/internal/models"
)

// sweepGrace keeps files this fresh out of a sweep, so an upload whose row
// insert is still in flight is never reclaimed.
const sweepGrace = 10 * time.Minute

type Scheduler struct {
	cron   *cron.Cron
	dbs    []*gorm.DB
	images *images.Dir
	log    *zap.Logger
}

// NewScheduler builds the sweep over every schema that can hold image refs.
func NewScheduler(imgs *images.Dir, log *zap.Logger, dbs ...*gorm.DB) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		dbs:    dbs,
		images: imgs,
		log:    log,
	}
}

func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(); err != nil {
			s.log.Error("image sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("image sweep scheduled", zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Sweep deletes stored files that no schema's inventory references anymore.
func (s *Scheduler) Sweep() error {
	referenced := make(map[string]bool)
	for _, db := range s.dbs {
		var refs []string
		if err := db.Model(&models.Item{}).Pluck("image_ref", &refs).Error; err != nil {
			return err
		}
		for _, ref := range refs {
			referenced[path.Base(ref)] = true
		}
	}

	names, err := s.images.ListStale(sweepGrace)
	if err != nil {
		return err
	}

	removed := 0
	for _, name := range names {
		if referenced[name] {
			continue
		}
		if err := s.images.Remove(name); err != nil {
			s.log.Warn("failed to remove orphaned image", zap.String("file", name), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("orphaned images removed", zap.Int("count", removed))
	}
	return nil
}
