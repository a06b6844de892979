package services

import (
	"time"

	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
	"gorm.io/gorm"
)

// SessionSweeper periodically flips overdue guest sessions to expired.
// Validate already does this lazily on use; the sweeper only keeps the tables
// tidy for dashboards. The guarded predicate makes it idempotent, so several
// replicas can run it at once without fighting.
type SessionSweeper struct {
	DB       *gorm.DB
	Interval time.Duration
	stopChan chan struct{}
}

func NewSessionSweeper(db *gorm.DB) *SessionSweeper {
	return &SessionSweeper{
		DB:       db,
		Interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

func (sw *SessionSweeper) Start() {
	go func() {
		ticker := time.NewTicker(sw.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sw.SweepOnce()
			case <-sw.stopChan:
				return
			}
		}
	}()
}

func (sw *SessionSweeper) Stop() {
	close(sw.stopChan)
}

// SweepOnce expires every active session whose TTL has passed and reports how
// many rows it touched.
func (sw *SessionSweeper) SweepOnce() int64 {
	result := sw.DB.Model(&models.GuestSession{}).
		Where("status = ? AND expires_at <= ?", models.SessionActive, time.Now()).
		Update("status", models.SessionExpired)
	if result.Error != nil {
		utils.ErrorLogger.Printf("sweeping expired sessions: %v", result.Error)
		return 0
	}
	if result.RowsAffected > 0 {
		utils.InfoLogger.Printf("expired %d overdue guest sessions", result.RowsAffected)
	}
	return result.RowsAffected
}
