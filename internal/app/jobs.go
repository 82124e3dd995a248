package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/whatsapp"
)

// Stale pairing codes expire after this long; the gateway rotates codes much
// faster, so anything older belongs to an abandoned pairing attempt.
const staleQRAge = 10 * time.Minute

// StartBackgroundJobs schedules the recurring maintenance jobs and starts
// the cron runner.
func (a *Application) StartBackgroundJobs(svc *whatsapp.Service) {
	_, err := a.sched.AddFunc("@every 1h", func() {
		if n := svc.Gate().Sweep(); n > 0 {
			zap.L().Info("conversation locks swept", zap.Int("evicted", n))
		}
	})
	if err != nil {
		zap.L().Error("failed to schedule gate sweep", zap.Error(err))
	}

	_, err = a.sched.AddFunc("@every 10m", func() {
		a.cleanupStaleQR()
	})
	if err != nil {
		zap.L().Error("failed to schedule qr cleanup", zap.Error(err))
	}

	a.sched.Start()
}

// cleanupStaleQR clears pairing codes that were never scanned, dropping the
// instance back to disconnected so operators see a truthful status.
func (a *Application) cleanupStaleQR() {
	cutoff := time.Now().Add(-staleQRAge)
	res := a.gormDB.Model(&domain.Instance{}).
		Where("status = ? AND updated_at < ?", domain.InstanceQRCode, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.InstanceDisconnected,
			"qrcode":     "",
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		zap.L().Error("stale qr cleanup failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		zap.L().Info("stale pairing codes cleared", zap.Int64("count", res.RowsAffected))
	}
}
