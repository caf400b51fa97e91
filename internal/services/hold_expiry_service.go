package services

import (
	"context"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/sirupsen/logrus"
)

// expiryBatchSize caps how many stale holds one sweep processes; anything
// beyond the cap is picked up on the next tick.
const expiryBatchSize = 100

// HoldExpiryService is the background sweeper that demotes expired holds back
// to available. Snapshot reads already treat expired holds as available (lazy
// expiry); the sweeper makes that physical so the ledger does not accumulate
// dead holds. Release being idempotent makes racing with live callers safe.
type HoldExpiryService struct {
	ledger   *LedgerService
	store    ReservationStore
	audit    PaymentAuditStore
	logger   *logrus.Logger
	stopCh   chan struct{}
	interval time.Duration
	now      func() time.Time
}

// NewHoldExpiryService creates a new hold expiry sweeper
func NewHoldExpiryService(
	ledger *LedgerService,
	store ReservationStore,
	audit PaymentAuditStore,
	interval time.Duration,
	logger *logrus.Logger,
) *HoldExpiryService {
	return &HoldExpiryService{
		ledger:   ledger,
		store:    store,
		audit:    audit,
		logger:   logger,
		stopCh:   make(chan struct{}),
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the background sweep loop
func (s *HoldExpiryService) Start() {
	s.logger.WithField("interval", s.interval).Info("Starting hold expiry sweeper")
	go s.run()
}

// Stop stops the background sweep loop
func (s *HoldExpiryService) Stop() {
	s.logger.Info("Stopping hold expiry sweeper")
	close(s.stopCh)
}

func (s *HoldExpiryService) run() {
	// Sweep immediately on start to clear anything left from a restart
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.logger.Info("Hold expiry sweeper stopped")
			return
		}
	}
}

// sweep releases every held reservation whose hold has passed. Failures are
// logged and retried on the next tick; they never block new claims.
func (s *HoldExpiryService) sweep() {
	ctx := context.Background()

	expired, err := s.store.ListExpiredHeld(ctx, s.now(), expiryBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired holds")
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.WithField("count", len(expired)).Info("Releasing expired holds")

	for i := range expired {
		res := &expired[i]
		if err := s.ledger.Release(ctx, res.ID, models.ReleaseReasonExpired); err != nil {
			s.logger.WithError(err).WithField("reservation_id", res.ID).Error("Failed to release expired hold")
			continue
		}
		// Expired pay-at-office holds end here without a gateway event, so
		// the sweeper writes the closing audit entry itself.
		amount := res.Amount
		_ = s.audit.Log(ctx, &models.PaymentAudit{
			ReservationID:  &res.ID,
			EventType:      models.PaymentEventReleased,
			EventSource:    models.PaymentSourceSweeper,
			ExpectedAmount: &amount,
			Payload: models.JSONB{
				"reason":          string(models.ReleaseReasonExpired),
				"hold_expires_at": res.HoldExpiresAt,
			},
		})
	}
}

// RunOnce runs a single sweep cycle (useful for tests or a manual trigger)
func (s *HoldExpiryService) RunOnce() {
	s.sweep()
}
