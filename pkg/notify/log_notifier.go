package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes events to the application log instead of dispatching
// them. Used in development where no notification service is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a new log-only notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event and always succeeds.
func (n *LogNotifier) Notify(ctx context.Context, event *Event) error {
	n.logger.WithFields(logrus.Fields{
		"type":           event.Type,
		"reservation_id": event.ReservationID,
		"trip_id":        event.TripID,
		"seats":          event.SeatLabels,
	}).Info("Notification (log mode, not dispatched)")
	return nil
}

// GetName returns the notifier name
func (n *LogNotifier) GetName() string {
	return "log"
}
