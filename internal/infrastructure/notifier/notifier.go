package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// Notifier delivers pending notifications in the background.
type Notifier struct {
	notifRepo usecase.NotificationRepository
	deliverer Deliverer
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

// Deliverer defines the interface for handing a notification to an external
// channel (mail, push, webhook).
type Deliverer interface {
	Deliver(ctx context.Context, notification *domain.Notification) error
}

// Config for Notifier.
type Config struct {
	NotificationRepo usecase.NotificationRepository
	Deliverer        Deliverer
	Logger           *slog.Logger
	BatchSize        int           // Number of notifications to fetch per batch
	Interval         time.Duration // Polling interval
}

// NewNotifier creates a new Notifier.
func NewNotifier(cfg Config) *Notifier {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Notifier{
		notifRepo: cfg.NotificationRepo,
		deliverer: cfg.Deliverer,
		logger:    cfg.Logger,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
	}
}

// Start begins the delivery worker.
// It runs continuously until the context is cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	n.logger.Info("notifier started",
		slog.Int("batch_size", n.batchSize),
		slog.Duration("interval", n.interval))

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	// Process immediately on start
	if err := n.processBatch(ctx); err != nil {
		n.logger.Error("error delivering notifications on start", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("notifier shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := n.processBatch(ctx); err != nil {
				n.logger.Error("error delivering notifications", slog.String("error", err.Error()))
			}
		}
	}
}

// processBatch fetches and delivers a batch of undelivered notifications.
func (n *Notifier) processBatch(ctx context.Context) error {
	notifications, err := n.notifRepo.GetUndelivered(ctx, n.batchSize)
	if err != nil {
		return err
	}

	if len(notifications) == 0 {
		return nil
	}

	n.logger.Info("delivering notifications", slog.Int("count", len(notifications)))

	for _, notification := range notifications {
		if err := n.deliverer.Deliver(ctx, notification); err != nil {
			n.logger.Error("failed to deliver notification",
				slog.String("notification_id", notification.ID),
				slog.String("event", string(notification.Event)),
				slog.String("error", err.Error()))
			// Continue processing other notifications even if one fails
			continue
		}

		// Mark as delivered
		if err := n.notifRepo.MarkDelivered(ctx, notification.ID, time.Now()); err != nil {
			n.logger.Error("failed to mark notification as delivered",
				slog.String("notification_id", notification.ID),
				slog.String("error", err.Error()))
			// Don't continue - we don't want to re-deliver this notification
		}
	}

	return nil
}

// LogDeliverer is a simple deliverer that logs notifications. Used until a
// real channel is wired in.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer creates a new LogDeliverer.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeliverer{logger: logger}
}

// Deliver logs the notification.
func (d *LogDeliverer) Deliver(ctx context.Context, notification *domain.Notification) error {
	d.logger.Info("NOTIFICATION DELIVERED",
		slog.String("notification_id", notification.ID),
		slog.String("event", string(notification.Event)),
		slog.String("recipient_id", notification.RecipientID),
		slog.String("deal_id", notification.DealID))

	return nil
}
