package listener

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"ipsagent/internal"
	"ipsagent/internal/config"
	"ipsagent/internal/notify"
	"ipsagent/internal/report"
	"ipsagent/internal/storage"
)

// Backend is the slice of the API client the poll loop consumes.
type Backend interface {
	AllRequests(ctx context.Context) ([]internal.MaterialRequest, error)
	DeliveriesByDriver(ctx context.Context, driverID int64) ([]internal.Delivery, error)
}

type Service struct {
	db        *storage.DB
	cfg       config.Config
	client    Backend
	tracker   *notify.Tracker
	notifiers []notify.Notifier
	log       *logrus.Logger
}

func NewService(db *storage.DB, cfg config.Config, client Backend, log *logrus.Logger) *Service {
	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}
	if cfg.NotifyDesktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier("IPS Manager"))
	}

	return &Service{
		db:        db,
		cfg:       cfg,
		client:    client,
		tracker:   notify.NewTracker(),
		notifiers: notifiers,
		log:       log,
	}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			// Transient fetch errors keep the previous state; the next
			// tick retries.
			s.log.WithError(err).Error("poll cycle failed")
		}

		select {
		case <-ctx.Done():
			s.tracker.Reset()
			return nil
		case <-time.After(time.Duration(s.cfg.PollIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	role := s.role()

	requests, err := s.client.AllRequests(ctx)
	if err != nil {
		return err
	}

	transitions := s.tracker.ObserveRequests(requests)

	if driverID := s.driverID(); driverID > 0 {
		deliveries, err := s.client.DeliveriesByDriver(ctx, driverID)
		if err != nil {
			// Requests were already observed; deliveries retry next tick.
			s.log.WithError(err).Warn("deliveries fetch failed")
		} else {
			transitions = append(transitions, s.tracker.ObserveDeliveries(deliveries)...)
		}
	}

	shown := 0
	for _, tr := range transitions {
		event, ok := notify.EventFor(tr, role)
		if !ok {
			continue
		}
		for _, n := range s.notifiers {
			n.Show(event.Title, event.Body, event.Tag)
		}
		shown++
	}

	seen, err := s.db.SeenSet()
	if err != nil {
		return err
	}
	feed := notify.BuildFeed(requests, func(key string) bool {
		_, ok := seen[key]
		return ok
	})

	if s.cfg.NotifyAutoExport {
		items := feed
		if len(items) > s.cfg.NotifyExportLimit {
			items = items[:s.cfg.NotifyExportLimit]
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", "feed.xlsx")
		if err := report.ExportFeedToXLSX(items, outputPath); err != nil {
			s.log.WithError(err).Warn("feed export failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"role":        role,
		"requests":    len(requests),
		"transitions": len(transitions),
		"shown":       shown,
		"unread":      notify.UnreadCount(feed),
	}).Info("poll cycle done")

	return nil
}

func (s *Service) role() internal.Role {
	if value, err := s.db.GetSession(storage.SessionRole); err == nil && value != nil && *value != "" {
		return internal.Role(*value)
	}
	if s.cfg.NotifyRole != "" {
		return internal.Role(s.cfg.NotifyRole)
	}
	return internal.RoleWorker
}

func (s *Service) driverID() int64 {
	if s.cfg.NotifyDriverID > 0 {
		return s.cfg.NotifyDriverID
	}

	role := s.role()
	if role != internal.RoleDriver && role != internal.RoleHeadDriver {
		return 0
	}
	value, err := s.db.GetSession(storage.SessionUserID)
	if err != nil || value == nil {
		return 0
	}
	id, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
