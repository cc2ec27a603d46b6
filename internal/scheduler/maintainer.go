package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/repository"
)

// MaintenanceReport counts what one maintenance pass rewrote.
type MaintenanceReport struct {
	BookmarksResorted  int
	CategoriesResorted int
	LayoutCompacted    bool
	LayoutItemsDropped int
}

func (r MaintenanceReport) empty() bool {
	return r.BookmarksResorted == 0 && r.CategoriesResorted == 0 &&
		!r.LayoutCompacted && r.LayoutItemsDropped == 0
}

// Maintainer periodically densifies sort orders and drops layout entries
// that point at deleted bookmarks.
type Maintainer struct {
	repo     *repository.Repository
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMaintainer creates a new maintainer
func NewMaintainer(repo *repository.Repository, log logger.Logger, interval time.Duration) *Maintainer {
	return &Maintainer{
		repo:     repo,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic maintenance process
func (m *Maintainer) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := m.Run(ctx); err != nil {
		m.logger.Warn("initial maintenance failed",
			logger.Error(err))
	}

	if m.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := m.Run(ctx); err != nil {
					m.logger.Error("maintenance failed",
						logger.Error(err))
				}
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the maintainer
func (m *Maintainer) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Run executes one pass. A failing step does not stop the others.
func (m *Maintainer) Run(ctx context.Context) (MaintenanceReport, error) {
	m.logger.Debug("running maintenance")

	var (
		report MaintenanceReport
		errs   []error
		err    error
	)

	if report.BookmarksResorted, err = m.repo.Bookmarks().ReindexSort(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.CategoriesResorted, err = m.repo.Categories().ReindexSort(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.LayoutItemsDropped, err = m.repo.Layout().Repair(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.LayoutCompacted, err = m.repo.Layout().ReindexSort(ctx); err != nil {
		errs = append(errs, err)
	}

	if report.empty() {
		m.logger.Debug("nothing to maintain")
	} else {
		m.logger.Info("maintenance completed",
			logger.Int("bookmarks_resorted", report.BookmarksResorted),
			logger.Int("categories_resorted", report.CategoriesResorted),
			logger.Bool("layout_compacted", report.LayoutCompacted),
			logger.Int("layout_items_dropped", report.LayoutItemsDropped))
	}

	return report, errors.Join(errs...)
}
