package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/repository"
)

// IndexWarmer loads stored bookmarks into the search index on startup
type IndexWarmer struct {
	repo   *repository.Repository
	index  *index.MemoryIndex
	logger logger.Logger
}

// NewIndexWarmer creates a new index warmer
func NewIndexWarmer(
	repo *repository.Repository,
	idx *index.MemoryIndex,
	log logger.Logger,
) *IndexWarmer {
	return &IndexWarmer{
		repo:   repo,
		index:  idx,
		logger: log,
	}
}

// Warm replaces the index contents with the stored bookmarks.
func (w *IndexWarmer) Warm(ctx context.Context) error {
	w.logger.Info("warming search index from store")

	bookmarks, err := w.repo.Bookmarks().GetAll(ctx)
	if err != nil {
		return err
	}

	w.index.Warm(bookmarks)

	if len(bookmarks) == 0 {
		w.logger.Info("no bookmarks found in store")
		return nil
	}

	w.logger.Info("search index warmed",
		logger.Int("count", len(bookmarks)))

	return nil
}
