package index

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// MemoryIndex keeps a searchable copy of every stored bookmark.
// The repository feeds it through Add/Update/Remove after each commit.
type MemoryIndex struct {
	mu        sync.RWMutex
	bookmarks map[string]domain.Bookmark // ID -> Bookmark
	lastWarm  time.Time                  // Timestamp of last full reload
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		bookmarks: make(map[string]domain.Bookmark),
	}
}

// Warm replaces all bookmarks in the index
func (idx *MemoryIndex) Warm(bookmarks []domain.Bookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bookmarks = make(map[string]domain.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		idx.bookmarks[b.ID] = b
	}
	idx.lastWarm = time.Now()
}

func (idx *MemoryIndex) Add(b domain.Bookmark) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bookmarks[b.ID] = b
	return nil
}

func (idx *MemoryIndex) Update(b domain.Bookmark) error {
	return idx.Add(b)
}

func (idx *MemoryIndex) Remove(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.bookmarks, id)
	return nil
}

// Get retrieves a bookmark by ID
func (idx *MemoryIndex) Get(id string) (domain.Bookmark, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b, ok := idx.bookmarks[id]
	return b, ok
}

// All returns every bookmark ordered by ID.
func (idx *MemoryIndex) All() []domain.Bookmark {
	idx.mu.RLock()
	out := make([]domain.Bookmark, 0, len(idx.bookmarks))
	for _, b := range idx.bookmarks {
		out = append(out, b)
	}
	idx.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Bookmark) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.bookmarks)
}

// LastWarm returns the timestamp of the last full reload
func (idx *MemoryIndex) LastWarm() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastWarm
}
