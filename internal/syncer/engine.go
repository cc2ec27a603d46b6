// Package syncer mirrors an external bookmark tree into the repository
// without touching anything the user owns.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/repository"
	"github.com/google/uuid"
)

// ErrInProgress is returned when a sync is already running in this process.
var ErrInProgress = errors.New("sync already in progress")

// Result counts what a run changed.
type Result struct {
	Added             int `json:"added"`
	Updated           int `json:"updated"`
	Deleted           int `json:"deleted"`
	Skipped           int `json:"skipped"`
	CategoriesAdded   int `json:"categoriesAdded"`
	CategoriesUpdated int `json:"categoriesUpdated"`
	CategoriesDeleted int `json:"categoriesDeleted"`
}

// Changed reports whether the run wrote anything.
func (r Result) Changed() bool {
	return r.Added+r.Updated+r.Deleted+r.CategoriesAdded+r.CategoriesUpdated+r.CategoriesDeleted > 0
}

type Engine struct {
	repo    *repository.Repository
	log     logger.Logger
	running atomic.Bool
	newID   func() string
}

func New(repo *repository.Repository, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		repo:  repo,
		log:   log,
		newID: uuid.NewString,
	}
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool { return e.running.Load() }

// plan is the set of writes a run will issue.
type plan struct {
	categoryPuts    []domain.Category
	bookmarkPuts    []domain.Bookmark
	bookmarkDeletes []string
	categoryDeletes []string
	result          Result
}

// Run reconciles the stored collections with tree. An empty tree removes
// every external item; callers that cannot tell "empty" from "failed to
// read" must check before calling. On a partial failure the returned
// Result counts the batches that were written.
func (e *Engine) Run(ctx context.Context, tree domain.ExternalTree) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Result{}, ErrInProgress
	}
	defer e.running.Store(false)

	start := time.Now()
	p, err := e.plan(ctx, tree)
	if err != nil {
		return Result{}, err
	}

	res, err := e.apply(ctx, p)
	if err != nil {
		e.log.Error("tree sync failed part-way",
			logger.Int("added", res.Added),
			logger.Int("updated", res.Updated),
			logger.Int("deleted", res.Deleted),
			logger.Error(err))
		return res, err
	}

	e.log.Info("tree sync done",
		logger.Int("added", res.Added),
		logger.Int("updated", res.Updated),
		logger.Int("deleted", res.Deleted),
		logger.Int("skipped", res.Skipped),
		logger.Int("categories_added", res.CategoriesAdded),
		logger.Int("categories_updated", res.CategoriesUpdated),
		logger.Int("categories_deleted", res.CategoriesDeleted),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

func (e *Engine) plan(ctx context.Context, tree domain.ExternalTree) (plan, error) {
	var p plan

	categories, err := e.repo.Categories().GetAll(ctx)
	if err != nil {
		return p, fmt.Errorf("load categories: %w", err)
	}
	bookmarks, err := e.repo.Bookmarks().GetAll(ctx)
	if err != nil {
		return p, fmt.Errorf("load bookmarks: %w", err)
	}

	folders, links := flatten(tree)
	e.planCategories(&p, categories, folders)
	e.planBookmarks(&p, bookmarks, links)
	return p, nil
}

func (e *Engine) planCategories(p *plan, stored []domain.Category, folders []entry) {
	byExt := map[string]domain.Category{}
	scopes := map[string]map[string]slot{}
	for _, c := range stored {
		if c.IsExternal() && c.ExternalID != "" {
			byExt[c.ExternalID] = c
		}
		if scopes[c.ParentID] == nil {
			scopes[c.ParentID] = map[string]slot{}
		}
		scopes[c.ParentID][c.ID] = slot{sort: c.Sort, external: c.IsExternal()}
	}

	type target struct {
		entry
		id       string
		existing domain.Category
		found    bool
	}
	var targets []target
	orders := map[string][]string{}
	seen := map[string]struct{}{}
	for _, f := range folders {
		if _, dup := seen[f.node.ID]; dup {
			continue
		}
		seen[f.node.ID] = struct{}{}

		t := target{entry: f, id: domain.ExternalCategoryID(f.node.ID)}
		if existing, ok := byExt[f.node.ID]; ok {
			t.existing, t.found, t.id = existing, true, existing.ID
		}
		targets = append(targets, t)
		parent := parentFor(f.parentID)
		orders[parent] = append(orders[parent], t.id)
	}
	sorts := placeAll(scopes, orders)

	for _, t := range targets {
		name := t.node.Title
		if name == "" {
			name = t.node.ID
		}
		incoming := domain.Category{
			ID:         t.id,
			Name:       name,
			ParentID:   parentFor(t.parentID),
			Sort:       sorts[t.id],
			Source:     domain.SourceExternal,
			ExternalID: t.node.ID,
		}
		if !t.found {
			p.categoryPuts = append(p.categoryPuts, incoming)
			p.result.CategoriesAdded++
			continue
		}
		if merged, changed := domain.MergeExternalCategory(t.existing, incoming); changed {
			p.categoryPuts = append(p.categoryPuts, merged)
			p.result.CategoriesUpdated++
		}
	}

	for _, c := range stored {
		if !c.IsExternal() {
			continue
		}
		if _, ok := seen[c.ExternalID]; !ok {
			p.categoryDeletes = append(p.categoryDeletes, c.ID)
		}
	}
}

func (e *Engine) planBookmarks(p *plan, stored []domain.Bookmark, links []entry) {
	inTree := make(map[string]struct{}, len(links))
	for _, l := range links {
		inTree[l.node.ID] = struct{}{}
	}

	byExt := map[string]domain.Bookmark{}
	scopes := map[string]map[string]slot{}
	// owners maps a normalized URL to the id of a bookmark that survives
	// this run. External bookmarks about to be deleted do not count.
	owners := map[string]string{}
	for _, b := range stored {
		if scopes[b.CategoryID] == nil {
			scopes[b.CategoryID] = map[string]slot{}
		}
		scopes[b.CategoryID][b.ID] = slot{sort: b.Sort, external: b.IsExternal()}
		if b.IsExternal() {
			if _, keep := inTree[b.ExternalID]; !keep || b.ExternalID == "" {
				p.bookmarkDeletes = append(p.bookmarkDeletes, b.ID)
				continue
			}
			byExt[b.ExternalID] = b
		}
		owners[domain.NormalizeURL(b.URL)] = b.ID
	}

	type target struct {
		entry
		id       string
		url      string
		existing domain.Bookmark
		found    bool
	}
	var targets []target
	orders := map[string][]string{}
	matched := map[string]struct{}{}
	for _, l := range links {
		n := l.node
		norm := domain.NormalizeURL(n.URL)
		t := target{entry: l, url: n.URL}

		if existing, ok := byExt[n.ID]; ok {
			if _, dup := matched[n.ID]; dup {
				p.result.Skipped++
				continue
			}
			matched[n.ID] = struct{}{}
			t.id, t.existing, t.found = existing.ID, existing, true

			oldNorm := domain.NormalizeURL(existing.URL)
			if owner, taken := owners[norm]; taken && owner != existing.ID {
				// Another bookmark already has the new URL: keep ours.
				t.url = existing.URL
			} else if norm != oldNorm {
				if owners[oldNorm] == existing.ID {
					delete(owners, oldNorm)
				}
				owners[norm] = existing.ID
			}
		} else {
			if _, taken := owners[norm]; taken {
				p.result.Skipped++
				continue
			}
			t.id = e.newID()
			owners[norm] = t.id
		}

		targets = append(targets, t)
		category := categoryFor(l.parentID)
		orders[category] = append(orders[category], t.id)
	}
	sorts := placeAll(scopes, orders)

	for _, t := range targets {
		incoming := domain.Bookmark{
			URL:        t.url,
			Title:      t.node.Title,
			CategoryID: categoryFor(t.parentID),
			Sort:       sorts[t.id],
		}
		if t.found {
			if merged, changed := domain.MergeExternalBookmark(t.existing, incoming); changed {
				p.bookmarkPuts = append(p.bookmarkPuts, merged)
				p.result.Updated++
			}
			continue
		}
		p.bookmarkPuts = append(p.bookmarkPuts, domain.Bookmark{
			ID:         t.id,
			URL:        incoming.URL,
			Title:      incoming.Title,
			CategoryID: incoming.CategoryID,
			Sort:       incoming.Sort,
			Tags:       []string{},
			Source:     domain.SourceExternal,
			ExternalID: t.node.ID,
			CreatedAt:  t.node.DateAdded,
		})
		p.result.Added++
	}
}

func placeAll(scopes map[string]map[string]slot, orders map[string][]string) map[string]int {
	sorts := map[string]int{}
	for scope, order := range orders {
		for id, so := range place(scopes[scope], order) {
			sorts[id] = so
		}
	}
	return sorts
}

// apply writes the plan: categories upsert, bookmarks upsert, bookmarks
// delete, categories delete. Upserts merge into the records loaded under
// the lock, so user edits made since the plan was read survive and the
// counts come from what was actually written. Counts only move once a
// batch is stored.
func (e *Engine) apply(ctx context.Context, p plan) (Result, error) {
	var res Result
	res.Skipped = p.result.Skipped

	if len(p.categoryPuts) > 0 {
		added, updated, err := e.repo.Categories().PutAll(ctx, p.categoryPuts, repository.WithExternalMerge())
		if err != nil {
			return res, fmt.Errorf("upsert categories: %w", err)
		}
		res.CategoriesAdded = added
		res.CategoriesUpdated = updated
	}

	if len(p.bookmarkPuts) > 0 {
		added, updated, err := e.repo.Bookmarks().PutAll(ctx, p.bookmarkPuts, repository.WithExternalMerge())
		if err != nil {
			return res, fmt.Errorf("upsert bookmarks: %w", err)
		}
		res.Added = added
		res.Updated = updated
		// additions whose URL was stored in the meantime
		res.Skipped += max(0, p.result.Added-added)
	}

	if len(p.bookmarkDeletes) > 0 {
		n, err := e.repo.Bookmarks().RemoveAll(ctx, p.bookmarkDeletes)
		if err != nil {
			return res, fmt.Errorf("delete bookmarks: %w", err)
		}
		res.Deleted = n
	}

	if len(p.categoryDeletes) > 0 {
		n, err := e.repo.Categories().RemoveAll(ctx, p.categoryDeletes)
		if err != nil {
			return res, fmt.Errorf("delete categories: %w", err)
		}
		res.CategoriesDeleted = n
	}

	return res, nil
}
