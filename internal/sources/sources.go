// Package sources selects the external tree reader for a configured format.
package sources

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/sources/chrome"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

// TreeLoader reads an external bookmark tree from disk.
type TreeLoader interface {
	Load(ctx context.Context) (domain.ExternalTree, error)
	Path() string
}

type Options struct {
	Format        string
	Path          string
	IncludeMobile bool
}

func New(opts Options) (TreeLoader, error) {
	switch opts.Format {
	case config.TreeChrome:
		return chrome.NewLoader(opts.Path, chrome.Options{IncludeMobile: opts.IncludeMobile}), nil
	case config.TreeHomepage:
		return homepage.NewLoader(opts.Path, homepage.Bookmarks), nil
	case config.TreeHomepageServices:
		return homepage.NewLoader(opts.Path, homepage.Services), nil
	default:
		return nil, fmt.Errorf("unknown tree format %q", opts.Format)
	}
}
