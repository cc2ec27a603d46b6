// Package chrome reads the Chrome/Chromium "Bookmarks" profile file.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/tidwall/gjson"
)

// webkitEpochOffset is the number of microseconds between 1601-01-01 and
// 1970-01-01, the two epochs Chrome and Unix count from.
const webkitEpochOffset = 11_644_473_600_000_000

var ErrNoRoots = errors.New("chrome: bookmarks file has no roots")

type Options struct {
	// IncludeMobile imports the "Mobile bookmarks" (synced) root.
	IncludeMobile bool
}

type Loader struct {
	filePath string
	opts     Options
}

func NewLoader(filePath string, opts Options) *Loader {
	return &Loader{filePath: filePath, opts: opts}
}

func (l *Loader) Path() string { return l.filePath }

func (l *Loader) Load(_ context.Context) (domain.ExternalTree, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chrome bookmarks: %w", err)
	}
	return Parse(data, l.opts)
}

// Parse converts the JSON document into an external tree. Each root
// (bookmarks bar, other, optionally mobile) becomes a top-level folder.
// Links that are not http(s) are dropped.
func Parse(data []byte, opts Options) (domain.ExternalTree, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("chrome: bookmarks file is not valid JSON")
	}
	roots := gjson.GetBytes(data, "roots")
	if !roots.IsObject() {
		return nil, ErrNoRoots
	}

	names := []string{"bookmark_bar", "other"}
	if opts.IncludeMobile {
		names = append(names, "synced")
	}

	tree := domain.ExternalTree{}
	for _, name := range names {
		root := roots.Get(name)
		if !root.Exists() {
			continue
		}
		if node := convert(root); node != nil {
			tree = append(tree, node)
		}
	}
	return tree, nil
}

func convert(r gjson.Result) *domain.ExternalNode {
	node := &domain.ExternalNode{
		ID:        r.Get("id").String(),
		Title:     r.Get("name").String(),
		DateAdded: webkitTime(r.Get("date_added").String()),
	}

	if r.Get("type").String() == "url" {
		url := strings.TrimSpace(r.Get("url").String())
		if !isWebURL(url) {
			return nil
		}
		node.URL = url
		if node.Title == "" {
			node.Title = url
		}
		return node
	}

	r.Get("children").ForEach(func(_, child gjson.Result) bool {
		if c := convert(child); c != nil {
			node.Children = append(node.Children, c)
		}
		return true
	})
	return node
}

func isWebURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// webkitTime converts Chrome's microseconds-since-1601 timestamps.
func webkitTime(raw string) time.Time {
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || us <= webkitEpochOffset {
		return time.Time{}
	}
	return time.UnixMicro(us - webkitEpochOffset).UTC()
}
