package homepage

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// BookmarksTree maps bookmarks.yaml groups to folders.
func BookmarksTree(cfg BookmarksConfig) domain.ExternalTree {
	tree := domain.ExternalTree{}
	for _, group := range cfg {
		for _, groupName := range sortedKeys(group) {
			folder := &domain.ExternalNode{ID: stableID("group", groupName), Title: groupName}
			ids := idAllocator{}

			for _, entryMap := range group[groupName] {
				for _, name := range sortedKeys(entryMap) {
					entries := entryMap[name]
					if len(entries) == 0 || entries[0].Href == "" {
						continue
					}
					entry := entries[0]
					title := name
					if title == "" {
						title = entry.Abbr
					}
					folder.Children = append(folder.Children, &domain.ExternalNode{
						ID:    ids.next(groupName, name),
						Title: title,
						URL:   strings.TrimSpace(entry.Href),
					})
				}
			}
			tree = append(tree, folder)
		}
	}
	return tree
}

// ServicesTree maps services.yaml groups to folders, one link per service.
func ServicesTree(cfg ServicesConfig) domain.ExternalTree {
	tree := domain.ExternalTree{}
	for _, group := range cfg {
		for _, groupName := range sortedKeys(group) {
			folder := &domain.ExternalNode{ID: stableID("group", groupName), Title: groupName}
			ids := idAllocator{}

			for _, serviceMap := range group[groupName] {
				for _, name := range sortedKeys(serviceMap) {
					props := serviceMap[name]
					if props.Href == "" {
						continue
					}
					folder.Children = append(folder.Children, &domain.ExternalNode{
						ID:    ids.next(groupName, name),
						Title: name,
						URL:   strings.TrimSpace(props.Href),
					})
				}
			}
			tree = append(tree, folder)
		}
	}
	return tree
}

// idAllocator hands out stable ids for the entries of one group. Ids come
// from the entry name, not its href, so editing a link is an update.
type idAllocator map[string]int

func (a idAllocator) next(group, name string) string {
	n := a[name]
	a[name]++
	if n == 0 {
		return stableID("entry", group, name)
	}
	return stableID("entry", group, name, strconv.Itoa(n))
}

// stableID hashes its parts into a short hex id.
func stableID(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])[:16]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
