package domain

import "strings"

// Category groups bookmarks. Categories form a forest through ParentID.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"` // empty = root
	Sort     int    `json:"sort"`

	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	IsPinned bool   `json:"isPinned,omitempty"`

	Source     Source `json:"source"`
	ExternalID string `json:"externalId,omitempty"`
}

// ExternalCategoryID derives the category id used for a synced folder.
func ExternalCategoryID(externalID string) string {
	return "ext-" + externalID
}

func (c Category) IsExternal() bool { return c.Source == SourceExternal }

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("category id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("category %s: name is required", c.ID)
	}
	if c.ParentID == c.ID {
		return ErrCycle
	}
	return nil
}

// CreatesCycle reports whether giving id the parent newParent would make
// id its own ancestor. parents maps category id to parent id.
func CreatesCycle(parents map[string]string, id, newParent string) bool {
	seen := map[string]struct{}{}
	for cur := newParent; cur != ""; cur = parents[cur] {
		if cur == id {
			return true
		}
		if _, ok := seen[cur]; ok {
			// Pre-existing loop not involving id.
			return false
		}
		seen[cur] = struct{}{}
	}
	return false
}
