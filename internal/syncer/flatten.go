package syncer

import "github.com/MrSnakeDoc/shelf/internal/domain"

// entry is one tree node with its position among same-kind siblings.
type entry struct {
	node     *domain.ExternalNode
	parentID string // external id of the enclosing folder, empty at top level
	position int
}

// flatten walks the tree depth-first, parents before children.
func flatten(tree domain.ExternalTree) (folders, links []entry) {
	var walk func(nodes []*domain.ExternalNode, parentID string)
	walk = func(nodes []*domain.ExternalNode, parentID string) {
		folderPos, linkPos := 0, 0
		for _, n := range nodes {
			if n == nil || n.ID == "" {
				continue
			}
			if n.IsLink() {
				links = append(links, entry{node: n, parentID: parentID, position: linkPos})
				linkPos++
				continue
			}
			folders = append(folders, entry{node: n, parentID: parentID, position: folderPos})
			folderPos++
			walk(n.Children, n.ID)
		}
	}
	walk(tree, "")
	return folders, links
}

func categoryFor(parentExternalID string) string {
	if parentExternalID == "" {
		return domain.UncategorizedID
	}
	return domain.ExternalCategoryID(parentExternalID)
}

func parentFor(parentExternalID string) string {
	if parentExternalID == "" {
		return ""
	}
	return domain.ExternalCategoryID(parentExternalID)
}
