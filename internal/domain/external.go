package domain

import "time"

// ExternalNode is one node of an externally managed bookmark tree.
// A node with a URL is a link, otherwise a folder.
type ExternalNode struct {
	ID        string
	Title     string
	URL       string
	DateAdded time.Time
	Children  []*ExternalNode
}

func (n *ExternalNode) IsLink() bool { return n.URL != "" }

// ExternalTree is the list of top-level nodes.
type ExternalTree []*ExternalNode

// CountLinks returns the number of links in the tree.
func (t ExternalTree) CountLinks() int {
	n := 0
	var walk func(nodes []*ExternalNode)
	walk = func(nodes []*ExternalNode) {
		for _, node := range nodes {
			if node == nil {
				continue
			}
			if node.IsLink() {
				n++
			}
			walk(node.Children)
		}
	}
	walk(t)
	return n
}
