package syncer

import (
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func TestFlatten(t *testing.T) {
	tree := domain.ExternalTree{
		folder("f1", "F1",
			link("l1", "L1", "https://1.test"),
			folder("f2", "F2", link("l2", "L2", "https://2.test")),
			link("l3", "L3", "https://3.test"),
		),
		link("l4", "L4", "https://4.test"),
		nil,
		&domain.ExternalNode{Title: "no id"},
	}

	folders, links := flatten(tree)

	if len(folders) != 2 || folders[0].node.ID != "f1" || folders[1].node.ID != "f2" {
		t.Fatalf("folders = %+v", folders)
	}
	if folders[1].parentID != "f1" || folders[1].position != 0 {
		t.Errorf("f2 entry = %+v", folders[1])
	}

	want := []struct {
		id       string
		parent   string
		position int
	}{
		{"l1", "f1", 0},
		{"l2", "f2", 0},
		{"l3", "f1", 1},
		{"l4", "", 0},
	}
	if len(links) != len(want) {
		t.Fatalf("links = %d, want %d", len(links), len(want))
	}
	for i, w := range want {
		got := links[i]
		if got.node.ID != w.id || got.parentID != w.parent || got.position != w.position {
			t.Errorf("link %d = {%s %s %d}, want %+v", i, got.node.ID, got.parentID, got.position, w)
		}
	}
}
