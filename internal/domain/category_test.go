package domain

import (
	"errors"
	"testing"
)

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Category
		wantErr error
	}{
		{name: "valid root", c: Category{ID: "a", Name: "A"}},
		{name: "valid child", c: Category{ID: "b", Name: "B", ParentID: "a"}},
		{name: "missing id", c: Category{Name: "A"}, wantErr: ErrValidation},
		{name: "missing name", c: Category{ID: "a"}, wantErr: ErrValidation},
		{name: "own parent", c: Category{ID: "a", Name: "A", ParentID: "a"}, wantErr: ErrCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCycleIsValidationError(t *testing.T) {
	if !errors.Is(ErrCycle, ErrValidation) {
		t.Error("ErrCycle should wrap ErrValidation")
	}
}

func TestCreatesCycle(t *testing.T) {
	// root -> a -> b -> c
	parents := map[string]string{
		"a": "root",
		"b": "a",
		"c": "b",
	}

	tests := []struct {
		name      string
		id        string
		newParent string
		expected  bool
	}{
		{name: "move to root", id: "c", newParent: "", expected: false},
		{name: "move under sibling branch", id: "c", newParent: "a", expected: false},
		{name: "move under own child", id: "a", newParent: "b", expected: true},
		{name: "move under own grandchild", id: "a", newParent: "c", expected: true},
		{name: "self parent", id: "a", newParent: "a", expected: true},
		{name: "unknown parent", id: "a", newParent: "zzz", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CreatesCycle(parents, tt.id, tt.newParent); got != tt.expected {
				t.Errorf("CreatesCycle(%q, %q) = %v, want %v", tt.id, tt.newParent, got, tt.expected)
			}
		})
	}
}

func TestCreatesCycleToleratesExistingLoop(t *testing.T) {
	parents := map[string]string{"x": "y", "y": "x"}
	if CreatesCycle(parents, "a", "x") {
		t.Error("a is not part of the x/y loop")
	}
}
