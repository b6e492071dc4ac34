package integration

import (
	"fmt"
	"sort"
	"strings"
)

// ProductMergeMode decides how incoming products combine with the deal's current rows
type ProductMergeMode string

const (
	// ProductMergeUnion keeps existing rows and adds incoming ones; rows are never removed
	ProductMergeUnion ProductMergeMode = "union"
	// ProductMergeReplace makes the incoming products authoritative
	ProductMergeReplace ProductMergeMode = "replace"
)

// ParseProductMergeMode parses a configured merge mode; empty means union
func ParseProductMergeMode(s string) (ProductMergeMode, error) {
	switch mode := ProductMergeMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ProductMergeUnion, nil
	case ProductMergeUnion, ProductMergeReplace:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown product merge mode %q", s)
	}
}

// String returns the string representation of ProductMergeMode
func (m ProductMergeMode) String() string {
	return string(m)
}

// ProductSet is an unordered set of product names
type ProductSet map[string]struct{}

// NewProductSet builds a set from names
func NewProductSet(names ...string) ProductSet {
	set := make(ProductSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Equal reports whether both sets hold the same names
func (s ProductSet) Equal(other ProductSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if _, ok := other[n]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the names in lexical order
func (s ProductSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MergeProducts combines the deal's existing product rows with the incoming ones.
// It returns the sorted rows to write and whether they differ from existing as a set.
func MergeProducts(existing, incoming []string, mode ProductMergeMode) ([]string, bool) {
	current := NewProductSet(existing...)

	var merged ProductSet
	if mode == ProductMergeReplace {
		merged = NewProductSet(incoming...)
	} else {
		merged = NewProductSet(existing...)
		for _, n := range incoming {
			merged[n] = struct{}{}
		}
	}

	if merged.Equal(current) {
		return nil, false
	}
	return merged.Sorted(), true
}
