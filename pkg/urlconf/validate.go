package urlconf

import (
	"fmt"
	"strings"
)

// TreeErrorKind categorizes structural problems in a route tree.
type TreeErrorKind string

const (
	// TreeCycle indicates an entry is reachable from itself.
	TreeCycle TreeErrorKind = "CYCLE"

	// TreeNilEntry indicates a group lists a nil child.
	TreeNilEntry TreeErrorKind = "NIL_ENTRY"

	// TreeMixedEntry indicates an entry has both a callback and children.
	TreeMixedEntry TreeErrorKind = "MIXED_ENTRY"
)

// TreeError reports a malformed route tree. It is fatal: a tree that cannot
// be walked to completion produces no diagnostics at all.
type TreeError struct {
	// Kind is the error category.
	Kind TreeErrorKind

	// Route is the route of the offending entry.
	Route string

	// Path lists the routes from the root to the offending entry.
	Path []string
}

func (e *TreeError) Error() string {
	switch e.Kind {
	case TreeCycle:
		return fmt.Sprintf("%s: route %q includes itself via %s", e.Kind, e.Route, formatTreePath(e.Path))
	case TreeNilEntry:
		return fmt.Sprintf("%s: nil route entry under %s", e.Kind, formatTreePath(e.Path))
	default:
		return fmt.Sprintf("%s: route %q has both a handler and child routes", e.Kind, e.Route)
	}
}

func formatTreePath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%q", p)
	}
	return strings.Join(parts, " -> ")
}

// Validate checks that the tree rooted at root can be walked: no cycles, no
// nil children and no entry that is both an endpoint and a group. Subtrees
// shared between several groups are allowed. A nil root is valid.
func Validate(root *Entry) error {
	if root == nil {
		return nil
	}
	v := &treeValidator{
		onPath: make(map[*Entry]bool),
		done:   make(map[*Entry]bool),
	}
	return v.visit(root)
}

type treeValidator struct {
	onPath map[*Entry]bool
	done   map[*Entry]bool
	path   []string
}

func (v *treeValidator) visit(e *Entry) error {
	if v.onPath[e] {
		return &TreeError{Kind: TreeCycle, Route: e.Route, Path: append(append([]string(nil), v.path...), e.Route)}
	}
	if v.done[e] {
		return nil
	}
	if e.Callback != nil && len(e.Children) > 0 {
		return &TreeError{Kind: TreeMixedEntry, Route: e.Route, Path: append(append([]string(nil), v.path...), e.Route)}
	}

	v.onPath[e] = true
	v.path = append(v.path, e.Route)
	for _, child := range e.Children {
		if child == nil {
			return &TreeError{Kind: TreeNilEntry, Route: e.Route, Path: append([]string(nil), v.path...)}
		}
		if err := v.visit(child); err != nil {
			return err
		}
	}
	v.path = v.path[:len(v.path)-1]
	delete(v.onPath, e)
	v.done[e] = true
	return nil
}
