package routetree

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nerrad567/wicket/web"
)

// Sentinel errors returned by registration and resolution.
var (
	// ErrNoRoute reports that no node matched the request.
	ErrNoRoute = errors.New("no route matched")

	// ErrEmptyPath reports resolution of an empty path.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrSlashInSegment reports a path segment containing '/'.
	ErrSlashInSegment = errors.New("segment cannot contain slashes")

	// ErrBeneathTerminal reports an attempt to attach nodes beneath a
	// terminal servant.
	ErrBeneathTerminal = errors.New("cannot attach children beneath a terminal servant")

	// ErrAlreadyMounted reports a second servant mounted on one node.
	ErrAlreadyMounted = errors.New("a servant is already mounted at this path")

	// ErrDuplicateParam reports two ':name' segments with the same name
	// along one registered path.
	ErrDuplicateParam = errors.New("duplicate parameter name on path")
)

// Terminal handles the entire remaining tail of a path. File and zip
// servants implement it.
type Terminal interface {
	Serve(ctx context.Context, remaining string) *web.Response
}

// kind tags a tree node's matcher.
type kind uint8

const (
	kindLiteral kind = iota
	kindParam
)

// node is a vertex of the routing tree. The root has an empty segment and
// no handler. A node carrying a terminal is a file-root or zip-root: no
// new children may be attached beneath it, but children registered before
// the mount are still consulted first during matching.
type node struct {
	segment  string
	kind     kind
	children []*node // insertion order within each kind
	handlers map[string]web.Handler
	terminal Terminal
}

// Match is the result of a successful resolution. Exactly one of Handler
// and Terminal is non-nil.
type Match struct {
	Handler   web.Handler
	Terminal  Terminal
	Params    map[string]string
	Remaining string
}

// Tree holds the declared routes. Registration is not safe for concurrent
// use; resolution is, once registration has finished.
type Tree struct {
	root *node
}

// New creates an empty routing tree.
func New() *Tree {
	return &Tree{root: &node{}}
}

// Register binds method on path to a handler, creating intermediate
// literal or parameter nodes as needed. A segment beginning with ':' binds
// its remainder as a parameter name.
func (t *Tree) Register(method, path string, h web.Handler) error {
	if h == nil {
		return errors.New("handler cannot be nil")
	}
	n, err := t.walk(path)
	if err != nil {
		return err
	}
	if n.handlers == nil {
		n.handlers = map[string]web.Handler{}
	}
	m := strings.ToUpper(method)
	if _, dup := n.handlers[m]; dup {
		return fmt.Errorf("route already registered: %s %s", m, path)
	}
	n.handlers[m] = h
	return nil
}

// Mount attaches a terminal servant at path. The servant consumes every
// remaining segment beneath the path. Routes registered beneath the path
// before the mount keep precedence; registering beneath it afterwards is
// an error.
func (t *Tree) Mount(path string, term Terminal) error {
	if term == nil {
		return errors.New("terminal cannot be nil")
	}
	n, err := t.walk(path)
	if err != nil {
		return err
	}
	if n.terminal != nil {
		return fmt.Errorf("mounting %q: %w", path, ErrAlreadyMounted)
	}
	n.terminal = term
	return nil
}

// walk splits path on '/', discards the empty leading element, and walks
// or creates nodes down to the final segment. Descending through a node
// that carries a terminal servant is refused.
func (t *Tree) walk(path string) (*node, error) {
	segments := strings.Split(path, "/")
	if len(segments) > 0 && segments[0] == "" {
		segments = segments[1:]
	}
	seen := map[string]struct{}{}
	n := t.root
	for _, seg := range segments {
		if strings.Contains(seg, "/") {
			return nil, ErrSlashInSegment
		}
		if n.terminal != nil {
			return nil, ErrBeneathTerminal
		}
		isParam := strings.HasPrefix(seg, ":")
		name := seg
		if isParam {
			name = seg[1:]
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("parameter %q: %w", name, ErrDuplicateParam)
			}
			seen[name] = struct{}{}
		}
		n = n.child(name, isParam)
	}
	return n, nil
}

// child finds or creates the child matching segment and kind.
func (n *node) child(segment string, isParam bool) *node {
	k := kindLiteral
	if isParam {
		k = kindParam
	}
	for _, c := range n.children {
		if c.kind == k && c.segment == segment {
			return c
		}
	}
	c := &node{segment: segment, kind: k}
	n.children = append(n.children, c)
	return c
}

// Resolve maps (method, path) to a Match. It returns ErrEmptyPath for an
// empty path and ErrNoRoute when nothing matches.
func (t *Tree) Resolve(method, path string) (*Match, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	segments := strings.Split(path, "/")
	if segments[0] == "" {
		segments = segments[1:]
	}
	m := t.root.resolve(strings.ToUpper(method), segments, 0, map[string]string{})
	if m == nil {
		return nil, ErrNoRoute
	}
	return m, nil
}

// resolve tries deeper matches before shallower ones. Literal children are
// always tried before parameter children, independent of registration
// order; the terminal servant comes after both so specific routes beneath
// the same prefix win; last, the node itself is a candidate if it has a
// handler for the method, with the unconsumed tail as the remaining path.
func (n *node) resolve(method string, segments []string, index int, params map[string]string) *Match {
	if index < len(segments) {
		seg := segments[index]

		// Literal children match case-insensitively.
		for _, c := range n.children {
			if c.kind == kindLiteral && strings.EqualFold(c.segment, seg) {
				if m := c.resolve(method, segments, index+1, params); m != nil {
					return m
				}
			}
		}

		// A parameter child matches any non-empty segment and captures it.
		// The capture is undone when the descent fails so sibling branches
		// see a clean map.
		if seg != "" {
			for _, c := range n.children {
				if c.kind != kindParam {
					continue
				}
				params[c.segment] = seg
				if m := c.resolve(method, segments, index+1, params); m != nil {
					return m
				}
				delete(params, c.segment)
			}
		}
	}

	// Servants consume the whole tail, including an empty one, but accept
	// only GET; other methods fall through and normally end at a 404.
	if n.terminal != nil && method == http.MethodGet {
		return &Match{
			Terminal:  n.terminal,
			Params:    params,
			Remaining: strings.Join(segments[index:], "/"),
		}
	}

	if h, ok := n.handlers[method]; ok {
		return &Match{
			Handler:   h,
			Params:    params,
			Remaining: strings.Join(segments[index:], "/"),
		}
	}
	return nil
}
