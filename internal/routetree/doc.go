// Package routetree implements the routing tree that maps a method and
// path to a handler, a parameter-bound handler, or a terminal servant.
//
// The tree holds literal segments, ':name' parameter segments, and terminal
// servant nodes (file or zip roots) that consume the entire remaining tail.
// Resolution is a depth-first traversal preferring deeper matches; at each
// level literal children are tried before parameter children, and servant
// terminals last, so specific routes registered beneath the same prefix
// win. Literal segments match case-insensitively.
//
// The tree is built before the server starts and is treated as immutable
// thereafter; concurrent resolution during serving is safe.
package routetree
