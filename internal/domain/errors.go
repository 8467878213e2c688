package domain

import "errors"

// ErrNotFound indicates a referenced node, member or edge does not exist in
// the graph.
var ErrNotFound = errors.New("not found")
