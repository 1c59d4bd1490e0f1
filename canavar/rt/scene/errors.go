package scene

import "github.com/pkg/errors"

var (
	ErrCyclicHierarchy = errors.New("cyclic hierarchy")
	ErrNotChild        = errors.New("node is not a child")
	ErrNilNode         = errors.New("nil node")
	ErrUnknownNode     = errors.New("node is not in the graph")
)
