package picking

import "github.com/pkg/errors"

var (
	ErrNoHit             = errors.New("no geometry under the cursor")
	ErrInvalidPickTarget = errors.New("pick position outside the viewport")
	ErrStaleSelection    = errors.New("picked identifier is no longer in the scene")
	ErrNoNodeSelected    = errors.New("no model node selected")
	ErrNoMeshSelected    = errors.New("no mesh selected")
	ErrUnknownMesh       = errors.New("mesh not found on the selected node")
	ErrVertexOutOfRange  = errors.New("vertex index out of range")
	ErrDepth             = errors.New("selection depth does not allow this")
)
