package terrain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrResourceExhausted = errors.New("geometry resources exhausted")
	ErrInvalidParams     = errors.New("invalid terrain parameters")
)

// TileError reports a tile that could not be made resident. The tile is left as a gap.
type TileError struct {
	Coord TileCoord
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %v: %v", e.Coord, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }
