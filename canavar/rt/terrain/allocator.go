package terrain

import (
	"github.com/pkg/errors"
)

// Geometry is an uploaded patch. Release frees its resources; it is called exactly once.
type Geometry interface {
	Release()
}

// GeometryAllocator uploads patches. Allocate returns an error wrapping ErrResourceExhausted
// when there is no room for p.
type GeometryAllocator interface {
	Allocate(p *Patch) (Geometry, error)
}

// HeapAllocator keeps patches in memory under a byte budget. A zero budget is unbounded.
type HeapAllocator struct {
	Budget int
	used   int
	live   int
}

func NewHeapAllocator(budget int) *HeapAllocator {
	return &HeapAllocator{Budget: budget}
}

func (a *HeapAllocator) Allocate(p *Patch) (Geometry, error) {
	size := p.ByteSize()
	if a.Budget > 0 && a.used+size > a.Budget {
		return nil, errors.Wrapf(ErrResourceExhausted, "need %d bytes, %d of %d in use", size, a.used, a.Budget)
	}
	a.used += size
	a.live++
	return &heapGeometry{alloc: a, patch: p, size: size}, nil
}

// Used is the number of bytes held by live geometry.
func (a *HeapAllocator) Used() int { return a.used }

// Live is the number of unreleased geometries.
func (a *HeapAllocator) Live() int { return a.live }

type heapGeometry struct {
	alloc *HeapAllocator
	patch *Patch
	size  int
}

func (g *heapGeometry) Patch() *Patch { return g.patch }

func (g *heapGeometry) Release() {
	if g.alloc == nil {
		return
	}
	g.alloc.used -= g.size
	g.alloc.live--
	g.alloc = nil
	g.patch = nil
}
