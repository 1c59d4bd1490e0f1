package terrain

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

type ticket struct {
	id     uint64
	cancel context.CancelFunc
}

type result struct {
	coord TileCoord
	id    uint64
	patch *Patch
	err   error
}

// asyncSource generates patches on a bounded pool of goroutines. Everything except the
// done list is owned by the main thread.
type asyncSource struct {
	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	nextID uint64

	queue    []TileCoord
	inflight map[TileCoord]ticket

	mu   sync.Mutex
	done []result
}

func newAsyncSource(workers int) *asyncSource {
	s := &asyncSource{inflight: make(map[TileCoord]ticket)}
	s.group.SetLimit(workers)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *asyncSource) pending(c TileCoord) bool {
	if _, ok := s.inflight[c]; ok {
		return true
	}
	return slices.Contains(s.queue, c)
}

func (s *asyncSource) pendingCount() int {
	return len(s.queue) + len(s.inflight)
}

func (s *asyncSource) enqueue(c TileCoord) {
	if !s.pending(c) {
		s.queue = append(s.queue, c)
	}
}

// dispatch starts queued jobs until every worker is busy.
func (s *asyncSource) dispatch(gen *Generator) {
	for len(s.queue) > 0 {
		coord := s.queue[0]
		ctx, cancel := context.WithCancel(s.ctx)
		id := s.nextID + 1
		started := s.group.TryGo(func() error {
			patch, err := gen.Generate(ctx, coord)
			s.mu.Lock()
			s.done = append(s.done, result{coord: coord, id: id, patch: patch, err: err})
			s.mu.Unlock()
			return nil
		})
		if !started {
			cancel()
			return
		}
		s.nextID = id
		s.inflight[coord] = ticket{id: id, cancel: cancel}
		s.queue = s.queue[1:]
	}
}

// drop forgets c, cancelling its job if one is running.
func (s *asyncSource) drop(c TileCoord) {
	if t, ok := s.inflight[c]; ok {
		t.cancel()
		delete(s.inflight, c)
	}
	s.queue = slices.DeleteFunc(s.queue, func(q TileCoord) bool { return q == c })
}

func (s *asyncSource) dropAll() {
	for c, t := range s.inflight {
		t.cancel()
		delete(s.inflight, c)
	}
	s.queue = s.queue[:0]
}

// collect returns finished jobs that are still wanted. Results of dropped jobs are discarded.
func (s *asyncSource) collect() []result {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	var out []result
	for _, r := range done {
		t, ok := s.inflight[r.coord]
		if !ok || t.id != r.id {
			continue
		}
		t.cancel()
		delete(s.inflight, r.coord)
		out = append(out, r)
	}
	return out
}

func (s *asyncSource) wait() {
	_ = s.group.Wait()
}

func (s *asyncSource) close() {
	s.cancel()
	s.dropAll()
	s.wait()
}
