package sim

import "sync"

// StatePool recycles snapshots of a fixed number of bodies.
type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(numBodies int) *StatePool {
	size := BodyStateDim * numBodies
	return &StatePool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				return make(State, size)
			},
		},
	}
}

func (p *StatePool) Get() State {
	return p.pool.Get().(State)
}

func (p *StatePool) Put(s State) {
	if len(s) == p.size {
		clear(s)
		p.pool.Put(s)
	}
}
