package buffer

import (
	"sync"
)

// DefaultSize matches the copy buffer used by segment downloads.
const DefaultSize = 256 * 1024

type Pool struct {
	pool sync.Pool
	size int
}

func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *Pool) Get() []byte {
	return *(p.pool.Get().(*[]byte))
}

// Put returns b to the pool; slices smaller than the pool size are dropped.
func (p *Pool) Put(b []byte) {
	if cap(b) < p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}

var Default = NewPool(DefaultSize)

func Get() []byte {
	return Default.Get()
}

func Put(b []byte) {
	Default.Put(b)
}
