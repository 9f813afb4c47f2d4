package gpu

import (
	"sync/atomic"

	"github.com/zsiec/blend/internal/logger"
)

// Pool recycles fixed-size memory textures so steady-state compositing
// allocates nothing per frame. Textures handed back through Put are
// cleared before reuse.
type Pool struct {
	width    int
	height   int
	freeList chan *MemoryTexture
	logger   logger.Logger

	allocated atomic.Int64
	reused    atomic.Int64
	discarded atomic.Int64
}

// NewPool creates a texture pool. size bounds how many idle textures are
// kept; a size of zero disables reuse but Get still allocates.
func NewPool(width, height, size int, log logger.Logger) *Pool {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Pool{
		width:    width,
		height:   height,
		freeList: make(chan *MemoryTexture, size),
		logger:   log.WithField("component", "texture_pool"),
	}
}

// Get returns a cleared texture, reusing an idle one when available.
func (p *Pool) Get() *MemoryTexture {
	select {
	case tex := <-p.freeList:
		p.reused.Add(1)
		return tex
	default:
		p.allocated.Add(1)
		p.logger.WithFields(map[string]interface{}{
			"width":  p.width,
			"height": p.height,
		}).Debug("Allocated texture")
		return NewMemoryTexture(p.width, p.height)
	}
}

// Put returns a texture to the pool. Foreign-sized textures and
// overflow beyond the pool size are discarded for the GC.
func (p *Pool) Put(tex *MemoryTexture) {
	if tex == nil || tex.Width() != p.width || tex.Height() != p.height {
		p.discarded.Add(1)
		return
	}

	tex.Clear()
	select {
	case p.freeList <- tex:
	default:
		p.discarded.Add(1)
	}
}

// Stats returns pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Idle:      len(p.freeList),
		Allocated: p.allocated.Load(),
		Reused:    p.reused.Load(),
		Discarded: p.discarded.Load(),
	}
}

// PoolStats holds texture pool statistics.
type PoolStats struct {
	Idle      int
	Allocated int64
	Reused    int64
	Discarded int64
}
