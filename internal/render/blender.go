// Package render provides the default blending strategy: inputs are
// stacked in registration order, the first underneath, each subsequent
// stream alpha-blended over it at full output size.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/zsiec/blend/internal/compositor"
	"github.com/zsiec/blend/internal/gpu"
)

// ErrUnsupportedTexture indicates an input frame whose texture is not
// memory-backed and cannot be read by this blender.
var ErrUnsupportedTexture = errors.New("render: unsupported texture type")

// OverlayBlender composites frames by painting them over each other in
// stream registration order. Output textures come from a pool and are
// returned to it when the consumer releases the output frame.
type OverlayBlender struct {
	pool   *gpu.Pool
	scaler xdraw.Scaler
}

// NewOverlayBlender builds a blender drawing into textures from pool.
func NewOverlayBlender(pool *gpu.Pool) *OverlayBlender {
	return &OverlayBlender{
		pool:   pool,
		scaler: xdraw.BiLinear,
	}
}

// Composite implements compositor.Blender. Inputs are read only for the
// duration of the call; the returned frame owns a pooled texture whose
// release obligation returns it to the pool.
func (b *OverlayBlender) Composite(ctx context.Context, inputs []*compositor.Frame, pts int64) (*compositor.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := b.pool.Get()
	dst := out.Image()

	for i, in := range inputs {
		tex, ok := in.Texture.(*gpu.MemoryTexture)
		if !ok {
			b.pool.Put(out)
			return nil, fmt.Errorf("input %d: %w", i, ErrUnsupportedTexture)
		}

		op := xdraw.Over
		if i == 0 {
			// The bottom layer replaces whatever the pooled texture
			// held.
			op = xdraw.Src
		}
		b.draw(dst, tex.Image(), op)
	}

	return compositor.NewFrame(out, pts, nil, func() {
		b.pool.Put(out)
	}), nil
}

func (b *OverlayBlender) draw(dst, src *image.NRGBA, op xdraw.Op) {
	if src.Bounds().Size() == dst.Bounds().Size() {
		xdraw.Draw(dst, dst.Bounds(), src, image.Point{}, op)
		return
	}
	b.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), op, nil)
}
