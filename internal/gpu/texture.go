package gpu

import (
	"image"
	"image/color"
	"image/draw"
)

// Texture is an opaque handle to an image buffer resident in some
// rendering context. The compositor never inspects texture contents
// itself; only the configured blender knows how to read and write a
// concrete implementation.
type Texture interface {
	Width() int
	Height() int
}

// MemoryTexture is a host-memory texture backed by an NRGBA image. It is
// the reference backend used by the software blender, the synthetic
// sources and the tests.
type MemoryTexture struct {
	img *image.NRGBA
}

// NewMemoryTexture allocates a zeroed host-memory texture.
func NewMemoryTexture(width, height int) *MemoryTexture {
	return &MemoryTexture{
		img: image.NewNRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width implements Texture.
func (t *MemoryTexture) Width() int {
	return t.img.Rect.Dx()
}

// Height implements Texture.
func (t *MemoryTexture) Height() int {
	return t.img.Rect.Dy()
}

// Image exposes the backing pixels for blending and uploads.
func (t *MemoryTexture) Image() *image.NRGBA {
	return t.img
}

// Clear resets the texture to fully transparent black so a pooled
// texture never leaks pixels from a previous frame.
func (t *MemoryTexture) Clear() {
	draw.Draw(t.img, t.img.Rect, image.NewUniform(color.NRGBA{}), image.Point{}, draw.Src)
}
