package soft

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/roach88/blitcore/internal/blit"
)

// Memory is the device-visible buffer space: RGBA images keyed by DMA
// address. Pixels hold raw ARGB channels; whether they are premultiplied is
// up to the command that reads them.
//
// Thread-safety: the map is guarded; pixel access during a transfer is not.
type Memory struct {
	mu   sync.RWMutex
	bufs map[uint64]*image.RGBA
}

// NewMemory creates an empty buffer space.
func NewMemory() *Memory {
	return &Memory{bufs: make(map[uint64]*image.RGBA)}
}

// Alloc maps a zeroed w x h buffer at dma, replacing any previous one.
func (m *Memory) Alloc(dma uint64, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bufs[dma] = img
	return img
}

// Ensure returns the buffer backing s, allocating one of the surface's size
// if none is mapped.
func (m *Memory) Ensure(s blit.Surface) *image.RGBA {
	if img, ok := m.Lookup(s.DMA); ok {
		return img
	}
	return m.Alloc(s.DMA, s.Width, s.Height)
}

// Lookup returns the buffer mapped at dma.
func (m *Memory) Lookup(dma uint64) (*image.RGBA, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.bufs[dma]
	return img, ok
}

// Fill sets every pixel of the buffer at dma to argb.
func (m *Memory) Fill(dma uint64, argb uint32) error {
	img, ok := m.Lookup(dma)
	if !ok {
		return fmt.Errorf("fill: no buffer at 0x%x", dma)
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: toRGBA(argb)}, image.Point{}, draw.Src)
	return nil
}

// Pixel returns the ARGB value at (x, y) of the buffer at dma.
func (m *Memory) Pixel(dma uint64, x, y int) (uint32, error) {
	img, ok := m.Lookup(dma)
	if !ok {
		return 0, fmt.Errorf("pixel: no buffer at 0x%x", dma)
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 0, fmt.Errorf("pixel: (%d,%d) outside %v", x, y, img.Bounds())
	}
	return load(img, x, y), nil
}

// SetPixel stores argb at (x, y) of the buffer at dma.
func (m *Memory) SetPixel(dma uint64, x, y int, argb uint32) error {
	img, ok := m.Lookup(dma)
	if !ok {
		return fmt.Errorf("set pixel: no buffer at 0x%x", dma)
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return fmt.Errorf("set pixel: (%d,%d) outside %v", x, y, img.Bounds())
	}
	store(img, x, y, argb)
	return nil
}

func toRGBA(argb uint32) color.RGBA {
	return color.RGBA{R: uint8(argb >> 16), G: uint8(argb >> 8), B: uint8(argb), A: uint8(argb >> 24)}
}

func load(img *image.RGBA, x, y int) uint32 {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	return uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}

func store(img *image.RGBA, x, y int, argb uint32) {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	p[0] = uint8(argb >> 16)
	p[1] = uint8(argb >> 8)
	p[2] = uint8(argb)
	p[3] = uint8(argb >> 24)
}
