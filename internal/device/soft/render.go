package soft

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/pipeline"
)

// errBus is a transfer that touched unmapped memory.
var errBus = errors.New("bus error")

// pixel is a premultiplied color.
type pixel struct {
	r, g, b, a uint8
}

func fromARGB(c uint32) pixel {
	return pixel{r: uint8(c >> 16), g: uint8(c >> 8), b: uint8(c), a: uint8(c >> 24)}
}

func (p pixel) argb() uint32 {
	return uint32(p.a)<<24 | uint32(p.r)<<16 | uint32(p.g)<<8 | uint32(p.b)
}

// scale multiplies every channel by k/255.
func (p pixel) scale(k uint8) pixel {
	if k == 0xff {
		return p
	}
	return pixel{mulDiv255(p.r, k), mulDiv255(p.g, k), mulDiv255(p.b, k), mulDiv255(p.a, k)}
}

// premultiply converts a straight-alpha color.
func (p pixel) premultiply() pixel {
	return pixel{mulDiv255(p.r, p.a), mulDiv255(p.g, p.a), mulDiv255(p.b, p.a), p.a}
}

func mulDiv255(a, b uint8) uint8 {
	return uint8((uint16(a)*uint16(b) + 127) / 255)
}

func addClamp(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}

// composite applies op to premultiplied s and d.
func composite(op blit.Op, s, d pixel) pixel {
	fs, fd := blit.Factors(op)
	ws, wd := fs.Weight(s.a, d.a), fd.Weight(s.a, d.a)
	ch := func(sc, dc uint8) uint8 {
		return addClamp(mulDiv255(sc, ws), mulDiv255(dc, wd))
	}
	return pixel{ch(s.r, d.r), ch(s.g, d.g), ch(s.b, d.b), ch(s.a, d.a)}
}

// layer is a sampled input: the surface rect, scaled if programmed, with
// its repeat rule for coordinates outside it.
type layer struct {
	img    *image.RGBA
	opaque bool
	repeat blit.Repeat
}

func newLayer(mem *Memory, s blit.Surface, r blit.Rect, sc blit.Scaling, rep blit.Repeat) (*layer, error) {
	buf, ok := mem.Lookup(s.DMA)
	if !ok {
		return nil, fmt.Errorf("%w: no buffer at 0x%x", errBus, s.DMA)
	}
	sr := image.Rect(r.X1, r.Y1, r.X2, r.Y2).Intersect(buf.Bounds())
	if sr.Empty() {
		return nil, fmt.Errorf("%w: rect %s outside buffer at 0x%x", errBus, r, s.DMA)
	}

	w, h := sr.Dx(), sr.Dy()
	if sc.Mode != blit.ScaleNone && sc.SrcW > 0 && sc.SrcH > 0 {
		w = max(1, w*sc.DstW/sc.SrcW)
		h = max(1, h*sc.DstH/sc.SrcH)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	switch sc.Mode {
	case blit.ScaleNearest:
		draw.NearestNeighbor.Scale(img, img.Bounds(), buf, sr, draw.Src, nil)
	case blit.ScaleBilinear:
		draw.BiLinear.Scale(img, img.Bounds(), buf, sr, draw.Src, nil)
	default:
		draw.Copy(img, image.Point{}, buf, sr, draw.Src, nil)
	}
	return &layer{img: img, opaque: !s.Format.HasAlpha(), repeat: rep}, nil
}

// at samples the layer. Coordinates outside it follow the repeat rule;
// RepeatNone yields transparent black.
func (l *layer) at(u, v int) uint32 {
	w, h := l.img.Rect.Dx(), l.img.Rect.Dy()
	if u < 0 || v < 0 || u >= w || v >= h {
		switch l.repeat.Mode {
		case blit.RepeatNone:
			return 0
		case blit.RepeatPad:
			return l.repeat.PadColor
		case blit.RepeatNormal:
			u, v = wrap(u, w), wrap(v, h)
		case blit.RepeatReflect:
			u, v = reflect(u, w), reflect(v, h)
		case blit.RepeatClamp:
			u, v = clamp(u, w), clamp(v, h)
		}
	}
	c := load(l.img, u, v)
	if l.opaque {
		c |= 0xff << 24
	}
	return c
}

func wrap(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

func reflect(x, n int) int {
	x = wrap(x, 2*n)
	if x >= n {
		x = 2*n - 1 - x
	}
	return x
}

func clamp(x, n int) int {
	return min(max(x, 0), n-1)
}

// unrotate maps destination-relative (dx, dy) in a w x h rect back to the
// input coordinate that lands there.
func unrotate(r blit.Rotation, dx, dy, w, h int) (int, int) {
	switch r {
	case blit.Rotate90:
		return dy, w - 1 - dx
	case blit.Rotate180:
		return w - 1 - dx, h - 1 - dy
	case blit.Rotate270:
		return h - 1 - dy, dx
	case blit.FlipX:
		return w - 1 - dx, dy
	case blit.FlipY:
		return dx, h - 1 - dy
	}
	return dx, dy
}

// render executes p against mem.
func render(p *plan, mem *Memory) error {
	dstSurf := p.img[blit.IDst]
	if !dstSurf.Backed() {
		return fmt.Errorf("%w: destination not programmed", errBus)
	}
	dst, ok := mem.Lookup(dstSurf.DMA)
	if !ok {
		return fmt.Errorf("%w: no buffer at 0x%x", errBus, dstSurf.DMA)
	}
	dr := p.rect[blit.IDst]
	full := image.Rect(dr.X1, dr.Y1, dr.X2, dr.Y2)
	area := full.Intersect(dst.Bounds())
	if p.clip.Enable {
		c := p.clip.Rect
		area = area.Intersect(image.Rect(c.X1, c.Y1, c.X2, c.Y2))
	}
	if area.Empty() {
		return nil
	}
	dstOpaque := !dstSurf.Format.HasAlpha()

	var src, msk *layer
	var err error
	if !p.fill && p.srcSel == pipeline.SourceMemory {
		if !p.img[blit.ISrc].Backed() {
			return fmt.Errorf("%w: source not programmed", errBus)
		}
		if src, err = newLayer(mem, p.img[blit.ISrc], p.rect[blit.ISrc], p.scaling[blit.ISrc], p.repeat[blit.ISrc]); err != nil {
			return err
		}
	}
	if p.mask {
		if msk, err = newLayer(mem, p.img[blit.IMsk], p.rect[blit.IMsk], p.scaling[blit.IMsk], p.repeat[blit.IMsk]); err != nil {
			return err
		}
	}

	w, h := full.Dx(), full.Dy()
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			out, write := p.shade(src, msk, dst, x, y, x-full.Min.X, y-full.Min.Y, w, h)
			if !write {
				continue
			}
			if dstOpaque {
				out |= 0xff << 24
			}
			store(dst, x, y, out)
		}
	}
	return nil
}

// shade computes one destination pixel. It reports false when the pixel is
// keyed out and the destination must be left as is.
func (p *plan) shade(src, msk *layer, dst *image.RGBA, x, y, dx, dy, w, h int) (uint32, bool) {
	switch {
	case p.fill:
		return p.fillColor, true
	case !p.blend:
		return p.fg, true
	}

	u, v := unrotate(p.rotate, dx, dy, w, h)

	raw := p.fg
	if src != nil {
		raw = src.at(u, v)
	}

	if p.key.Mode != blit.KeyOff && raw&0xffffff == p.key.Key&0xffffff {
		if p.key.Mode == blit.KeyBluescreen {
			return p.key.BgColor, true
		}
		return 0, false
	}

	s := fromARGB(raw)
	if p.premultiply {
		s = s.premultiply()
	}
	s = s.scale(p.ga)
	if msk != nil {
		s = s.scale(uint8(msk.at(u, v) >> 24))
	}

	d := fromARGB(load(dst, x, y))
	if !p.img[blit.IDst].Format.HasAlpha() {
		d.a = 0xff
	}
	return composite(p.op, s, d).argb(), true
}
