package pixfmt

import (
	"fmt"
	"math"
)

// rgba is the engine's universal intermediate representation: four
// linear-light float64 components in [0, 1] (or unbounded for HDR/linear
// formats), used only inside this package to bridge between any two
// registered formats. Callers outside pixfmt never see this type.
type rgba struct {
	r, g, b, a float64
}

// ConvertPixels converts n whole pixels from src (in format from) into dst
// (in format to). src must hold at least n*from.BytesPerPixel() bytes and
// dst at least n*to.BytesPerPixel() bytes.
func ConvertPixels(from, to Format, src, dst []byte, n int) error {
	if n == 0 {
		return nil
	}
	fbpp, tbpp := from.BytesPerPixel(), to.BytesPerPixel()
	if len(src) < n*fbpp {
		return fmt.Errorf("pixfmt: src too short: have %d bytes, need %d", len(src), n*fbpp)
	}
	if len(dst) < n*tbpp {
		return fmt.Errorf("pixfmt: dst too short: have %d bytes, need %d", len(dst), n*tbpp)
	}
	if from == to {
		copy(dst[:n*tbpp], src[:n*tbpp])
		return nil
	}
	for i := 0; i < n; i++ {
		p := decode(from, src[i*fbpp:i*fbpp+fbpp])
		encode(to, p, dst[i*tbpp:i*tbpp+tbpp])
	}
	return nil
}

// ConvertRows converts a w x h block of pixels from a strided src buffer
// into a strided dst buffer, row by row, performing format conversion.
func ConvertRows(from, to Format, src []byte, srcStride int, dst []byte, dstStride, w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	fbpp, tbpp := from.BytesPerPixel(), to.BytesPerPixel()
	if srcStride < w*fbpp {
		return fmt.Errorf("pixfmt: srcStride %d too small for width %d (bpp %d)", srcStride, w, fbpp)
	}
	if dstStride < w*tbpp {
		return fmt.Errorf("pixfmt: dstStride %d too small for width %d (bpp %d)", dstStride, w, tbpp)
	}
	if len(src) < (h-1)*srcStride+w*fbpp {
		return fmt.Errorf("pixfmt: src too short for %d rows", h)
	}
	if len(dst) < (h-1)*dstStride+w*tbpp {
		return fmt.Errorf("pixfmt: dst too short for %d rows", h)
	}
	for y := 0; y < h; y++ {
		srow := src[y*srcStride : y*srcStride+w*fbpp]
		drow := dst[y*dstStride : y*dstStride+w*tbpp]
		if err := ConvertPixels(from, to, srow, drow, w); err != nil {
			return err
		}
	}
	return nil
}

// decode reads one pixel of format f from b into the universal rgba form.
func decode(f Format, b []byte) rgba {
	n := f.NumComponents()
	var comp [4]float64
	for c := 0; c < n && c < 4; c++ {
		comp[c] = readComponent(f.Component(), b, c)
	}
	p := rgba{r: comp[0], g: comp[1], b: comp[2], a: 1}
	if f.HasFlag(HasAlpha) && n >= 4 {
		p.a = comp[3]
	} else if n == 2 {
		// Gray+Alpha: component 1 is alpha, component 0 is gray replicated.
		p.g, p.b = p.r, p.r
		p.a = comp[1]
	} else if n == 1 {
		p.g, p.b = p.r, p.r
		p.a = 1
	}
	return p
}

// encode writes one pixel in the universal rgba form into b using format f.
func encode(f Format, p rgba, b []byte) {
	n := f.NumComponents()
	switch {
	case n == 1:
		writeComponent(f.Component(), b, 0, gray(p))
	case n == 2:
		writeComponent(f.Component(), b, 0, gray(p))
		writeComponent(f.Component(), b, 1, p.a)
	case n >= 4:
		writeComponent(f.Component(), b, 0, p.r)
		writeComponent(f.Component(), b, 1, p.g)
		writeComponent(f.Component(), b, 2, p.b)
		writeComponent(f.Component(), b, 3, p.a)
	default:
		writeComponent(f.Component(), b, 0, p.r)
	}
}

func gray(p rgba) float64 {
	return 0.2126*p.r + 0.7152*p.g + 0.0722*p.b
}

// ToFloat4 decodes one pixel of format f into (r, g, b, a) linear-light
// floats, for callers (e.g. internal/resample) that need to blend pixel
// values across arbitrary formats without depending on pixfmt internals.
func ToFloat4(f Format, px []byte) [4]float64 {
	p := decode(f, px)
	return [4]float64{p.r, p.g, p.b, p.a}
}

// FromFloat4 encodes an (r, g, b, a) linear-light float tuple into one
// pixel of format f.
func FromFloat4(f Format, v [4]float64, dst []byte) {
	encode(f, rgba{r: v[0], g: v[1], b: v[2], a: v[3]}, dst)
}

// Average decodes each of the given same-format pixels, arithmetically
// averages their components, and encodes the result into dst. Used by the
// zoom handler's 2x2 box downscale so it works uniformly across every
// registered pixel format instead of special-casing RGBA8.
func Average(f Format, pixels [][]byte, dst []byte) {
	if len(pixels) == 0 {
		return
	}
	var sum rgba
	for _, px := range pixels {
		p := decode(f, px)
		sum.r += p.r
		sum.g += p.g
		sum.b += p.b
		sum.a += p.a
	}
	n := float64(len(pixels))
	encode(f, rgba{r: sum.r / n, g: sum.g / n, b: sum.b / n, a: sum.a / n}, dst)
}

func readComponent(c ComponentType, b []byte, idx int) float64 {
	sz := c.size()
	off := idx * sz
	if off+sz > len(b) {
		return 0
	}
	switch c {
	case U8:
		return float64(b[off]) / 255
	case U16:
		v := uint16(b[off]) | uint16(b[off+1])<<8
		return float64(v) / 65535
	case U32:
		v := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
		return float64(v) / 4294967295
	case F32:
		bits := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
		return float64(math.Float32frombits(bits))
	case F64:
		bits := uint64(0)
		for i := 0; i < 8; i++ {
			bits |= uint64(b[off+i]) << (8 * i)
		}
		return math.Float64frombits(bits)
	}
	return 0
}

func writeComponent(c ComponentType, b []byte, idx int, v float64) {
	sz := c.size()
	off := idx * sz
	if off+sz > len(b) {
		return
	}
	switch c {
	case U8:
		b[off] = clampByte(v * 255)
	case U16:
		u := clampU16(v * 65535)
		b[off] = byte(u)
		b[off+1] = byte(u >> 8)
	case U32:
		u := clampU32(v * 4294967295)
		b[off] = byte(u)
		b[off+1] = byte(u >> 8)
		b[off+2] = byte(u >> 16)
		b[off+3] = byte(u >> 24)
	case F32:
		bits := math.Float32bits(float32(v))
		b[off] = byte(bits)
		b[off+1] = byte(bits >> 8)
		b[off+2] = byte(bits >> 16)
		b[off+3] = byte(bits >> 24)
	case F64:
		bits := math.Float64bits(v)
		for i := 0; i < 8; i++ {
			b[off+i] = byte(bits >> (8 * i))
		}
	}
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

func clampU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v + 0.5)
}

func clampU32(v float64) uint32 {
	if v < 0 {
		return 0
	}
	if v > 4294967295 {
		return 4294967295
	}
	return uint32(v + 0.5)
}
